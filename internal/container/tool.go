// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"context"
	"fmt"
	"io"
)

// Tool runs one command-line program that reads stdin and writes stdout.
type Tool interface {
	// Name describes the tool for log and error messages.
	Name() string

	// Available reports whether the tool can be run.
	Available() bool

	// Run executes the tool with args.
	Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error
}

// hostTool runs a binary found on PATH.
type hostTool struct {
	bin  string
	exec executor
}

// HostTool returns a Tool that runs bin directly on the host.
func HostTool(bin string) Tool {
	return &hostTool{bin: bin, exec: defaultExec}
}

func (h *hostTool) Name() string { return h.bin }

func (h *hostTool) Available() bool {
	_, err := h.exec.LookPath(h.bin)
	return err == nil
}

func (h *hostTool) Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if err := h.exec.RunPiped(ctx, h.bin, args, stdin, stdout); err != nil {
		return fmt.Errorf("running %s: %w", h.bin, err)
	}
	return nil
}

// imageTool runs a binary inside a container image.
type imageTool struct {
	rt    Runtime
	image string
	bin   string
}

// ImageTool returns a Tool that runs bin inside image on rt.
func ImageTool(rt Runtime, image, bin string) Tool {
	return &imageTool{rt: rt, image: image, bin: bin}
}

func (t *imageTool) Name() string { return t.bin + "@" + t.image }

func (t *imageTool) Available() bool {
	return t.rt.ImageExists(t.image) == nil
}

func (t *imageTool) Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	return t.rt.Run(ctx, t.image, append([]string{t.bin}, args...), stdin, stdout)
}

// ResolveTool returns a host tool for bin when image is empty, and otherwise
// a tool running bin inside image on the detected container runtime.
func ResolveTool(bin, image string) (Tool, error) {
	if image == "" {
		return HostTool(bin), nil
	}
	rt, err := DetectRuntime()
	if err != nil {
		return nil, err
	}
	return ImageTool(rt, image, bin), nil
}
