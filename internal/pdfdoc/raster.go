// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"strconv"

	"github.com/pdiddy/sciextract/internal/container"
	"github.com/pdiddy/sciextract/internal/pagestream"
)

// DefaultRasterizer is the poppler binary used to render pages.
const DefaultRasterizer = "pdftoppm"

// Rasterizer renders page regions of one PDF with pdftoppm. The document is
// piped on stdin so the tool may run inside a container.
type Rasterizer struct {
	tool container.Tool
	data []byte
}

// NewRasterizer reads the PDF at path for rendering with tool.
func NewRasterizer(tool container.Tool, path string) (*Rasterizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &Rasterizer{tool: tool, data: data}, nil
}

// RenderRegion renders region of page at scale pixels per point.
func (r *Rasterizer) RenderRegion(ctx context.Context, page int, region pagestream.Rect, scale float64) (image.Image, error) {
	var out bytes.Buffer
	if err := r.tool.Run(ctx, renderArgs(page, region, scale), bytes.NewReader(r.data), &out); err != nil {
		return nil, err
	}
	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s output: %w", r.tool.Name(), err)
	}
	return img, nil
}

// renderArgs builds the pdftoppm command line for one cropped page. The crop
// box is given in pixels of the scaled render.
func renderArgs(page int, region pagestream.Rect, scale float64) []string {
	px := func(v float64) string { return strconv.Itoa(int(math.Round(v * scale))) }
	p := strconv.Itoa(page)
	return []string{
		"-f", p, "-l", p,
		"-r", strconv.FormatFloat(72*scale, 'f', -1, 64),
		"-x", px(region.X0),
		"-y", px(region.Y0),
		"-W", px(region.X1 - region.X0),
		"-H", px(region.Y1 - region.Y0),
		"-png", "-singlefile",
		"-", "-",
	}
}
