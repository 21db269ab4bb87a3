// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package figure turns raw figure assets and page renders into PNG figure
// artifacts. Raster inputs are decoded in-process; EPS inputs are rasterized
// with Ghostscript through a container.Tool.
package figure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdiddy/sciextract/internal/container"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Extension is the file extension of every figure artifact.
const Extension = "png"

// Extensions lists raw asset extensions in the order they are tried: vector
// formats first, bitmaps last.
var Extensions = []string{"eps", "tif", "tiff", "png", "jpg", "gif", "bmp", "webp"}

// ErrNoAsset is returned when no asset exists for any candidate extension.
var ErrNoAsset = errors.New("no figure asset found")

// Converter converts raw figure assets into PNG artifacts.
type Converter struct {
	// EPS rasterizes PostScript assets. When nil, EPS candidates are skipped.
	EPS container.Tool

	// Resolution is the Ghostscript output resolution in DPI.
	Resolution int

	Logger *slog.Logger
}

// Convert finds the first asset named base.<ext> for ext in Extensions that
// decodes successfully and writes it to dst as PNG. Candidates that exist but
// fail to decode are logged and the next one is tried.
func (c *Converter) Convert(ctx context.Context, base, dst string) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, ext := range Extensions {
		src := base + "." + ext
		if _, err := os.Stat(src); err != nil {
			continue
		}
		img, err := c.decode(ctx, src, ext)
		if err != nil {
			logger.Warn("skipping figure asset", "path", src, "error", err)
			continue
		}
		return Save(img, dst)
	}
	return fmt.Errorf("%s: %w", base, ErrNoAsset)
}

func (c *Converter) decode(ctx context.Context, path, ext string) (image.Image, error) {
	if ext == "eps" {
		return c.rasterizeEPS(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if ext == "tif" || ext == "tiff" {
		return tiff.Decode(f)
	}
	img, _, err := image.Decode(f)
	return img, err
}

func (c *Converter) rasterizeEPS(ctx context.Context, path string) (image.Image, error) {
	if c.EPS == nil {
		return nil, errors.New("no postscript rasterizer configured")
	}
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	dpi := c.Resolution
	if dpi <= 0 {
		dpi = 300
	}
	args := []string{
		"-q", "-dSAFER", "-dBATCH", "-dNOPAUSE", "-dEPSCrop",
		"-sDEVICE=png16m", fmt.Sprintf("-r%d", dpi),
		"-sOutputFile=-", "-",
	}
	var out bytes.Buffer
	if err := c.EPS.Run(ctx, args, in, &out); err != nil {
		return nil, fmt.Errorf("rasterizing %s with %s: %w", path, c.EPS.Name(), err)
	}
	return png.Decode(&out)
}

// Crop copies the part of src inside r into a new image whose bounds start
// at the origin. r is clipped to src's bounds.
func Crop(src image.Image, r image.Rectangle) *image.NRGBA {
	r = r.Intersect(src.Bounds())
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(dst, image.Point{}, src, r, xdraw.Src, nil)
	return dst
}

// Save encodes img as PNG at path. The image is written to a temporary file
// in the same directory and renamed into place.
func Save(img image.Image, path string) error {
	if img.Bounds().Empty() {
		return fmt.Errorf("saving %s: empty image", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating figure dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".figure-*.png")
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
