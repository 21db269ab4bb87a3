// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pagestream

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/pdiddy/sciextract/internal/figure"
	"github.com/pdiddy/sciextract/pkg/types"
)

// Figure rendering defaults.
const (
	DefaultMargin = 30
	DefaultScale  = 4
)

// Rasterizer renders a region of a page to an image. The region is in page
// points; the image has scale pixels per point.
type Rasterizer interface {
	RenderRegion(ctx context.Context, page int, region Rect, scale float64) (image.Image, error)
}

// FigureOptions configures figure rendering for one document.
type FigureOptions struct {
	// Article names the figure artifacts.
	Article string

	// ExportDir receives the rendered figures.
	ExportDir string

	// Margin is the padding in points around each image box. Zero crops
	// the box exactly; a negative value selects DefaultMargin.
	Margin float64

	// Scale is the upscaling factor of the render.
	Scale float64

	Logger *slog.Logger
}

// sharesEdge reports whether a and b have exactly two corners in common,
// which for non-degenerate boxes means one full side is shared.
func sharesEdge(a, b Rect) bool {
	matches := 0
	for _, p := range a.corners() {
		for _, q := range b.corners() {
			if p == q {
				matches++
			}
		}
	}
	return matches == 2
}

// MergeAdjacent joins image placements whose boxes share a full edge into
// one placement covering both. The earlier placement keeps its digest and
// absorbs the later one. Merging repeats until no two boxes share an edge, so
// images split into a grid of tiles collapse into one.
func MergeAdjacent(images []ImagePlacement) []ImagePlacement {
	out := append([]ImagePlacement(nil), images...)
	for merged := true; merged; {
		merged = false
	scan:
		for i := range out {
			for j := i + 1; j < len(out); j++ {
				if sharesEdge(out[i].BBox, out[j].BBox) {
					out[i].BBox = out[i].BBox.Union(out[j].BBox)
					out = append(out[:j], out[j+1:]...)
					merged = true
					break scan
				}
			}
		}
	}
	return out
}

// figureCandidate is an image placement that survived merging and dedup.
type figureCandidate struct {
	page  Page
	image ImagePlacement
}

// collectFigures merges adjacent placements per page and drops placements
// whose digest was already seen anywhere earlier in the document.
func collectFigures(doc *Document) []figureCandidate {
	seen := map[string]bool{}
	var out []figureCandidate
	for _, page := range doc.Pages {
		for _, img := range MergeAdjacent(page.Images) {
			if seen[img.Digest] {
				continue
			}
			seen[img.Digest] = true
			out = append(out, figureCandidate{page: page, image: img})
		}
	}
	return out
}

// ExtractFigures renders every distinct image of doc with a margin and saves
// it as a PNG artifact. A figure that fails to render or save is logged and
// dropped.
func ExtractFigures(ctx context.Context, doc *Document, r Rasterizer, opts FigureOptions) []types.Figure {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	margin := opts.Margin
	if margin < 0 {
		margin = DefaultMargin
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	figures := []types.Figure{}
	for _, c := range collectFigures(doc) {
		if ctx.Err() != nil {
			break
		}
		region := c.image.BBox.Inset(margin).Intersect(c.page.Bounds())
		if region.Empty() {
			logger.Warn("dropping figure outside page", "article", opts.Article, "page", c.page.Number)
			continue
		}

		n := len(figures)
		path := filepath.Join(opts.ExportDir, fmt.Sprintf("%s-figure-%d.%s", opts.Article, n, figure.Extension))
		if err := renderFigure(ctx, r, c.page.Number, region, scale, path); err != nil {
			logger.Warn("dropping figure", "article", opts.Article, "page", c.page.Number, "error", err)
			continue
		}

		figures = append(figures, types.Figure{
			Title:   types.StringPtr(fmt.Sprintf("Fig %d (generated)", n)),
			Caption: types.StringPtr(""),
			Path:    path,
		})
	}
	return figures
}

func renderFigure(ctx context.Context, r Rasterizer, page int, region Rect, scale float64, path string) error {
	img, err := r.RenderRegion(ctx, page, region, scale)
	if err != nil {
		return fmt.Errorf("rendering page %d: %w", page, err)
	}
	return figure.Save(img, path)
}
