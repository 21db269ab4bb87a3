// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract runs structural extraction over a batch of downloaded
// articles. Each article directory holds structured markup, a PDF, or both;
// markup is preferred and the PDF is used when markup is absent or, in mix
// mode, as the source of figures.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/sciextract/internal/artifact"
	"github.com/pdiddy/sciextract/internal/container"
	"github.com/pdiddy/sciextract/internal/markup"
	"github.com/pdiddy/sciextract/internal/pagestream"
	"github.com/pdiddy/sciextract/internal/pdfdoc"
	"github.com/pdiddy/sciextract/pkg/types"
)

// XMLFile is the markup file name inside an article directory.
const XMLFile = "article.xml"

var (
	// ErrMissingManifest means the download stage has not run.
	ErrMissingManifest = errors.New("download manifest not found")

	// ErrNoSource means an article directory has neither markup nor a PDF.
	ErrNoSource = errors.New("no markup or PDF source")
)

// SourceKind names the input an article was extracted from.
type SourceKind string

const (
	SourceXML SourceKind = "XML"
	SourcePDF SourceKind = "PDF"
	SourceMix SourceKind = "XML with PDF figures"
)

// RasterizerFactory opens a rasterizer for the PDF at path.
type RasterizerFactory func(path string) (pagestream.Rasterizer, error)

// DocumentLoader reads a PDF into the page stream model.
type DocumentLoader func(path string, logger *slog.Logger) (*pagestream.Document, error)

// Backends are the external collaborators used during extraction.
type Backends struct {
	// Assets converts raw figure assets referenced by markup.
	Assets markup.AssetConverter

	// Rasterizer renders PDF page regions for figure crops.
	Rasterizer RasterizerFactory

	// Loader reads PDFs. Defaults to pdfdoc.Load.
	Loader DocumentLoader
}

// PopplerRasterizers returns a factory that renders with tool.
func PopplerRasterizers(tool container.Tool) RasterizerFactory {
	return func(path string) (pagestream.Rasterizer, error) {
		return pdfdoc.NewRasterizer(tool, path)
	}
}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of articles processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any articles failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// Result is the outcome of extracting one article.
type Result struct {
	Record *types.Record
	Source SourceKind
}

// ExtractAll extracts every article listed in the download manifest, or only
// those named in only, writing one record per article and a manifest to
// cfg.ExportDir. Articles run concurrently on cfg.Workers workers. Progress
// lines go to w.
//
// A missing download manifest or article metadata file aborts the run.
// Articles without a usable source or body are skipped; other per-article
// errors are counted as failures.
func ExtractAll(ctx context.Context, b Backends, cfg types.ExtractionConfig, only []string, w io.Writer, logger *slog.Logger) (BatchSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var downloads types.DownloadSummary
	if err := artifact.ReadJSON(filepath.Join(cfg.DownloadDir, artifact.ManifestFile), &downloads); err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return BatchSummary{}, fmt.Errorf("%w in %s: run the download stage first", ErrMissingManifest, cfg.DownloadDir)
		}
		return BatchSummary{}, err
	}
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	ids, err := selectArticles(downloads.Articles, only)
	if err != nil {
		return BatchSummary{}, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu       sync.Mutex
		summary  BatchSummary
		manifest = types.Manifest{}
	)
	report := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		if gctx.Err() != nil {
			break
		}
		dir := downloads.Articles[id]
		g.Go(func() error {
			outPath := filepath.Join(cfg.ExportDir, id+".json")
			status, res, err := extractOne(gctx, b, cfg, id, dir, outPath, logger.With("article", id))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrMissingMetadata):
				return err
			case err != nil && status == statusSkipped:
				fmt.Fprintf(w, "skipped %s: %v\n", id, err)
				summary.Skipped++
			case err != nil:
				fmt.Fprintf(w, "failed  %s: %v\n", id, err)
				summary.Failed++
			case status == statusUnchanged:
				fmt.Fprintf(w, "skipped %s (unchanged)\n", id)
				summary.Skipped++
				manifest[id] = outPath
			default:
				rec := res.Record
				fmt.Fprintf(w, "extracted %s as %s (%d figures, %d tables and %d sections)\n",
					id, res.Source, len(rec.Figures), len(rec.Tables), len(rec.Sections))
				summary.Extracted++
				manifest[id] = outPath
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if err := artifact.WriteManifest(cfg.ExportDir, manifest); err != nil {
		return summary, err
	}
	report("wrote manifest for %d articles\n", len(manifest))
	return summary, nil
}

type status int

const (
	statusExtracted status = iota
	statusUnchanged
	statusSkipped
)

func extractOne(ctx context.Context, b Backends, cfg types.ExtractionConfig, id, dir, outPath string, logger *slog.Logger) (status, *Result, error) {
	xmlPath, pdfPath, err := findSources(dir)
	if err != nil {
		return statusSkipped, nil, err
	}

	if !cfg.Force {
		inputs := []string{}
		for _, p := range []string{xmlPath, pdfPath} {
			if p != "" {
				inputs = append(inputs, p)
			}
		}
		changed, err := artifact.HasChanged(outPath, inputs...)
		if err != nil {
			return statusExtracted, nil, err
		}
		if !changed {
			return statusUnchanged, nil, nil
		}
	}

	meta, err := LoadMetadata(dir)
	if err != nil {
		return statusExtracted, nil, err
	}

	if cfg.ArticleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ArticleTimeout)
		defer cancel()
	}

	res, err := ExtractArticle(ctx, b, cfg, id, dir, logger)
	if err != nil {
		if errors.Is(err, markup.ErrNoBody) || errors.Is(err, pagestream.ErrNoContent) {
			return statusSkipped, nil, err
		}
		return statusExtracted, nil, err
	}
	res.Record.Metadata = meta

	if err := artifact.WriteJSON(outPath, res.Record); err != nil {
		return statusExtracted, nil, err
	}
	return statusExtracted, res, nil
}

// ExtractArticle extracts the article in dir without its metadata. Markup is
// used when present; the PDF is used otherwise, and also for figures when
// cfg.FiguresFromRender is set.
func ExtractArticle(ctx context.Context, b Backends, cfg types.ExtractionConfig, id, dir string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	xmlPath, pdfPath, err := findSources(dir)
	if err != nil {
		return nil, err
	}

	figOpts := pagestream.FigureOptions{
		Article:   id,
		ExportDir: cfg.ExportDir,
		Margin:    cfg.Rasterizer.Margin,
		Scale:     cfg.Rasterizer.Scale,
		Logger:    logger,
	}

	if xmlPath == "" {
		doc, r, err := b.openPDF(pdfPath, logger)
		if err != nil {
			return nil, err
		}
		rec, err := pagestream.Extract(ctx, doc, r, figOpts)
		if err != nil {
			return nil, err
		}
		return &Result{Record: rec, Source: SourcePDF}, nil
	}

	mix := cfg.FiguresFromRender && pdfPath != ""
	rec, err := markup.ExtractFile(ctx, xmlPath, markup.Options{
		Article:       id,
		AssetDir:      dir,
		ExportDir:     cfg.ExportDir,
		SkipFigures:   mix,
		ScopedContent: cfg.ScopedContent,
		Assets:        b.Assets,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	if !mix {
		return &Result{Record: rec, Source: SourceXML}, nil
	}

	doc, r, err := b.openPDF(pdfPath, logger)
	if err != nil {
		return nil, err
	}
	rec.Figures = pagestream.ExtractFigures(ctx, doc, r, figOpts)
	return &Result{Record: rec, Source: SourceMix}, nil
}

func (b Backends) openPDF(path string, logger *slog.Logger) (*pagestream.Document, pagestream.Rasterizer, error) {
	load := b.Loader
	if load == nil {
		load = pdfdoc.Load
	}
	doc, err := load(path, logger)
	if err != nil {
		return nil, nil, err
	}
	if b.Rasterizer == nil {
		return nil, nil, fmt.Errorf("no rasterizer configured for %s", path)
	}
	r, err := b.Rasterizer(path)
	if err != nil {
		return nil, nil, err
	}
	return doc, r, nil
}

// findSources returns the markup file and the first PDF (by name) in dir.
// At least one is non-empty unless an error is returned.
func findSources(dir string) (xmlPath, pdfPath string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("reading article directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch name := e.Name(); {
		case name == XMLFile:
			xmlPath = filepath.Join(dir, name)
		case pdfPath == "" && strings.EqualFold(filepath.Ext(name), ".pdf"):
			pdfPath = filepath.Join(dir, name)
		}
	}
	if xmlPath == "" && pdfPath == "" {
		return "", "", ErrNoSource
	}
	return xmlPath, pdfPath, nil
}

// selectArticles returns the sorted article ids to process.
func selectArticles(all map[string]string, only []string) ([]string, error) {
	if len(only) == 0 {
		ids := make([]string, 0, len(all))
		for id := range all {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids, nil
	}

	ids := make([]string, 0, len(only))
	for _, id := range only {
		if _, ok := all[id]; !ok {
			return nil, fmt.Errorf("article %s is not in the download manifest", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
