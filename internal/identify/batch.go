// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identify

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
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/sciextract/internal/artifact"
	"github.com/pdiddy/sciextract/pkg/types"
)

// ErrMissingManifest means the extraction stage has not run.
var ErrMissingManifest = errors.New("extraction manifest not found")

// BatchSummary holds counts from a batch identification run.
type BatchSummary struct {
	Identified int
	Findings   int
	Failed     int
}

// Total returns the number of articles processed.
func (s BatchSummary) Total() int {
	return s.Identified + s.Failed
}

// HasFailures reports whether any articles failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// IdentifyAll runs e over every record in the extraction manifest, or only
// those named in only, and writes one finding list per article plus a
// manifest to cfg.ExportDir. Progress lines go to w.
func IdentifyAll(ctx context.Context, e *Engine, cfg types.IdentificationConfig, only []string, w io.Writer, logger *slog.Logger) (BatchSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := artifact.ReadManifest(cfg.ExtractDir)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return BatchSummary{}, fmt.Errorf("%w in %s: run the extract stage first", ErrMissingManifest, cfg.ExtractDir)
		}
		return BatchSummary{}, err
	}
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	ids := make([]string, 0, len(records))
	if len(only) == 0 {
		for id := range records {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	} else {
		for _, id := range only {
			if _, ok := records[id]; !ok {
				return BatchSummary{}, fmt.Errorf("article %s is not in the extraction manifest", id)
			}
			ids = append(ids, id)
		}
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
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		if gctx.Err() != nil {
			break
		}
		recordPath := records[id]
		g.Go(func() error {
			outPath := filepath.Join(cfg.ExportDir, id+".json")
			findings, err := identifyOne(e, id, recordPath, outPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("identification failed", "article", id, "error", err)
				fmt.Fprintf(w, "failed  %s: %v\n", id, err)
				summary.Failed++
				return nil
			}
			fmt.Fprintf(w, "identified %s (%d findings)\n", id, len(findings))
			summary.Identified++
			summary.Findings += len(findings)
			manifest[id] = outPath
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
	fmt.Fprintf(w, "wrote manifest for %d articles\n", len(manifest))
	return summary, nil
}

func identifyOne(e *Engine, id, recordPath, outPath string) ([]types.Finding, error) {
	rec, err := artifact.ReadRecord(recordPath)
	if err != nil {
		return nil, err
	}
	findings, err := e.Identify(id, rec)
	if err != nil {
		return nil, err
	}
	if err := artifact.WriteJSON(outPath, findings); err != nil {
		return nil, err
	}
	return findings, nil
}
