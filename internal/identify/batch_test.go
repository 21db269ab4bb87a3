// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identify

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sciextract/internal/artifact"
	"github.com/pdiddy/sciextract/pkg/types"
)

func TestIdentifyAll(t *testing.T) {
	root := t.TempDir()
	cfg := types.IdentificationConfig{
		ExtractDir: filepath.Join(root, "extract"),
		ExportDir:  filepath.Join(root, "identify"),
		Workers:    2,
	}

	good := methodRecord("Soil was collected in 2015 and 2018.")
	good.Metadata.Title = "Resistance genes in soil"
	require.NoError(t, artifact.WriteJSON(filepath.Join(cfg.ExtractDir, "PMC1.json"), good))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ExtractDir, "PMC2.json"), []byte("{"), 0o644))
	require.NoError(t, artifact.WriteManifest(cfg.ExtractDir, types.Manifest{
		"PMC1": filepath.Join(cfg.ExtractDir, "PMC1.json"),
		"PMC2": filepath.Join(cfg.ExtractDir, "PMC2.json"),
	}))

	e := newTestEngine(t, DefaultFilters(), types.LocationRaw)
	var out bytes.Buffer
	summary, err := IdentifyAll(context.Background(), e, cfg, nil, &out, nil)
	require.NoError(t, err)

	// article title, method, two years, polluted, sample type
	assert.Equal(t, BatchSummary{Identified: 1, Findings: 6, Failed: 1}, summary)
	assert.True(t, summary.HasFailures())
	assert.Contains(t, out.String(), "identified PMC1 (6 findings)")
	assert.Contains(t, out.String(), "failed  PMC2: ")
	assert.Contains(t, out.String(), "wrote manifest for 1 articles")

	manifest, err := artifact.ReadManifest(cfg.ExportDir)
	require.NoError(t, err)
	assert.Equal(t, types.Manifest{"PMC1": filepath.Join(cfg.ExportDir, "PMC1.json")}, manifest)

	findings, err := artifact.ReadFindings(manifest["PMC1"])
	require.NoError(t, err)
	require.Len(t, findings, 6)
	assert.Equal(t, "article title", findings[0].Title)
	assert.Equal(t, types.Location{Start: 0, End: len(good.Metadata.Title), Mode: types.LocationRaw}, findings[0].Source.Location)
}

func TestIdentifyAllMissingManifest(t *testing.T) {
	e := newTestEngine(t, DefaultFilters(), types.LocationRaw)
	_, err := IdentifyAll(context.Background(), e, types.IdentificationConfig{
		ExtractDir: t.TempDir(),
		ExportDir:  t.TempDir(),
	}, nil, &bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, ErrMissingManifest)
}

func TestIdentifyAllUnknownArticle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, artifact.WriteManifest(dir, types.Manifest{}))
	e := newTestEngine(t, DefaultFilters(), types.LocationRaw)
	_, err := IdentifyAll(context.Background(), e, types.IdentificationConfig{
		ExtractDir: dir,
		ExportDir:  t.TempDir(),
	}, []string{"PMC9"}, &bytes.Buffer{}, nil)
	assert.ErrorContains(t, err, "PMC9")
}
