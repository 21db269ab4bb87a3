// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sciextract/internal/artifact"
	"github.com/pdiddy/sciextract/pkg/types"
)

type recordingIndex struct {
	article string
	list    []types.Finding
}

func (r *recordingIndex) Replace(_ context.Context, articleID string, list []types.Finding) error {
	r.article, r.list = articleID, list
	return nil
}

func testServer(t *testing.T) (*Server, types.ServeConfig, *recordingIndex) {
	t.Helper()
	root := t.TempDir()
	cfg := types.ServeConfig{
		ExtractDir:  filepath.Join(root, "extract"),
		IdentifyDir: filepath.Join(root, "identify"),
		CacheSize:   2,
	}

	rec := &types.Record{
		Figures: []types.Figure{},
		Tables:  []types.Table{},
		Sections: []types.Section{
			{Name: types.StringPtr("Methods"), Content: "Soil was sampled.\n\nDNA was <extracted>."},
			{Content: "Untitled text."},
		},
		SectionOrder: []int{0, 1},
		Metadata:     types.Metadata{Title: "Soil study"},
	}
	recPath := filepath.Join(cfg.ExtractDir, "PMC1.json")
	require.NoError(t, artifact.WriteJSON(recPath, rec))
	require.NoError(t, artifact.WriteManifest(cfg.ExtractDir, types.Manifest{"PMC1": recPath}))

	list := []types.Finding{{
		Title: "sample year", Data: types.StringPtr("2015"), Sample: types.IntPtr(-1),
		UUID: "u1", Source: types.Source{Article: "PMC1", Kind: types.KindSection, Location: types.Location{Start: 1, End: 5}},
	}}
	listPath := filepath.Join(cfg.IdentifyDir, "PMC1.json")
	require.NoError(t, artifact.WriteJSON(listPath, list))
	require.NoError(t, artifact.WriteManifest(cfg.IdentifyDir, types.Manifest{"PMC1": listPath}))

	idx := &recordingIndex{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, idx, logger), cfg, idx
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := testServer(t)
	res := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body.String())
}

func TestListArticles(t *testing.T) {
	s, cfg, _ := testServer(t)
	require.NoError(t, artifact.WriteManifest(cfg.ExtractDir, types.Manifest{
		"PMC1": filepath.Join(cfg.ExtractDir, "PMC1.json"),
		"PMC0": filepath.Join(cfg.ExtractDir, "PMC0.json"),
	}))

	res := do(t, s, http.MethodGet, "/articles/", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"articles": [
		{"id": "PMC0", "has_record": true, "has_findings": false},
		{"id": "PMC1", "has_record": true, "has_findings": true}
	]}`, res.Body.String())
}

func TestGetRecord(t *testing.T) {
	s, _, _ := testServer(t)

	res := do(t, s, http.MethodGet, "/articles/PMC1/record", "")
	require.Equal(t, http.StatusOK, res.Code)
	var rec types.Record
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &rec))
	assert.Equal(t, "Soil study", rec.Metadata.Title)
	assert.Equal(t, 1, s.records.Len())

	res = do(t, s, http.MethodGet, "/articles/PMC9/record", "")
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestGetSection(t *testing.T) {
	s, _, _ := testServer(t)

	res := do(t, s, http.MethodGet, "/articles/PMC1/sections/0", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "text/html; charset=utf-8", res.Header().Get("Content-Type"))
	body := res.Body.String()
	assert.Contains(t, body, "<h2>Methods</h2>")
	assert.Contains(t, body, "<p>Soil was sampled.</p>")
	assert.NotContains(t, body, "<extracted>", "raw markup is not passed through")

	res = do(t, s, http.MethodGet, "/articles/PMC1/sections/1", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Body.String(), "<h2>")

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/articles/PMC1/sections/2", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/articles/PMC1/sections/x", "").Code)
}

func TestGetFindings(t *testing.T) {
	s, _, _ := testServer(t)

	res := do(t, s, http.MethodGet, "/articles/PMC1/findings", "")
	require.Equal(t, http.StatusOK, res.Code)
	var list []types.Finding
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2015", *list[0].Data)
}

func TestPutFindingsInvalidatesCache(t *testing.T) {
	s, cfg, idx := testServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/articles/PMC1/findings", "").Code)

	curated := `[{"title": "sample year", "data": "2016", "sample": 1, "expanding": false,
		"stamp": "", "uuid": "u1",
		"source": {"article": "PMC1", "kind": "section", "subtype": 0, "location": {"start": "1.0+1c", "end": "1.0+5c"}},
		"description": {"info": "", "data": ""}}]`
	res := do(t, s, http.MethodPut, "/articles/PMC1/findings", curated)
	require.Equal(t, http.StatusNoContent, res.Code)

	res = do(t, s, http.MethodGet, "/articles/PMC1/findings", "")
	var list []types.Finding
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2016", *list[0].Data)
	assert.Equal(t, 1, *list[0].Sample)
	assert.Equal(t, types.LocationWidget, list[0].Source.Location.Mode, "write-back is stored as given")

	assert.Equal(t, "PMC1", idx.article)
	assert.Len(t, idx.list, 1)

	onDisk, err := artifact.ReadFindings(filepath.Join(cfg.IdentifyDir, "PMC1.json"))
	require.NoError(t, err)
	assert.Equal(t, "2016", *onDisk[0].Data)
}

func TestPutFindingsNewArticle(t *testing.T) {
	s, cfg, _ := testServer(t)

	res := do(t, s, http.MethodPut, "/articles/PMC2/findings", `[]`)
	require.Equal(t, http.StatusNoContent, res.Code)

	manifest, err := artifact.ReadManifest(cfg.IdentifyDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.IdentifyDir, "PMC2.json"), manifest["PMC2"])
	assert.Contains(t, manifest, "PMC1")

	data, err := os.ReadFile(manifest["PMC2"])
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestPutFindingsRejectsMalformedBody(t *testing.T) {
	s, _, idx := testServer(t)
	res := do(t, s, http.MethodPut, "/articles/PMC1/findings", `{"title": 1}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, idx.article)
}

func TestArticleIDRejectsTraversal(t *testing.T) {
	s, _, _ := testServer(t)
	res := do(t, s, http.MethodGet, "/articles/..%2Fsecrets/record", "")
	assert.NotEqual(t, http.StatusOK, res.Code)
}

func TestCacheEviction(t *testing.T) {
	c := newCache[int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Invalidate("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}
