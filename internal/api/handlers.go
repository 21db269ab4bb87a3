// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/pdiddy/sciextract/internal/artifact"
	"github.com/pdiddy/sciextract/pkg/types"
)

var errUnknownArticle = errors.New("unknown article")

// ArticleEntry is one element of the article listing.
type ArticleEntry struct {
	ID          string `json:"id"`
	HasRecord   bool   `json:"has_record"`
	HasFindings bool   `json:"has_findings"`
}

// readManifest returns the manifest in dir, or an empty one when the stage
// has not run.
func readManifest(dir string) (types.Manifest, error) {
	m, err := artifact.ReadManifest(dir)
	if errors.Is(err, artifact.ErrNotFound) {
		return types.Manifest{}, nil
	}
	return m, err
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	records, err := readManifest(s.cfg.ExtractDir)
	if err != nil {
		jsonError(w, "failed to read extraction manifest: "+err.Error(), http.StatusInternalServerError)
		return
	}
	lists, err := readManifest(s.cfg.IdentifyDir)
	if err != nil {
		jsonError(w, "failed to read identification manifest: "+err.Error(), http.StatusInternalServerError)
		return
	}

	byID := map[string]*ArticleEntry{}
	entry := func(id string) *ArticleEntry {
		if e, ok := byID[id]; ok {
			return e
		}
		e := &ArticleEntry{ID: id}
		byID[id] = e
		return e
	}
	for id := range records {
		entry(id).HasRecord = true
	}
	for id := range lists {
		entry(id).HasFindings = true
	}

	articles := make([]ArticleEntry, 0, len(byID))
	for _, e := range byID {
		articles = append(articles, *e)
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].ID < articles[j].ID })

	writeJSON(w, map[string]any{"articles": articles})
}

// articleID returns the article path parameter, rejecting values that are
// not plain file names.
func articleID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "articleID")
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return "", false
	}
	return id, true
}

func (s *Server) loadRecord(id string) (*types.Record, error) {
	if rec, ok := s.records.Get(id); ok {
		return rec, nil
	}
	records, err := readManifest(s.cfg.ExtractDir)
	if err != nil {
		return nil, err
	}
	path, ok := records[id]
	if !ok {
		return nil, errUnknownArticle
	}
	rec, err := artifact.ReadRecord(path)
	if err != nil {
		return nil, err
	}
	s.records.Put(id, rec)
	return rec, nil
}

func (s *Server) loadFindings(id string) ([]types.Finding, error) {
	if list, ok := s.findings.Get(id); ok {
		return list, nil
	}
	lists, err := readManifest(s.cfg.IdentifyDir)
	if err != nil {
		return nil, err
	}
	path, ok := lists[id]
	if !ok {
		return nil, errUnknownArticle
	}
	list, err := artifact.ReadFindings(path)
	if err != nil {
		return nil, err
	}
	s.findings.Put(id, list)
	return list, nil
}

func (s *Server) loadError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, errUnknownArticle) || errors.Is(err, artifact.ErrNotFound) {
		jsonError(w, fmt.Sprintf("article %s not found", id), http.StatusNotFound)
		return
	}
	s.log.Error("loading article", "article", id, "error", err)
	jsonError(w, "failed to load article: "+err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		jsonError(w, "invalid article id", http.StatusBadRequest)
		return
	}
	rec, err := s.loadRecord(id)
	if err != nil {
		s.loadError(w, id, err)
		return
	}
	writeJSON(w, rec)
}

// handleSection renders one section's content as HTML. Section content is
// plain text with blank-line paragraphs, which renders as Markdown.
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		jsonError(w, "invalid article id", http.StatusBadRequest)
		return
	}
	sid, err := strconv.Atoi(chi.URLParam(r, "sectionID"))
	if err != nil {
		jsonError(w, "section id must be an integer", http.StatusBadRequest)
		return
	}
	rec, err := s.loadRecord(id)
	if err != nil {
		s.loadError(w, id, err)
		return
	}
	if sid < 0 || sid >= len(rec.Sections) {
		jsonError(w, fmt.Sprintf("section %d not found", sid), http.StatusNotFound)
		return
	}

	html, err := renderSection(rec.Sections[sid])
	if err != nil {
		jsonError(w, "failed to render section: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func renderSection(sec types.Section) ([]byte, error) {
	var src bytes.Buffer
	if title := sec.Title(); title != "" {
		fmt.Fprintf(&src, "## %s\n\n", title)
	}
	src.WriteString(sec.Content)

	var out bytes.Buffer
	if err := goldmark.Convert(src.Bytes(), &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		jsonError(w, "invalid article id", http.StatusBadRequest)
		return
	}
	list, err := s.loadFindings(id)
	if err != nil {
		s.loadError(w, id, err)
		return
	}
	writeJSON(w, list)
}

// handlePutFindings stores a curated finding list. The list is decoded but
// otherwise taken as given.
func (s *Server) handlePutFindings(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		jsonError(w, "invalid article id", http.StatusBadRequest)
		return
	}

	var list []types.Finding
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		jsonError(w, "invalid finding list: "+err.Error(), http.StatusBadRequest)
		return
	}
	if list == nil {
		list = []types.Finding{}
	}

	if err := s.storeFindings(id, list); err != nil {
		s.log.Error("storing findings", "article", id, "error", err)
		jsonError(w, "failed to store findings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if s.index != nil {
		if err := s.index.Replace(r.Context(), id, list); err != nil {
			s.log.Warn("updating findings index", "article", id, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeFindings(id string, list []types.Finding) error {
	s.manifestMu.Lock()
	defer s.manifestMu.Unlock()

	lists, err := readManifest(s.cfg.IdentifyDir)
	if err != nil {
		return err
	}
	path, ok := lists[id]
	if !ok {
		path = filepath.Join(s.cfg.IdentifyDir, id+".json")
	}
	if err := artifact.WriteJSON(path, list); err != nil {
		return err
	}
	s.findings.Invalidate(id)
	if ok {
		return nil
	}
	lists[id] = path
	return artifact.WriteManifest(s.cfg.IdentifyDir, lists)
}
