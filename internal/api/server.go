// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api serves structural records and finding lists over HTTP for
// review tools, and accepts curated finding lists written back by them.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/sciextract/pkg/types"
)

const defaultCacheSize = 16

// FindingIndex receives curated finding lists so that searches reflect
// write-backs. It is satisfied by *findings.Store.
type FindingIndex interface {
	Replace(ctx context.Context, articleID string, list []types.Finding) error
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      types.ServeConfig
	index    FindingIndex
	log      *slog.Logger
	records  *cache[*types.Record]
	findings *cache[[]types.Finding]

	// manifestMu serializes updates of the identification manifest.
	manifestMu sync.Mutex
}

// NewServer creates and configures the HTTP server. index may be nil.
func NewServer(cfg types.ServeConfig, index FindingIndex, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	s := &Server{
		cfg:      cfg,
		index:    index,
		log:      log,
		records:  newCache[*types.Record](size),
		findings: newCache[[]types.Finding](size),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.handleListArticles)
		r.Get("/{articleID}/record", s.handleRecord)
		r.Get("/{articleID}/sections/{sectionID}", s.handleSection)
		r.Get("/{articleID}/findings", s.handleFindings)
		r.Put("/{articleID}/findings", s.handlePutFindings)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
