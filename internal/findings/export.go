// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package findings

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sciextract/internal/artifact"
)

// ExportEntry is one finding flattened for export.
type ExportEntry struct {
	UUID      string         `json:"uuid" yaml:"uuid"`
	Title     string         `json:"title" yaml:"title"`
	Data      *string        `json:"data" yaml:"data"`
	Sample    *int           `json:"sample" yaml:"sample"`
	Expanding bool           `json:"expanding" yaml:"expanding"`
	ArticleID string         `json:"article" yaml:"article"`
	Kind      string         `json:"kind" yaml:"kind"`
	Subtype   string         `json:"subtype" yaml:"subtype"`
	Start     int            `json:"start" yaml:"start"`
	End       int            `json:"end" yaml:"end"`
	Article   *ExportArticle `json:"article_metadata,omitempty" yaml:"article_metadata,omitempty"`
}

// ExportArticle holds the article-level fields included in each entry.
type ExportArticle struct {
	Title string `json:"title" yaml:"title"`
}

const exportLimit = 100000

// ExportYAML writes matching findings to export.yaml in the index directory
// and returns its path.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, artifact.WriteFile(path, data)
}

// ExportJSON writes matching findings to export.json in the index directory
// and returns its path.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, artifact.WriteFile(path, data)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			UUID:      r.UUID,
			Title:     r.Title,
			Data:      r.Data,
			Sample:    r.Sample,
			Expanding: r.Expanding,
			ArticleID: r.Source.Article,
			Kind:      string(r.Source.Kind),
			Subtype:   r.Source.Subtype.String(),
			Start:     r.Source.Location.Start,
			End:       r.Source.Location.End,
		}
		if r.ArticleTitle != "" {
			entries[i].Article = &ExportArticle{Title: r.ArticleTitle}
		}
	}

	return entries, nil
}
