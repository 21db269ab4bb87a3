// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RasterizerConfig selects how page regions are rendered for figure crops.
type RasterizerConfig struct {
	// Binary is the poppler rasterizer executable (default "pdftoppm").
	Binary string `json:"binary" yaml:"binary"`

	// Image, when set, runs the rasterizer inside this container image
	// through docker or podman instead of on the host.
	Image string `json:"image,omitempty" yaml:"image,omitempty"`

	// Scale is the upscaling factor applied to the page (default 4).
	Scale float64 `json:"scale" yaml:"scale"`

	// Margin is the padding, in points, added around each image box. Zero
	// crops the box exactly; a negative value selects the default of 30.
	Margin float64 `json:"margin" yaml:"margin"`
}

// ExtractionConfig holds settings for the structural extraction stage.
type ExtractionConfig struct {
	// DownloadDir holds one directory per article plus results.json.
	DownloadDir string `json:"download_dir" yaml:"download_dir"`

	// ExportDir receives records, figure images, and results.json.
	ExportDir string `json:"export_dir" yaml:"export_dir"`

	// FiguresFromRender takes figures from the rendered document even when
	// structured markup exists ("mix" mode).
	FiguresFromRender bool `json:"figures_from_render" yaml:"figures_from_render"`

	// ScopedContent restricts markup section content to paragraphs that are
	// not inside a nested sub-section. The default keeps the flat union.
	ScopedContent bool `json:"scoped_content" yaml:"scoped_content"`

	// Workers bounds concurrent articles (default: number of CPUs).
	Workers int `json:"workers" yaml:"workers"`

	// ArticleTimeout bounds the work spent on one article (0 = none).
	ArticleTimeout time.Duration `json:"article_timeout" yaml:"article_timeout"`

	// Force re-extracts articles whose record is newer than their inputs.
	Force bool `json:"force" yaml:"force"`

	Rasterizer RasterizerConfig `json:"rasterizer" yaml:"rasterizer"`
}

// IdentificationConfig holds settings for the identification stage.
type IdentificationConfig struct {
	// ExtractDir holds records and the extraction results.json.
	ExtractDir string `json:"extract_dir" yaml:"extract_dir"`

	// ExportDir receives finding lists and results.json.
	ExportDir string `json:"export_dir" yaml:"export_dir"`

	// LocationMode selects raw or widget location encoding.
	LocationMode LocationMode `json:"location_mode" yaml:"location_mode"`

	// Workers bounds concurrent articles (default: number of CPUs).
	Workers int `json:"workers" yaml:"workers"`

	// CompletionAPIKey enables the external-completion filter.
	CompletionAPIKey string `json:"completion_api_key,omitempty" yaml:"completion_api_key,omitempty"`
}

// IndexConfig holds settings for the findings index.
type IndexConfig struct {
	// IndexDir holds findings.db and export files.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// IdentifyDir holds finding lists and the identification results.json.
	IdentifyDir string `json:"identify_dir" yaml:"identify_dir"`

	// ExtractDir holds the records findings point into. It supplies article
	// metadata and the text returned by Trace.
	ExtractDir string `json:"extract_dir" yaml:"extract_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ServeConfig holds settings for the HTTP surface.
type ServeConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	ExtractDir  string `json:"extract_dir" yaml:"extract_dir"`
	IdentifyDir string `json:"identify_dir" yaml:"identify_dir"`

	// CacheSize bounds the number of articles kept in memory (default 16).
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Extraction     ExtractionConfig     `json:"extraction" yaml:"extraction"`
	Identification IdentificationConfig `json:"identification" yaml:"identification"`
	Index          IndexConfig          `json:"index" yaml:"index"`
	Serve          ServeConfig          `json:"serve" yaml:"serve"`
}
