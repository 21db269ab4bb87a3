// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the sciextract pipeline.
// The Structural Record is produced by extraction and read by identification,
// the findings index, and the HTTP surface. Field names follow the JSON
// interchange format consumed by the review and aggregation tools.
package types

import (
	"errors"
	"fmt"
)

// Section is one titled or untitled content block. Parent is an index into
// the same Record.Sections slice, or nil for a root-level section.
type Section struct {
	// Name is the section heading, nil when the markup has no title.
	Name *string `json:"name" yaml:"name"`

	// Content is the plain-text body of the section.
	Content string `json:"content" yaml:"content"`

	// Parent is the arena index of the enclosing section.
	Parent *int `json:"parent" yaml:"parent"`
}

// Title returns the section name or the empty string.
func (s Section) Title() string {
	if s.Name == nil {
		return ""
	}
	return *s.Name
}

// Figure references a rasterized image artifact written by the extractor.
type Figure struct {
	Title   *string `json:"title" yaml:"title"`
	Caption *string `json:"caption" yaml:"caption"`
	Path    string  `json:"path" yaml:"path"`
}

// Table holds a normalized text rendering of a tabular markup fragment.
type Table struct {
	Title   *string `json:"title" yaml:"title"`
	Caption *string `json:"caption" yaml:"caption"`
	Content string  `json:"content" yaml:"content"`
}

// Metadata keys, as used by metadata-targeting filters.
const (
	MetaTitle       = "title"
	MetaPublishDate = "publish date"
	MetaAuthors     = "authors"
	MetaAbstract    = "abstract"
)

// Metadata is the fixed article metadata mapping.
type Metadata struct {
	Title       string  `json:"title" yaml:"title"`
	PublishDate string  `json:"publish date" yaml:"publish date"`
	Authors     string  `json:"authors" yaml:"authors"`
	Abstract    *string `json:"abstract" yaml:"abstract"`
}

// Get returns the value stored under a metadata key. The boolean is false for
// unknown keys and for an absent abstract.
func (m Metadata) Get(key string) (string, bool) {
	switch key {
	case MetaTitle:
		return m.Title, true
	case MetaPublishDate:
		return m.PublishDate, true
	case MetaAuthors:
		return m.Authors, true
	case MetaAbstract:
		if m.Abstract == nil {
			return "", false
		}
		return *m.Abstract, true
	}
	return "", false
}

// Record is the normalized structural record of one article. It is created
// once by extraction and never mutated afterwards.
type Record struct {
	Figures      []Figure  `json:"figures" yaml:"figures"`
	Tables       []Table   `json:"tables" yaml:"tables"`
	Sections     []Section `json:"sections" yaml:"sections"`
	SectionOrder []int     `json:"section_order" yaml:"section_order"`
	Metadata     Metadata  `json:"metadata" yaml:"metadata"`
}

// Errors reported by Record.Validate.
var (
	ErrParentOutOfRange = errors.New("section parent out of range")
	ErrSelfParent       = errors.New("section is its own parent")
	ErrParentCycle      = errors.New("section parent chain does not terminate")
	ErrBadSectionOrder  = errors.New("section order is not a permutation")
)

// RootSectionName names the synthetic section 0 that the rendered-page
// extractor creates for text preceding the first header.
const RootSectionName = "preface"

// Validate checks the section arena invariants: every parent is a valid,
// non-self index, every parent chain reaches nil within len(Sections) steps,
// and SectionOrder is a permutation of the section indices. The order may
// omit section 0 only when it is the synthetic root.
func (r *Record) Validate() error {
	n := len(r.Sections)
	for i, s := range r.Sections {
		if s.Parent == nil {
			continue
		}
		p := *s.Parent
		if p < 0 || p >= n {
			return fmt.Errorf("section %d: %w (%d)", i, ErrParentOutOfRange, p)
		}
		if p == i {
			return fmt.Errorf("section %d: %w", i, ErrSelfParent)
		}
	}
	for i := range r.Sections {
		if _, err := r.Ancestors(i); err != nil {
			return err
		}
	}

	seen := make([]bool, n)
	for _, id := range r.SectionOrder {
		if id < 0 || id >= n || seen[id] {
			return fmt.Errorf("%w: index %d", ErrBadSectionOrder, id)
		}
		seen[id] = true
	}
	for i, ok := range seen {
		if !ok && !(i == 0 && r.hasSyntheticRoot()) {
			return fmt.Errorf("%w: section %d missing", ErrBadSectionOrder, i)
		}
	}
	return nil
}

func (r *Record) hasSyntheticRoot() bool {
	if len(r.Sections) == 0 {
		return false
	}
	root := r.Sections[0]
	return root.Parent == nil && root.Name != nil && *root.Name == RootSectionName
}

// Ancestors returns id followed by each of its ancestors, nearest first.
func (r *Record) Ancestors(id int) ([]int, error) {
	if id < 0 || id >= len(r.Sections) {
		return nil, fmt.Errorf("%w: %d", ErrParentOutOfRange, id)
	}
	chain := []int{id}
	cur := r.Sections[id].Parent
	for steps := 0; cur != nil; steps++ {
		if steps >= len(r.Sections) {
			return nil, fmt.Errorf("section %d: %w", id, ErrParentCycle)
		}
		p := *cur
		if p < 0 || p >= len(r.Sections) {
			return nil, fmt.Errorf("section %d: %w (%d)", id, ErrParentOutOfRange, p)
		}
		chain = append(chain, p)
		cur = r.Sections[p].Parent
	}
	return chain, nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
