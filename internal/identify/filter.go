// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identify scans structural records with a fixed set of typed
// filters and emits findings whose locations point into the original,
// unstripped text of each scanned part.
package identify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/sciextract/internal/span"
	"github.com/pdiddy/sciextract/pkg/types"
)

// Role is a canonical section role that filters target instead of concrete
// section ids.
type Role string

const (
	RoleAbstract         Role = "abstract"
	RoleIntroduction     Role = "introduction"
	RoleMethod           Role = "method"
	RoleResults          Role = "results"
	RoleDiscussion       Role = "discussion"
	RoleAcknowledgements Role = "acknowledgements"
	RoleReferences       Role = "references"
)

// Roles lists the canonical roles in resolution order.
var Roles = []Role{
	RoleAbstract, RoleIntroduction, RoleMethod, RoleResults,
	RoleDiscussion, RoleAcknowledgements, RoleReferences,
}

// RoleKeywords are the section-title substrings that tag a section with a
// role. Matching is case-insensitive.
var RoleKeywords = map[Role][]string{
	RoleAbstract:         {"abstract"},
	RoleIntroduction:     {"introduction"},
	RoleMethod:           {"material", "method"},
	RoleResults:          {"result"},
	RoleDiscussion:       {"discussion"},
	RoleAcknowledgements: {"acknowledgements"},
	RoleReferences:       {"references"},
}

var (
	// ErrUnknownFilter is returned for a filter without a recognized rule.
	ErrUnknownFilter = errors.New("unrecognized filter type")

	// ErrCompletionUnavailable is returned when a completion filter is
	// enabled but no completion backend exists.
	ErrCompletionUnavailable = errors.New("completion filters are not implemented")

	// ErrInvalidFilter is returned by Filter.Validate for malformed filters.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Targets names the parts of a record a filter scans.
type Targets struct {
	// Sections are matched against a section and all of its ancestors.
	Sections []Role

	// Figures and Tables scan every present caption.
	Figures bool
	Tables  bool

	// Metadata lists metadata keys to scan.
	Metadata []string
}

// Rule is the matching behaviour of a filter. The set of rules is closed:
// Pattern, Source, Categories, Custom and Completion.
type Rule interface {
	rule()
}

// Pattern emits one finding per match, carrying the matched text.
type Pattern struct {
	Regexp *regexp.Regexp
}

// Source emits at most one finding per scanned text, for the first match,
// with no data. It records that a value exists somewhere in non-text form.
type Source struct {
	Regexp *regexp.Regexp
}

// Category is one labelled entry of a Categories rule. A nil Regexp marks
// the default label.
type Category struct {
	Label  string
	Regexp *regexp.Regexp
}

// Categories emits one finding whose data is the slash-joined labels of
// every matching category, located at the first match in declaration order.
// Without a match it falls back to the default label at (0,0), or emits
// nothing when there is no default.
type Categories []Category

// Hit is a match reported by a Custom rule. Start and End are byte offsets
// into ScanText.Text; the engine maps them to the original text.
type Hit struct {
	Data       *string
	Start, End int
}

// ScanText is the input given to a Custom rule. Text is what the other
// rules scan; Raw is the untransformed source and Ledger maps Text offsets
// back to Raw.
type ScanText struct {
	Raw    string
	Text   string
	Ledger span.Ledger
}

// Custom delegates matching to a function.
type Custom func(in ScanText) []Hit

// Completion asks an external completion service. No backend exists: an
// enabled completion filter is a configuration error and a disabled one is
// skipped.
type Completion struct {
	Prompt string
}

func (Pattern) rule()    {}
func (Source) rule()     {}
func (Categories) rule() {}
func (Custom) rule()     {}
func (Completion) rule() {}

// Filter is one named identification rule.
type Filter struct {
	Title   string
	Targets Targets
	Rule    Rule

	// SampleAssociated findings get sample -1 instead of nil.
	SampleAssociated bool

	// Expanding findings carry a "name, value" table as data.
	Expanding bool

	Description types.Description
}

// Validate checks that f has a title, a known rule with its regular
// expressions set, at most one default category, and known targets.
func (f Filter) Validate() error {
	if f.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidFilter)
	}
	switch r := f.Rule.(type) {
	case Pattern:
		if r.Regexp == nil {
			return fmt.Errorf("%w %q: pattern has no expression", ErrInvalidFilter, f.Title)
		}
	case Source:
		if r.Regexp == nil {
			return fmt.Errorf("%w %q: source has no expression", ErrInvalidFilter, f.Title)
		}
	case Categories:
		defaults := 0
		for _, c := range r {
			if c.Regexp == nil {
				defaults++
			}
		}
		if defaults > 1 {
			return fmt.Errorf("%w %q: %d default categories", ErrInvalidFilter, f.Title, defaults)
		}
	case Custom:
		if r == nil {
			return fmt.Errorf("%w %q: custom rule has no function", ErrInvalidFilter, f.Title)
		}
	case Completion:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFilter, f.Title)
	}

	for _, role := range f.Targets.Sections {
		if _, ok := RoleKeywords[role]; !ok {
			return fmt.Errorf("%w %q: unknown section role %q", ErrInvalidFilter, f.Title, role)
		}
	}
	for _, key := range f.Targets.Metadata {
		switch key {
		case types.MetaTitle, types.MetaPublishDate, types.MetaAuthors, types.MetaAbstract:
		default:
			return fmt.Errorf("%w %q: unknown metadata key %q", ErrInvalidFilter, f.Title, key)
		}
	}
	return nil
}

// anyOf builds a regular expression matching any of alternatives.
func anyOf(flags string, alternatives ...string) *regexp.Regexp {
	quoted := make([]string, len(alternatives))
	for i, a := range alternatives {
		quoted[i] = regexp.QuoteMeta(a)
	}
	return regexp.MustCompile(flags + "(?:" + strings.Join(quoted, "|") + ")")
}

// DefaultFilters returns the built-in filter vocabulary for studies of
// antibiotic resistance genes in environmental samples.
func DefaultFilters() []Filter {
	return []Filter{
		{
			Title:   "article title",
			Targets: Targets{Metadata: []string{types.MetaTitle}},
			Rule:    Pattern{Regexp: regexp.MustCompile(`(?s).+`)},
			Description: types.Description{
				Info: "The title of the article",
				Data: "a string",
			},
		},
		{
			Title:   "publish date",
			Targets: Targets{Metadata: []string{types.MetaPublishDate}},
			Rule:    Pattern{Regexp: regexp.MustCompile(`(?s).+`)},
			Description: types.Description{
				Info: "The publish date of the article",
				Data: "any date format",
			},
		},
		{
			// Articles that do not mention multiplexing are assumed singleplex.
			Title:   "method",
			Targets: Targets{Sections: []Role{RoleMethod}},
			Rule: Categories{
				{Label: "multiplex", Regexp: anyOf("(?i)", "multiplex")},
				{Label: "singleplex"},
			},
			Description: types.Description{
				Info: "The qPCR method used",
				Data: `"multiplex" or "singleplex"`,
			},
		},
		{
			Title:            "sample year",
			Targets:          Targets{Sections: []Role{RoleMethod}},
			Rule:             Pattern{Regexp: regexp.MustCompile(`\b(19|20)[0-9]{2}\b`)},
			SampleAssociated: true,
			Description: types.Description{
				Info: "The sample year",
				Data: "four consecutive digits",
			},
		},
		{
			Title:   "polluted",
			Targets: Targets{Sections: []Role{RoleMethod}},
			Rule: Categories{
				{Label: "yes", Regexp: anyOf("(?i)", "pollution", "polluted", "contamination", "contaminated")},
				{Label: "no"},
			},
			SampleAssociated: true,
			Description: types.Description{
				Info: "If sample is polluted or not",
				Data: `"yes" or "no"`,
			},
		},
		{
			Title:   "sample type",
			Targets: Targets{Sections: []Role{RoleMethod}},
			Rule: Categories{
				{Label: "soil", Regexp: anyOf("(?i)", "soil", "soils", "Clay")},
				{Label: "manure", Regexp: anyOf("(?i)", "manure", "guano", "feces")},
				{Label: "sewage", Regexp: anyOf("(?i)", "sewage", "waste water")},
			},
			SampleAssociated: true,
			Description: types.Description{
				Info: "The type of sample",
				Data: `"soil", "manure" or "sewage"`,
			},
		},
		{
			// Data is filled in later from digitized charts, one
			// "NAME, VALUE" row per gene.
			Title:            "gene abundance",
			Targets:          Targets{Figures: true, Tables: true},
			Rule:             Source{Regexp: regexp.MustCompile(`\b(?:abundance|Abundance|ARG|ARGs)\b`)},
			SampleAssociated: true,
			Expanding:        true,
			Description: types.Description{
				Info: "The abundance of antibiotic resistance genes",
				Data: "A CSV with one row per antibiotic in the format NAME, VALUE",
			},
		},
	}
}
