// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package identify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/pdiddy/sciextract/internal/span"
	"github.com/pdiddy/sciextract/pkg/types"
)

// Options configures an Engine.
type Options struct {
	// LocationMode selects the location encoding of emitted findings.
	LocationMode types.LocationMode

	// CompletionEnabled reports whether a completion service key is
	// configured. Completion filters are skipped when it is false.
	CompletionEnabled bool

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// Engine runs a fixed list of filters over records. It holds no per-article
// state and is safe for concurrent use.
type Engine struct {
	filters []Filter
	mode    types.LocationMode
	now     func() time.Time
	newID   func() string
}

// NewEngine validates filters and returns an engine that applies them in
// order. An enabled completion filter is rejected with
// ErrCompletionUnavailable.
func NewEngine(filters []Filter, opts Options) (*Engine, error) {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, ok := f.Rule.(Completion); ok && opts.CompletionEnabled {
			return nil, fmt.Errorf("filter %q: %w", f.Title, ErrCompletionUnavailable)
		}
	}

	e := &Engine{
		filters: filters,
		mode:    opts.LocationMode,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if e.mode == "" {
		e.mode = types.LocationRaw
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e, nil
}

var fold = cases.Fold()

// ResolveRoles maps each canonical role to the id of the section whose name
// contains one of the role's keywords. When several sections match a role
// the last one wins. Unmatched roles are absent from the result.
func ResolveRoles(rec *types.Record) map[Role]int {
	roles := map[Role]int{}
	for id, s := range rec.Sections {
		if s.Name == nil {
			continue
		}
		name := fold.String(*s.Name)
		for _, role := range Roles {
			for _, kw := range RoleKeywords[role] {
				if strings.Contains(name, fold.String(kw)) {
					roles[role] = id
					break
				}
			}
		}
	}
	return roles
}

// targeted reports whether section id or one of its ancestors is among ids.
func targeted(rec *types.Record, id int, ids map[int]bool) bool {
	if len(ids) == 0 {
		return false
	}
	chain, err := rec.Ancestors(id)
	if err != nil {
		return false
	}
	for _, a := range chain {
		if ids[a] {
			return true
		}
	}
	return false
}

// prepared is the scanned form of one section.
type prepared struct {
	text   string
	ledger span.Ledger
}

// Identify runs every filter over rec and returns the findings for article.
// Within each filter, figure captions come first, then table captions,
// metadata and sections in storage order. Section text has its
// parenthetical references removed before scanning; captions and metadata
// are scanned as is.
func (e *Engine) Identify(article string, rec *types.Record) ([]types.Finding, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("article %s: %w", article, err)
	}

	roles := ResolveRoles(rec)
	stripped := make([]prepared, len(rec.Sections))
	for id, s := range rec.Sections {
		text, ledger := span.StripReferences(s.Content)
		stripped[id] = prepared{text: text, ledger: ledger}
	}

	findings := []types.Finding{}
	for _, f := range e.filters {
		if _, ok := f.Rule.(Completion); ok {
			continue
		}
		emit := func(kind types.SourceKind, subtype types.Subtype, raw, text string, ledger span.Ledger) {
			for _, h := range scan(f.Rule, ScanText{Raw: raw, Text: text, Ledger: ledger}) {
				findings = append(findings, e.finding(f, article, kind, subtype, raw, h))
			}
		}

		if f.Targets.Figures {
			for id, fig := range rec.Figures {
				if fig.Caption != nil {
					emit(types.KindFigureCaption, types.IndexSubtype(id), *fig.Caption, *fig.Caption, nil)
				}
			}
		}
		if f.Targets.Tables {
			for id, tbl := range rec.Tables {
				if tbl.Caption != nil {
					emit(types.KindTableCaption, types.IndexSubtype(id), *tbl.Caption, *tbl.Caption, nil)
				}
			}
		}
		for _, key := range f.Targets.Metadata {
			if value, ok := rec.Metadata.Get(key); ok {
				emit(types.KindMetadata, types.KeySubtype(key), value, value, nil)
			}
		}
		if len(f.Targets.Sections) > 0 {
			ids := map[int]bool{}
			for _, role := range f.Targets.Sections {
				if id, ok := roles[role]; ok {
					ids[id] = true
				}
			}
			for id, s := range rec.Sections {
				if targeted(rec, id, ids) {
					emit(types.KindSection, types.IndexSubtype(id), s.Content, stripped[id].text, stripped[id].ledger)
				}
			}
		}
	}
	return findings, nil
}

// match is a hit located in the original text, in byte offsets.
type match struct {
	data        *string
	start, end  int
	placeholder bool
}

// scan applies rule to in and returns its hits mapped to in.Raw.
func scan(rule Rule, in ScanText) []match {
	locate := func(data *string, start, end int) match {
		s, e := in.Ledger.CorrectSpan(start, end)
		return match{data: data, start: s, end: e}
	}

	switch r := rule.(type) {
	case Pattern:
		var out []match
		for _, loc := range r.Regexp.FindAllStringIndex(in.Text, -1) {
			data := in.Text[loc[0]:loc[1]]
			out = append(out, locate(&data, loc[0], loc[1]))
		}
		return out

	case Source:
		loc := r.Regexp.FindStringIndex(in.Text)
		if loc == nil {
			return nil
		}
		return []match{locate(nil, loc[0], loc[1])}

	case Categories:
		var (
			labels []string
			first  []int
			def    *string
		)
		for _, c := range r {
			if c.Regexp == nil {
				label := c.Label
				def = &label
				continue
			}
			if loc := c.Regexp.FindStringIndex(in.Text); loc != nil {
				labels = append(labels, c.Label)
				if first == nil {
					first = loc
				}
			}
		}
		switch {
		case len(labels) > 0:
			data := strings.Join(labels, "/")
			return []match{locate(&data, first[0], first[1])}
		case def != nil:
			return []match{{data: def, placeholder: true}}
		}
		return nil

	case Custom:
		hits := r(in)
		out := make([]match, 0, len(hits))
		for _, h := range hits {
			out = append(out, locate(h.Data, h.Start, h.End))
		}
		return out
	}
	return nil
}

func (e *Engine) finding(f Filter, article string, kind types.SourceKind, subtype types.Subtype, raw string, m match) types.Finding {
	loc := types.Location{Mode: e.mode}
	if !m.placeholder {
		offsets := span.RuneOffsets(raw, m.start, m.end)
		loc.Start, loc.End = offsets[0], offsets[1]
	}

	var sample *int
	if f.SampleAssociated {
		sample = types.IntPtr(types.SampleIndeterminate)
	}

	return types.Finding{
		Title:     f.Title,
		Data:      m.data,
		Sample:    sample,
		Expanding: f.Expanding,
		Stamp:     e.now().Format(time.RFC3339),
		UUID:      e.newID(),
		Source: types.Source{
			Article:  article,
			Kind:     kind,
			Subtype:  subtype,
			Location: loc,
		},
		Description: f.Description,
	}
}
