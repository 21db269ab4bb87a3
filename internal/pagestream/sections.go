// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pagestream

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/pdiddy/sciextract/pkg/types"
)

// RootSection is the name of the synthetic section holding text that appears
// before the first recognized header.
const RootSection = types.RootSectionName

// HeaderSimilarity is the minimum similarity ratio for a line to count as a
// running page header.
const HeaderSimilarity = 0.9

// KnownHeaders are section names recognized without a numbering prefix.
var KnownHeaders = []string{
	"abstract:", "abstract", "introduction", "materials and methods", "method",
	"results", "results and discussion", "discussion", "acknowledgements",
	"references",
}

var fold = cases.Fold()

func normalizeHeader(s string) string {
	return fold.String(strings.Join(strings.Fields(s), " "))
}

var knownHeaders = func() map[string]bool {
	m := make(map[string]bool, len(KnownHeaders))
	for _, h := range KnownHeaders {
		m[normalizeHeader(h)] = true
	}
	return m
}()

// IsKnownHeader reports whether text names a known section, ignoring case and
// surrounding or repeated whitespace.
func IsKnownHeader(text string) bool {
	return knownHeaders[normalizeHeader(text)]
}

// DetectHeaderLines returns how many leading lines of every page form a
// running header. The first page is ignored since it usually carries a
// different header. Line k is a header line while the k-th line of every
// remaining page is similar to that of the second page. Documents with fewer
// than three pages have no running header.
func DetectHeaderLines(doc *Document) int {
	if len(doc.Pages) < 3 {
		return 0
	}

	pages := make([][]string, 0, len(doc.Pages)-1)
	for _, p := range doc.Pages[1:] {
		pages = append(pages, p.Lines())
	}

	for k := 0; ; k++ {
		for _, lines := range pages {
			if k >= len(lines) {
				return k
			}
		}
		ref := pages[0][k]
		for _, lines := range pages[1:] {
			if Ratio(ref, lines[k]) <= HeaderSimilarity {
				return k
			}
		}
	}
}

// Numbering is the parsed numeric prefix of a header such as "2.1. Methods".
type Numbering []int

// Key returns the map key of the numbering path, e.g. "2-1".
func (n Numbering) Key() string {
	parts := make([]string, len(n))
	for i, v := range n {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "-")
}

// Parent returns the numbering one level up.
func (n Numbering) Parent() Numbering {
	if len(n) == 0 {
		return nil
	}
	return n[:len(n)-1]
}

// ParseNumbering reads a leading digit(.digit)* prefix from text. It succeeds
// only when at least one dot-terminated number is followed by non-blank title
// text. A trailing number without a dot ("2.1 Title") counts as the last
// component.
func ParseNumbering(text string) (Numbering, bool) {
	var parts Numbering
	pending := -1
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	for i, c := range text {
		switch {
		case c == '.':
			if pending < 0 {
				return nil, false
			}
			parts = append(parts, pending)
			pending = -1
		case c >= '0' && c <= '9':
			if pending < 0 {
				pending = 0
			}
			pending = pending*10 + int(c-'0')
		case len(parts) > 0:
			if strings.TrimSpace(text[i:]) == "" {
				return nil, false
			}
			if pending >= 0 {
				parts = append(parts, pending)
			}
			return parts, true
		default:
			return nil, false
		}
	}
	return nil, false
}

// classify decides whether span is a section header. It returns the header
// text and, for numbered headers, the numbering path.
func classify(span Span) (header string, numbering Numbering, ok bool) {
	if !span.Style.Emphasized() {
		return "", nil, false
	}
	if IsKnownHeader(span.Text) {
		ok = true
	}
	if n, numbered := ParseNumbering(span.Text); numbered {
		numbering, ok = n, true
	}
	if !ok {
		return "", nil, false
	}
	return strings.TrimSpace(span.Text), numbering, true
}

// sectionBuilder accumulates sections while walking the page stream in
// document order. numbered maps numbering keys to section ids and is local
// to one document.
type sectionBuilder struct {
	sections []types.Section
	order    []int
	current  int
	numbered map[string]int
}

func newSectionBuilder() *sectionBuilder {
	return &sectionBuilder{
		sections: []types.Section{{Name: types.StringPtr(RootSection)}},
		order:    []int{0},
		numbered: map[string]int{},
	}
}

func (b *sectionBuilder) appendText(s string) {
	b.sections[b.current].Content += s
}

// open switches the current section to header. A section with the same name
// is reopened rather than duplicated; the synthetic root is never reopened.
func (b *sectionBuilder) open(header string, numbering Numbering) {
	cur := &b.sections[b.current]
	cur.Content = strings.TrimSpace(cur.Content)

	existing := 0
	for i := 1; i < len(b.sections); i++ {
		if strings.TrimSpace(b.sections[i].Title()) == header {
			existing = i
		}
	}
	if existing > 0 {
		b.current = existing
		b.appendText("\n\n")
		return
	}

	var parent *int
	if len(numbering) > 0 {
		if id, ok := b.numbered[numbering.Parent().Key()]; ok {
			parent = types.IntPtr(id)
		}
		b.numbered[numbering.Key()] = len(b.sections)
	}

	b.current = len(b.sections)
	b.sections = append(b.sections, types.Section{Name: types.StringPtr(header), Parent: parent})
	b.order = append(b.order, b.current)
}

// BuildSections splits the text of doc into sections at emphasized header
// runs. The first skipLines lines of every page are running headers and are
// dropped. Section 0 is the synthetic root.
func BuildSections(doc *Document, skipLines int) ([]types.Section, []int) {
	b := newSectionBuilder()
	for _, page := range doc.Pages {
		lineCount := 0
		for _, block := range page.Blocks {
			for _, line := range block.Lines {
				if lineCount < skipLines {
					lineCount++
					continue
				}
				for _, span := range line.Spans {
					if header, numbering, ok := classify(span); ok {
						b.open(header, numbering)
						continue
					}
					b.appendText(span.Text + " ")
				}
			}
			b.appendText("\n\n")
		}
	}
	return b.sections, b.order
}
