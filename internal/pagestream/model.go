// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pagestream reconstructs a structural record from a rendered
// document: styled text runs grouped into lines and blocks per page, plus the
// image placements on each page. Coordinates are in points with the origin at
// the top-left corner of the page.
package pagestream

import "strings"

// Style is a bit set of visual emphasis flags on a text run.
type Style uint8

const (
	StyleBold Style = 1 << iota
	StyleItalic
)

// Emphasized reports whether the run is bold or italic.
func (s Style) Emphasized() bool { return s&(StyleBold|StyleItalic) != 0 }

// Span is a run of text sharing one font.
type Span struct {
	Text  string
	Font  string
	Size  float64
	Style Style
}

// Line is a sequence of spans on one baseline, in reading order.
type Line struct {
	Spans []Span
}

// Text returns the concatenated span text.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l.Spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Block is a group of vertically adjacent lines.
type Block struct {
	Lines []Line
}

// Rect is an axis-aligned box given by its top-left and bottom-right corners.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Inset grows r by d on every side (shrinks it for negative d).
func (r Rect) Inset(d float64) Rect {
	return Rect{X0: r.X0 - d, Y0: r.Y0 - d, X1: r.X1 + d, Y1: r.Y1 + d}
}

// Intersect returns the overlap of r and o, or the zero Rect when they are
// disjoint.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X0: max(r.X0, o.X0),
		Y0: max(r.Y0, o.Y0),
		X1: min(r.X1, o.X1),
		Y1: min(r.Y1, o.Y1),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }

// corners returns the four corner points clockwise from the top-left.
func (r Rect) corners() [4][2]float64 {
	return [4][2]float64{{r.X0, r.Y0}, {r.X1, r.Y0}, {r.X1, r.Y1}, {r.X0, r.Y1}}
}

// ImagePlacement is one drawn image: where it lands on the page and a digest
// of its encoded content.
type ImagePlacement struct {
	BBox   Rect
	Digest string
}

// Page is one page of the document. Number is 1-based.
type Page struct {
	Number int
	Width  float64
	Height float64
	Blocks []Block
	Images []ImagePlacement
}

// Lines returns the trimmed text of every line on the page in reading order.
func (p Page) Lines() []string {
	var out []string
	for _, b := range p.Blocks {
		for _, l := range b.Lines {
			out = append(out, strings.TrimSpace(l.Text()))
		}
	}
	return out
}

// Bounds returns the page rectangle.
func (p Page) Bounds() Rect { return Rect{X1: p.Width, Y1: p.Height} }

// Document is a rendered document as a sequence of pages.
type Document struct {
	Pages []Page
}
