// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markup

import (
	"fmt"
	"strings"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// blockElements are markup elements rendered as their own paragraph.
var blockElements = map[string]bool{
	"p": true, "title": true, "caption": true, "label": true, "sec": true,
	"list": true, "list-item": true, "def-list": true, "disp-quote": true,
	"boxed-text": true, "fig": true, "table-wrap-foot": true, "fn": true,
	"statement": true, "disp-formula": true, "ack": true, "abstract": true,
}

// tableElements keep their HTML names so the table renderer sees them.
var tableElements = map[string]bool{
	"table": true, "thead": true, "tbody": true, "tfoot": true,
	"tr": true, "th": true, "td": true, "colgroup": true, "col": true,
}

// ToText converts markup fragments to plain text. Paragraph-level elements
// become blank-line separated paragraphs and tables become padded pipe
// tables. The fragments are serialized to HTML and read back with an HTML
// parser, so inline markup of any kind degrades to its text.
func ToText(nodes ...*Node) string {
	var src strings.Builder
	for _, n := range nodes {
		writeHTML(&src, n)
	}

	ctx := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := xhtml.ParseFragment(strings.NewReader(src.String()), ctx)
	if err != nil {
		return norm.NFC.String(strings.TrimSpace(collapseSpace(Join(nodes))))
	}

	r := &textRenderer{}
	for _, n := range parsed {
		r.render(n)
	}
	r.flush()
	return norm.NFC.String(strings.Join(r.paragraphs, "\n\n"))
}

// Join concatenates the raw text of the given nodes.
func Join(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(n.Text())
	}
	return b.String()
}

// writeHTML serializes n as HTML, mapping markup element names onto the
// small set of HTML elements the text renderer understands.
func writeHTML(b *strings.Builder, n *Node) {
	if n.IsText() {
		b.WriteString(xhtml.EscapeString(n.Data))
		return
	}

	tag := "span"
	switch {
	case tableElements[n.Name]:
		tag = n.Name
	case blockElements[n.Name]:
		tag = "p"
	case n.Name == "break":
		b.WriteString("<br>")
		return
	}

	b.WriteString("<" + tag)
	if tag == "th" || tag == "td" {
		for _, key := range []string{"colspan", "rowspan"} {
			if v, ok := n.Attribute(key); ok {
				fmt.Fprintf(b, " %s=\"%s\"", key, xhtml.EscapeString(v))
			}
		}
	}
	b.WriteString(">")
	for _, c := range n.Children {
		writeHTML(b, c)
	}
	b.WriteString("</" + tag + ">")
}

type textRenderer struct {
	paragraphs []string
	current    strings.Builder
}

func (r *textRenderer) flush() {
	text := strings.TrimSpace(collapseSpace(r.current.String()))
	if text != "" {
		r.paragraphs = append(r.paragraphs, text)
	}
	r.current.Reset()
}

func (r *textRenderer) render(n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		r.current.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		return
	case xhtml.ElementNode:
		switch n.DataAtom {
		case atom.Table:
			r.flush()
			if t := renderTable(n); t != "" {
				r.paragraphs = append(r.paragraphs, t)
			}
			return
		case atom.Br:
			r.current.WriteString("\n")
			return
		case atom.P:
			r.flush()
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				r.render(c)
			}
			r.flush()
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.render(c)
	}
}

// collapseSpace folds runs of spaces and tabs into one space and trims
// spaces around newlines, keeping explicit line breaks.
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// renderTable renders an HTML table as a pipe table with padded columns. The
// first row is treated as the header.
func renderTable(table *xhtml.Node) string {
	var rows [][]string
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode && n.DataAtom == atom.Tr {
			var row []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == xhtml.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					cell := strings.Join(strings.Fields(cellText(c)), " ")
					row = append(row, cell)
					for span := colspan(c); span > 1; span-- {
						row = append(row, "")
					}
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	if len(rows) == 0 {
		return ""
	}

	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	widths := make([]int, cols)
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell), 3)
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		cells := make([]string, cols)
		for i := range cells {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, " | "), " "))
		b.WriteString("\n")
	}

	writeRow(rows[0])
	seps := make([]string, cols)
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	b.WriteString(strings.Join(seps, "-|-"))
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

func cellText(n *xhtml.Node) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == xhtml.ElementNode && n.DataAtom == atom.Br {
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func colspan(n *xhtml.Node) int {
	for _, a := range n.Attr {
		if a.Key == "colspan" {
			var span int
			if _, err := fmt.Sscanf(a.Val, "%d", &span); err == nil && span > 0 {
				return span
			}
		}
	}
	return 1
}
