// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfdoc

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/sciextract/internal/pagestream"
)

// Layout tolerances, as fractions of the font size.
const (
	rowTolerance = 0.35
	wordGap      = 0.25
	blockGap     = 1.6
)

// row is a set of glyphs sharing a baseline.
type row struct {
	y     float64
	size  float64
	texts []pdf.Text
}

// groupIntoRows buckets glyphs by baseline, top of the page first, and sorts
// each row left to right.
func groupIntoRows(texts []pdf.Text) []row {
	var rows []row
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" && t.S != " " {
			continue
		}
		tol := math.Max(1, rowTolerance*t.FontSize)
		found := false
		for i := range rows {
			if math.Abs(rows[i].y-t.Y) <= tol {
				rows[i].texts = append(rows[i].texts, t)
				rows[i].size = math.Max(rows[i].size, t.FontSize)
				found = true
				break
			}
		}
		if !found {
			rows = append(rows, row{y: t.Y, size: t.FontSize, texts: []pdf.Text{t}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })
	for _, r := range rows {
		sort.SliceStable(r.texts, func(i, j int) bool { return r.texts[i].X < r.texts[j].X })
	}
	return rows
}

// toLine joins the glyphs of a row into spans, starting a new span whenever
// the font changes and inserting a space across horizontal gaps.
func toLine(r row) pagestream.Line {
	var line pagestream.Line
	var cur *pagestream.Span
	var b strings.Builder
	lastEnd := math.Inf(-1)

	flush := func() {
		if cur != nil {
			cur.Text = b.String()
			line.Spans = append(line.Spans, *cur)
		}
		cur = nil
		b.Reset()
	}

	for _, t := range r.texts {
		gap := t.X - lastEnd
		if cur == nil || cur.Font != t.Font {
			flush()
			cur = &pagestream.Span{Font: t.Font, Size: t.FontSize, Style: styleOf(t.Font)}
			if len(line.Spans) > 0 && gap > wordGap*t.FontSize && !strings.HasSuffix(line.Spans[len(line.Spans)-1].Text, " ") {
				b.WriteString(" ")
			}
		} else if gap > wordGap*t.FontSize && !strings.HasSuffix(b.String(), " ") && t.S != " " {
			b.WriteString(" ")
		}
		b.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	flush()
	return line
}

// layoutRows turns rows into blocks, splitting where the vertical distance
// between consecutive baselines exceeds the usual line spacing.
func layoutRows(rows []row) []pagestream.Block {
	var blocks []pagestream.Block
	var cur pagestream.Block
	prevY, prevSize := 0.0, 0.0
	for i, r := range rows {
		if i > 0 && prevY-r.y > blockGap*math.Max(prevSize, r.size) {
			blocks = append(blocks, cur)
			cur = pagestream.Block{}
		}
		cur.Lines = append(cur.Lines, toLine(r))
		prevY, prevSize = r.y, r.size
	}
	if len(cur.Lines) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

// layoutPage converts the glyphs of one page into blocks of styled lines.
func layoutPage(texts []pdf.Text) []pagestream.Block {
	return layoutRows(groupIntoRows(texts))
}

var (
	boldMarkers   = []string{"bold", "black", "heavy", "semibold", "demi"}
	italicMarkers = []string{"italic", "oblique"}
)

// styleOf derives emphasis flags from a font name such as
// "ABCDEF+Times-BoldItalic".
func styleOf(font string) pagestream.Style {
	name := strings.ToLower(font)
	if i := strings.IndexByte(name, '+'); i >= 0 {
		name = name[i+1:]
	}
	var s pagestream.Style
	for _, m := range boldMarkers {
		if strings.Contains(name, m) {
			s |= pagestream.StyleBold
			break
		}
	}
	for _, m := range italicMarkers {
		if strings.Contains(name, m) {
			s |= pagestream.StyleItalic
			break
		}
	}
	return s
}
