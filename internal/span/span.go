// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package span strips parenthetical references from text and records the
// offset corrections needed to map positions in the rewritten text back to
// the original.
package span

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// referenceRe matches one innermost parenthetical group.
var referenceRe = regexp.MustCompile(`\([^()]*\)`)

// Entry records one removed span: Offset is where the removal happened in
// the rewritten text and Removed is the number of bytes taken out there.
type Entry struct {
	Offset  int
	Removed int
}

// Ledger is an ordered list of removals, ascending by Offset. The zero
// value is an empty ledger that leaves offsets unchanged.
type Ledger []Entry

// Correct maps an offset in the rewritten text to the original text by
// adding the length of every removal at or before it.
func (l Ledger) Correct(o int) int {
	shift := 0
	for _, e := range l {
		if e.Offset > o {
			break
		}
		shift += e.Removed
	}
	return o + shift
}

// CorrectSpan maps a match [start, end) in the rewritten text back to the
// original text. The shift is chosen by start, since a match never contains a
// removed span.
func (l Ledger) CorrectSpan(start, end int) (int, int) {
	shift := l.Correct(start) - start
	return start + shift, end + shift
}

// StripReferences removes every parenthetical group that contains no nested
// parentheses and returns the rewritten text with its ledger.
func StripReferences(text string) (string, Ledger) {
	matches := referenceRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	ledger := make(Ledger, 0, len(matches))
	prev := 0
	for _, m := range matches {
		b.WriteString(text[prev:m[0]])
		prev = m[1]
		ledger = append(ledger, Entry{Offset: b.Len(), Removed: m[1] - m[0]})
	}
	b.WriteString(text[prev:])
	return b.String(), ledger
}

// RuneOffsets converts byte offsets into text to character offsets.
// Offsets past the end of text clamp to the character count.
func RuneOffsets(text string, offsets ...int) []int {
	order := make([]int, len(offsets))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return offsets[order[a]] < offsets[order[b]] })

	out := make([]int, len(offsets))
	pos, count := 0, 0
	for _, idx := range order {
		target := offsets[idx]
		if target > len(text) {
			target = len(text)
		}
		for pos < target {
			_, size := utf8.DecodeRuneInString(text[pos:])
			pos += size
			count++
		}
		out[idx] = count
	}
	return out
}
