// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SourceKind is the part of a record a finding was read from.
type SourceKind string

const (
	KindSection       SourceKind = "section"
	KindFigureCaption SourceKind = "figure caption"
	KindTableCaption  SourceKind = "table caption"
	KindMetadata      SourceKind = "metadata"
)

// SampleIndeterminate marks a finding that belongs to some sample which a
// downstream tool has yet to resolve.
const SampleIndeterminate = -1

// LocationMode selects how a Location is encoded on the wire.
type LocationMode string

const (
	// LocationRaw encodes offsets as plain integers.
	LocationRaw LocationMode = "raw"
	// LocationWidget encodes offsets as text-widget indices ("1.0+<n>c").
	LocationWidget LocationMode = "widget"
)

// ParseLocationMode accepts "raw"/"web" and "widget"/"native".
func ParseLocationMode(s string) (LocationMode, error) {
	switch strings.ToLower(s) {
	case "", "raw", "web":
		return LocationRaw, nil
	case "widget", "native":
		return LocationWidget, nil
	}
	return "", fmt.Errorf("unknown location mode %q: use raw or widget", s)
}

const widgetPrefix = "1.0+"

// FormatWidgetOffset renders a character offset as a text-widget index.
func FormatWidgetOffset(n int) string {
	return widgetPrefix + strconv.Itoa(n) + "c"
}

// ParseWidgetOffset converts a text-widget index back to a character offset.
func ParseWidgetOffset(s string) (int, error) {
	if !strings.HasPrefix(s, widgetPrefix) || !strings.HasSuffix(s, "c") {
		return 0, fmt.Errorf("malformed widget offset %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, widgetPrefix), "c"))
	if err != nil {
		return 0, fmt.Errorf("malformed widget offset %q: %w", s, err)
	}
	return n, nil
}

// Location is a character span in the original, untransformed source text.
// Mode only affects encoding; both encodings decode to the same offsets.
type Location struct {
	Start int
	End   int
	Mode  LocationMode
}

type rawLocation struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type widgetLocation struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON implements json.Marshaler.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.Mode == LocationWidget {
		return json.Marshal(widgetLocation{
			Start: FormatWidgetOffset(l.Start),
			End:   FormatWidgetOffset(l.End),
		})
	}
	return json.Marshal(rawLocation{Start: l.Start, End: l.End})
}

// UnmarshalJSON implements json.Unmarshaler and accepts either encoding.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, startMode, err := decodeOffset(raw["start"])
	if err != nil {
		return fmt.Errorf("location start: %w", err)
	}
	end, _, err := decodeOffset(raw["end"])
	if err != nil {
		return fmt.Errorf("location end: %w", err)
	}
	*l = Location{Start: start, End: end, Mode: startMode}
	return nil
}

func decodeOffset(msg json.RawMessage) (int, LocationMode, error) {
	if len(msg) == 0 {
		return 0, LocationRaw, nil
	}
	var n int
	if err := json.Unmarshal(msg, &n); err == nil {
		return n, LocationRaw, nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return 0, "", err
	}
	n, err := ParseWidgetOffset(s)
	return n, LocationWidget, err
}

// Subtype identifies the element within a kind: a section, figure, or table
// index, or a metadata key.
type Subtype struct {
	Index int
	Key   string
}

// IndexSubtype returns a Subtype addressing an indexed element.
func IndexSubtype(i int) Subtype { return Subtype{Index: i} }

// KeySubtype returns a Subtype addressing a metadata key.
func KeySubtype(k string) Subtype { return Subtype{Key: k} }

// String renders the subtype for display and storage.
func (s Subtype) String() string {
	if s.Key != "" {
		return s.Key
	}
	return strconv.Itoa(s.Index)
}

// MarshalJSON implements json.Marshaler.
func (s Subtype) MarshalJSON() ([]byte, error) {
	if s.Key != "" {
		return json.Marshal(s.Key)
	}
	return json.Marshal(s.Index)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Subtype) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Subtype{Index: n}
		return nil
	}
	var k string
	if err := json.Unmarshal(data, &k); err != nil {
		return fmt.Errorf("subtype: %w", err)
	}
	*s = Subtype{Key: k}
	return nil
}

// Source is the provenance of a finding.
type Source struct {
	Article  string     `json:"article"`
	Kind     SourceKind `json:"kind"`
	Subtype  Subtype    `json:"subtype"`
	Location Location   `json:"location"`
}

// Description documents what a filter looks for.
type Description struct {
	Info string `json:"info" yaml:"info"`
	Data string `json:"data" yaml:"data"`
}

// Finding is one identified piece of information with its provenance.
//
// Sample is nil for article-wide findings, SampleIndeterminate for findings
// tied to an unresolved sample, and a sample number otherwise. When Expanding
// is set, Data holds a two-column "name, value" table, one row per line.
type Finding struct {
	Title       string      `json:"title"`
	Data        *string     `json:"data"`
	Sample      *int        `json:"sample"`
	Expanding   bool        `json:"expanding"`
	Stamp       string      `json:"stamp"`
	UUID        string      `json:"uuid"`
	Source      Source      `json:"source"`
	Description Description `json:"description"`
}
