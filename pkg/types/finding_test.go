// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocationMode(t *testing.T) {
	for in, want := range map[string]LocationMode{
		"":       LocationRaw,
		"raw":    LocationRaw,
		"web":    LocationRaw,
		"Widget": LocationWidget,
		"native": LocationWidget,
	} {
		got, err := ParseLocationMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLocationMode("tk")
	assert.Error(t, err)
}

func TestWidgetOffset(t *testing.T) {
	assert.Equal(t, "1.0+42c", FormatWidgetOffset(42))

	n, err := ParseWidgetOffset("1.0+42c")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	for _, bad := range []string{"42", "1.0+c", "1.0+4x2c", "2.0+4c"} {
		_, err := ParseWidgetOffset(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocationJSON(t *testing.T) {
	raw, err := json.Marshal(Location{Start: 3, End: 9})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":3,"end":9}`, string(raw))

	widget, err := json.Marshal(Location{Start: 3, End: 9, Mode: LocationWidget})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"1.0+3c","end":"1.0+9c"}`, string(widget))

	var fromRaw, fromWidget Location
	require.NoError(t, json.Unmarshal(raw, &fromRaw))
	require.NoError(t, json.Unmarshal(widget, &fromWidget))
	assert.Equal(t, fromRaw.Start, fromWidget.Start)
	assert.Equal(t, fromRaw.End, fromWidget.End)
	assert.Equal(t, LocationRaw, fromRaw.Mode)
	assert.Equal(t, LocationWidget, fromWidget.Mode)

	var bad Location
	assert.Error(t, json.Unmarshal([]byte(`{"start":"3","end":4}`), &bad))
}

func TestSubtypeJSON(t *testing.T) {
	data, err := json.Marshal(Source{Article: "PMC1", Kind: KindMetadata, Subtype: KeySubtype(MetaTitle)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"article":"PMC1","kind":"metadata","subtype":"title","location":{"start":0,"end":0}}`, string(data))

	var src Source
	require.NoError(t, json.Unmarshal([]byte(`{"article":"PMC1","kind":"section","subtype":4,"location":{"start":1,"end":2}}`), &src))
	assert.Equal(t, IndexSubtype(4), src.Subtype)
	assert.Equal(t, "4", src.Subtype.String())
}

func TestFindingNullables(t *testing.T) {
	data, err := json.Marshal(Finding{Title: "article title"})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Nil(t, m["data"])
	assert.Nil(t, m["sample"])
	assert.Contains(t, m, "sample")
}
