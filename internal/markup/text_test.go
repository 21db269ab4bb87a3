// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToText(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{
			name: "inline markup degrades to text",
			xml:  `<p>Copies of <italic>sul1</italic> per <sup>16</sup>S rRNA.</p>`,
			want: "Copies of sul1 per 16S rRNA.",
		},
		{
			name: "whitespace collapses",
			xml:  "<p>a\n   b\t\tc</p>",
			want: "a b c",
		},
		{
			name: "paragraphs are blank-line separated",
			xml:  `<caption><title>Fig title</title><p>First.</p><p>Second.</p></caption>`,
			want: "Fig title\n\nFirst.\n\nSecond.",
		},
		{
			name: "markup-like text stays escaped",
			xml:  `<p>p &lt; 0.05 &amp; n &gt; 3</p>`,
			want: "p < 0.05 & n > 3",
		},
		{
			name: "line break",
			xml:  `<p>one<break/>two</p>`,
			want: "one\ntwo",
		},
		{
			name: "table with colspan",
			xml: `<table><thead><tr><th colspan="2">Gene</th><th>Copies</th></tr></thead>` +
				`<tbody><tr><td>sul1</td><td>a</td><td>1.2</td></tr></tbody></table>`,
			want: "Gene |     | Copies\n-----|-----|-------\nsul1 | a   | 1.2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(strings.NewReader(tt.xml))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ToText(root))
		})
	}
}

func TestToTextNormalizesNFC(t *testing.T) {
	root, err := Parse(strings.NewReader("<p>Bo\u0308den</p>"))
	require.NoError(t, err)
	assert.Equal(t, "B\u00f6den", ToText(root))
}

func TestNodeQueries(t *testing.T) {
	root, err := Parse(strings.NewReader(`<a><b id="1"><c/><b id="2"/></b><c/></a>`))
	require.NoError(t, err)

	assert.Len(t, root.ChildrenNamed("b"), 1)
	assert.Len(t, root.FindAll("b"), 2)
	assert.Len(t, root.FindAll("c"), 2)
	assert.Len(t, root.FindAllOutside("c", "b"), 1)

	id, ok := root.Find("b").Attribute("id")
	assert.True(t, ok)
	assert.Equal(t, "1", id)
	assert.Nil(t, root.Child("missing"))
}

func TestChildTextReportsPresence(t *testing.T) {
	root, err := Parse(strings.NewReader(`<body><sec><title/><label>  </label><p>Body</p></sec></body>`))
	require.NoError(t, err)
	sec := root.Find("sec")
	require.NotNil(t, sec)

	text, ok := sec.ChildText("title")
	assert.True(t, ok, "an empty child is still present")
	assert.Empty(t, text)

	_, ok = sec.ChildText("caption")
	assert.False(t, ok)

	assert.Nil(t, sectionTitle(sec), "blank titles are dropped")
	label := labelText(sec)
	require.NotNil(t, label)
	assert.Empty(t, *label)
}
