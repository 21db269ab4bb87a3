// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markup

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/sciextract/pkg/types"
)

const sampleArticle = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE article PUBLIC "-//NLM//DTD JATS (Z39.96) Journal Archiving and Interchange DTD v1.2 20190208//EN" "JATS-archivearticle1.dtd">
<article xmlns:xlink="http://www.w3.org/1999/xlink">
  <front><article-meta><title-group><article-title>Resistance genes in soil</article-title></title-group></article-meta></front>
  <body>
    <sec><title>Introduction</title><p>Intro text.</p></sec>
    <sec>
      <title>Materials and methods</title>
      <p>Method overview.</p>
      <sec><title>Sampling</title><p>Soil was <italic>sampled</italic> in 2015.</p></sec>
    </sec>
    <sec><title> </title><p>Untitled.</p></sec>
  </body>
  <back>
    <fig id="f1"><label>Fig. 1</label><caption><p>ARG abundance per site.</p></caption><graphic xlink:href="fig1"/></fig>
    <fig id="f2"><label>Fig. 2</label><caption><p>No graphic.</p></caption></fig>
    <table-wrap id="t1">
      <label>Table 1</label>
      <caption><p>Sites</p></caption>
      <table><tr><th>Site</th><th>Year</th></tr><tr><td>A</td><td>2015</td></tr></table>
    </table-wrap>
    <table-wrap id="t2"><label>Table 2</label></table-wrap>
  </back>
</article>`

type recordingConverter struct {
	calls [][2]string
	err   error
}

func (r *recordingConverter) Convert(_ context.Context, base, dst string) error {
	r.calls = append(r.calls, [2]string{base, dst})
	return r.err
}

func parseString(t *testing.T, s string) *Node {
	t.Helper()
	root, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return root
}

func TestExtractSections(t *testing.T) {
	rec, err := Extract(context.Background(), parseString(t, sampleArticle), Options{Article: "a1"})
	require.NoError(t, err)
	require.NoError(t, rec.Validate())

	require.Len(t, rec.Sections, 4)

	// Siblings are visited last first, so the untitled section is stored first.
	assert.Nil(t, rec.Sections[0].Name)
	assert.Equal(t, "Untitled.", rec.Sections[0].Content)
	assert.Nil(t, rec.Sections[0].Parent)

	assert.Equal(t, "Materials and methods", rec.Sections[1].Title())
	assert.Equal(t, "Method overview.\n\nSoil was sampled in 2015.", rec.Sections[1].Content)
	assert.Nil(t, rec.Sections[1].Parent)

	assert.Equal(t, "Sampling", rec.Sections[2].Title())
	assert.Equal(t, "Soil was sampled in 2015.", rec.Sections[2].Content)
	require.NotNil(t, rec.Sections[2].Parent)
	assert.Equal(t, 1, *rec.Sections[2].Parent)

	assert.Equal(t, "Introduction", rec.Sections[3].Title())
	assert.Nil(t, rec.Sections[3].Parent)

	assert.Equal(t, []int{3, 1, 2, 0}, rec.SectionOrder, "parents precede sub-sections")
}

func TestExtractSectionOrderIsReadingOrder(t *testing.T) {
	const nested = `<article><body>
		<sec><title>A</title><p>a</p>
			<sec><title>A1</title><p>a1</p>
				<sec><title>A1a</title></sec>
			</sec>
			<sec><title>A2</title></sec>
		</sec>
		<sec><title>B</title><sec><title>B1</title></sec></sec>
	</body></article>`

	rec, err := Extract(context.Background(), parseString(t, nested), Options{})
	require.NoError(t, err)
	require.NoError(t, rec.Validate())

	var titles []string
	for _, id := range rec.SectionOrder {
		titles = append(titles, rec.Sections[id].Title())
	}
	assert.Equal(t, []string{"A", "A1", "A1a", "A2", "B", "B1"}, titles)

	seen := map[int]bool{}
	for _, id := range rec.SectionOrder {
		if p := rec.Sections[id].Parent; p != nil {
			assert.True(t, seen[*p], "section %q listed before its parent", rec.Sections[id].Title())
		}
		seen[id] = true
	}
}

func TestExtractScopedContent(t *testing.T) {
	rec, err := Extract(context.Background(), parseString(t, sampleArticle), Options{ScopedContent: true})
	require.NoError(t, err)
	assert.Equal(t, "Method overview.", rec.Sections[1].Content)
	assert.Equal(t, "Soil was sampled in 2015.", rec.Sections[2].Content)
}

func TestExtractDeepNestingIsAcyclic(t *testing.T) {
	var b strings.Builder
	b.WriteString("<article><body>")
	const depth = 200
	for i := 0; i < depth; i++ {
		b.WriteString("<sec><title>Level</title><p>")
		b.WriteString(strings.Repeat("x", i%5+1))
		b.WriteString("</p>")
	}
	b.WriteString(strings.Repeat("</sec>", depth))
	b.WriteString("</body></article>")

	rec, err := Extract(context.Background(), parseString(t, b.String()), Options{ScopedContent: true})
	require.NoError(t, err)
	require.Len(t, rec.Sections, depth)
	require.NoError(t, rec.Validate())

	for i, s := range rec.Sections {
		chain, err := rec.Ancestors(i)
		require.NoError(t, err)
		assert.Len(t, chain, i+1)
		if i > 0 {
			assert.Equal(t, i-1, *s.Parent)
		}
	}
}

func TestExtractFigures(t *testing.T) {
	conv := &recordingConverter{}
	opts := Options{
		Article:   "a1",
		AssetDir:  "/downloads/a1",
		ExportDir: "/export",
		Assets:    conv,
	}
	rec, err := Extract(context.Background(), parseString(t, sampleArticle), opts)
	require.NoError(t, err)

	require.Len(t, rec.Figures, 1)
	fig := rec.Figures[0]
	assert.Equal(t, "Fig. 1", *fig.Title)
	assert.Equal(t, "ARG abundance per site.", *fig.Caption)
	assert.Equal(t, filepath.Join("/export", "a1-fig1.png"), fig.Path)
	assert.Equal(t, [][2]string{{filepath.Join("/downloads/a1", "fig1"), fig.Path}}, conv.calls)
}

func TestExtractFigureConversionFailureDropsFigure(t *testing.T) {
	conv := &recordingConverter{err: errors.New("no asset")}
	rec, err := Extract(context.Background(), parseString(t, sampleArticle), Options{Article: "a1", Assets: conv})
	require.NoError(t, err)
	assert.Empty(t, rec.Figures)
	assert.Len(t, rec.Sections, 4, "figure failures do not affect sections")
}

func TestExtractSkipFigures(t *testing.T) {
	conv := &recordingConverter{}
	rec, err := Extract(context.Background(), parseString(t, sampleArticle), Options{SkipFigures: true, Assets: conv})
	require.NoError(t, err)
	assert.Empty(t, rec.Figures)
	assert.Empty(t, conv.calls)
}

func TestExtractTables(t *testing.T) {
	rec, err := Extract(context.Background(), parseString(t, sampleArticle), Options{})
	require.NoError(t, err)
	require.Len(t, rec.Tables, 2)

	assert.Equal(t, "Table 1", *rec.Tables[0].Title)
	assert.Equal(t, "Sites", *rec.Tables[0].Caption)
	assert.Equal(t, "Site | Year\n-----|-----\nA    | 2015", rec.Tables[0].Content)

	assert.Equal(t, "Table 2", *rec.Tables[1].Title)
	assert.Nil(t, rec.Tables[1].Caption)
	assert.Equal(t, TableParseFailure, rec.Tables[1].Content)
}

func TestExtractNoBody(t *testing.T) {
	_, err := Extract(context.Background(), parseString(t, `<article><front/></article>`), Options{})
	assert.ErrorIs(t, err, ErrNoBody)
}

func TestExtractEmptyBody(t *testing.T) {
	rec, err := Extract(context.Background(), parseString(t, `<article><body><p>Loose text.</p></body></article>`), Options{})
	require.NoError(t, err)
	assert.Empty(t, rec.Sections)
	assert.Equal(t, []int{}, rec.SectionOrder)
	assert.Equal(t, types.Metadata{}, rec.Metadata)
}
