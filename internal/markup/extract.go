// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markup reconstructs a structural record from JATS-style article
// markup: a section tree from nested sec elements, figures from fig elements,
// and tables from table-wrap elements.
package markup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/sciextract/internal/figure"
	"github.com/pdiddy/sciextract/pkg/types"
)

// TableParseFailure is stored as the content of a table whose inner table
// markup is missing.
const TableParseFailure = "Failed to parse table content"

// ErrNoBody is returned when the document has no body element.
var ErrNoBody = errors.New("no body element")

// AssetConverter writes the raw figure asset named base.<ext> to dst as an
// image artifact.
type AssetConverter interface {
	Convert(ctx context.Context, base, dst string) error
}

// Options configures markup extraction for one article.
type Options struct {
	// Article is the article identifier used to name figure artifacts.
	Article string

	// AssetDir holds the raw figure assets referenced by graphic elements.
	AssetDir string

	// ExportDir receives converted figure artifacts.
	ExportDir string

	// SkipFigures leaves Figures empty; the caller supplies them from the
	// rendered document instead.
	SkipFigures bool

	// ScopedContent collects only paragraphs that are not inside a nested
	// sec element. By default every paragraph under a section counts,
	// including those of its sub-sections.
	ScopedContent bool

	Assets AssetConverter
	Logger *slog.Logger
}

// ExtractFile parses the markup document at path and extracts it.
func ExtractFile(ctx context.Context, path string, opts Options) (*types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	root, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Extract(ctx, root, opts)
}

// Extract builds a record from a parsed document. Metadata is left empty.
// It returns ErrNoBody when the document has no body element.
func Extract(ctx context.Context, root *Node, opts Options) (*types.Record, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rec := &types.Record{
		Figures: []types.Figure{},
		Tables:  extractTables(root),
	}
	if !opts.SkipFigures {
		rec.Figures = extractFigures(ctx, root, opts, logger)
	}

	body := root
	if root.Name != "body" {
		body = root.Find("body")
	}
	if body == nil {
		return nil, ErrNoBody
	}
	rec.Sections, rec.SectionOrder = extractSections(body, opts.ScopedContent)
	return rec, nil
}

// workItem is one entry of the traversal stack. A leave item closes the
// section opened by the matching enter item.
type workItem struct {
	node  *Node
	leave bool
}

// extractSections walks the sec tree below body depth-first with an explicit
// stack. body itself is the synthetic root and is not stored; every sec
// element becomes a section whose parent is the enclosing sec, or nil at the
// top level. Sections are stored in visitation order, which visits siblings
// last first. The returned order is document reading order: each section
// precedes its sub-sections, and siblings keep their markup order.
func extractSections(body *Node, scoped bool) ([]types.Section, []int) {
	sections := []types.Section{}
	children := map[int][]int{}
	var headers []*string
	var uids []int

	stack := []workItem{{node: body}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.leave {
			headers = headers[:len(headers)-1]
			uids = uids[:len(uids)-1]
			continue
		}

		n := item.node
		headers = append(headers, sectionTitle(n))
		stack = append(stack, workItem{leave: true})
		for _, child := range n.ChildrenNamed("sec") {
			stack = append(stack, workItem{node: child})
		}

		uid := len(sections)
		uids = append(uids, uid)
		if len(headers) < 2 {
			continue
		}

		var parent *int
		key := -1
		if len(uids) > 2 {
			key = uids[len(uids)-2]
			parent = types.IntPtr(key)
		}
		children[key] = append(children[key], uid)

		paragraphs := n.FindAll("p")
		if scoped {
			paragraphs = n.FindAllOutside("p", "sec")
		}

		sections = append(sections, types.Section{
			Name:    headers[len(headers)-1],
			Content: ToText(paragraphs...),
			Parent:  parent,
		})
	}
	return sections, readingOrder(children)
}

// readingOrder lists section ids parent first. Sibling ids ascend in reverse
// document order, so pushing them in ascending order pops the first one first.
func readingOrder(children map[int][]int) []int {
	order := []int{}
	stack := append([]int(nil), children[-1]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)
		stack = append(stack, children[id]...)
	}
	return order
}

// sectionTitle returns the trimmed text of n's title child, or nil when the
// title is missing or blank.
func sectionTitle(n *Node) *string {
	text, ok := n.ChildText("title")
	if !ok {
		return nil
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	return &text
}

func extractFigures(ctx context.Context, root *Node, opts Options, logger *slog.Logger) []types.Figure {
	figures := []types.Figure{}
	for _, fig := range root.FindAll("fig") {
		graphic := fig.Find("graphic")
		var href string
		if graphic != nil {
			href, _ = graphic.Attribute("href")
		}
		if href == "" {
			id, _ := fig.Attribute("id")
			logger.Warn("figure has no graphic", "article", opts.Article, "figure", id)
			continue
		}

		dst := filepath.Join(opts.ExportDir, fmt.Sprintf("%s-%s.%s", opts.Article, filepath.Base(href), figure.Extension))
		if opts.Assets != nil {
			if err := opts.Assets.Convert(ctx, filepath.Join(opts.AssetDir, href), dst); err != nil {
				logger.Warn("dropping figure", "article", opts.Article, "href", href, "error", err)
				continue
			}
		}

		figures = append(figures, types.Figure{
			Title:   labelText(fig),
			Caption: captionText(fig),
			Path:    dst,
		})
	}
	return figures
}

func extractTables(root *Node) []types.Table {
	tables := []types.Table{}
	for _, wrap := range root.FindAll("table-wrap") {
		content := TableParseFailure
		if table := wrap.Find("table"); table != nil {
			content = ToText(table)
		}
		tables = append(tables, types.Table{
			Title:   labelText(wrap),
			Caption: captionText(wrap),
			Content: content,
		})
	}
	return tables
}

func labelText(n *Node) *string {
	text, ok := n.ChildText("label")
	if !ok {
		return nil
	}
	text = strings.TrimSpace(text)
	return &text
}

func captionText(n *Node) *string {
	c := n.Child("caption")
	if c == nil {
		return nil
	}
	text := ToText(c)
	return &text
}
