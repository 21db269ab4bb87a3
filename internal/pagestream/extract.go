// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pagestream

import (
	"context"
	"errors"
	"strings"

	"github.com/pdiddy/sciextract/pkg/types"
)

// ErrNoContent is returned for documents without any text, such as scanned
// pages that were never run through OCR.
var ErrNoContent = errors.New("no text content")

// Extract builds a record from doc: sections from the page text with running
// headers removed, and figures rendered through r. Tables are not recovered
// from rendered pages. Metadata is left empty.
func Extract(ctx context.Context, doc *Document, r Rasterizer, opts FigureOptions) (*types.Record, error) {
	if !hasText(doc) {
		return nil, ErrNoContent
	}

	sections, order := BuildSections(doc, DetectHeaderLines(doc))
	return &types.Record{
		Figures:      ExtractFigures(ctx, doc, r, opts),
		Tables:       []types.Table{},
		Sections:     sections,
		SectionOrder: order,
	}, nil
}

func hasText(doc *Document) bool {
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			for _, l := range b.Lines {
				if strings.TrimSpace(l.Text()) != "" {
					return true
				}
			}
		}
	}
	return false
}
