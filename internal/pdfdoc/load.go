// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfdoc reads PDF files into the page stream model and renders page
// regions with poppler for figure crops.
package pdfdoc

import (
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/sciextract/internal/pagestream"
)

// US Letter, used when a page declares no usable MediaBox.
const (
	defaultWidth  = 612
	defaultHeight = 792
)

// Load reads the PDF at path. Pages whose content cannot be interpreted are
// kept with whatever could be read and logged.
func Load(path string, logger *slog.Logger) (*pagestream.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc := &pagestream.Document{}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		w, h := mediaBox(page)
		p := pagestream.Page{Number: i, Width: w, Height: h}

		texts, err := pageText(page)
		if err != nil {
			logger.Warn("reading page text", "path", path, "page", i, "error", err)
		}
		p.Blocks = layoutPage(texts)

		p.Images, err = scanImages(page, h)
		if err != nil {
			logger.Warn("reading page images", "path", path, "page", i, "error", err)
		}
		doc.Pages = append(doc.Pages, p)
	}
	return doc, nil
}

func pageText(page pdf.Page) (texts []pdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreting page content: %v", r)
		}
	}()
	return page.Content().Text, nil
}

// mediaBox returns the page size in points, following inheritance through
// the page tree.
func mediaBox(page pdf.Page) (width, height float64) {
	v := page.V
	for i := 0; i < 16; i++ {
		if v.IsNull() {
			break
		}
		if box := v.Key("MediaBox"); box.Kind() == pdf.Array && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w < 0 {
				w = -w
			}
			if h < 0 {
				h = -h
			}
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultWidth, defaultHeight
}
