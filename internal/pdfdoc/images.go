// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfdoc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/sciextract/internal/pagestream"
)

// maxFormDepth bounds recursion into nested form XObjects.
const maxFormDepth = 8

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m followed by n, i.e. the matrix m×n in PDF row-vector form.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitBox maps the image unit square through m and returns its bounding box
// in PDF user space (bottom-left origin).
func (m matrix) unitBox() pagestream.Rect {
	var r pagestream.Rect
	for i, p := range [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		x, y := m.apply(p[0], p[1])
		if i == 0 {
			r = pagestream.Rect{X0: x, Y0: y, X1: x, Y1: y}
			continue
		}
		r = r.Union(pagestream.Rect{X0: x, Y0: y, X1: x, Y1: y})
	}
	return r
}

// imageScanner collects image placements while interpreting content streams.
type imageScanner struct {
	height  float64
	digests map[string]string
	images  []pagestream.ImagePlacement
}

// scanImages returns every image drawn on page with its box converted to a
// top-left origin using the page height.
func scanImages(page pdf.Page, height float64) (images []pagestream.ImagePlacement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreting page content: %v", r)
		}
	}()

	s := &imageScanner{height: height, digests: map[string]string{}}
	s.scan(page.V.Key("Contents"), page.Resources(), identity, 0)
	return s.images, nil
}

func (s *imageScanner) scan(contents, resources pdf.Value, base matrix, depth int) {
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			s.scan(contents.Index(i), resources, base, depth)
		}
		return
	}
	if contents.Kind() != pdf.Stream {
		return
	}

	ctm := base
	var saved []matrix
	pdf.Interpret(contents, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if len(saved) > 0 {
				ctm = saved[len(saved)-1]
				saved = saved[:len(saved)-1]
			}
		case "cm":
			if len(args) != 6 {
				return
			}
			var m matrix
			for i := range m {
				m[i] = args[i].Float64()
			}
			ctm = m.mul(ctm)
		case "Do":
			if len(args) != 1 {
				return
			}
			s.draw(resources, args[0].Name(), ctm, depth)
		}
	})
}

func (s *imageScanner) draw(resources pdf.Value, name string, ctm matrix, depth int) {
	xobj := resources.Key("XObject").Key(name)
	switch xobj.Key("Subtype").Name() {
	case "Image":
		box := ctm.unitBox()
		s.images = append(s.images, pagestream.ImagePlacement{
			BBox: pagestream.Rect{
				X0: box.X0,
				Y0: s.height - box.Y1,
				X1: box.X1,
				Y1: s.height - box.Y0,
			},
			Digest: s.digest(name, xobj),
		})
	case "Form":
		if depth >= maxFormDepth {
			return
		}
		form := identity
		if m := xobj.Key("Matrix"); m.Kind() == pdf.Array && m.Len() == 6 {
			for i := range form {
				form[i] = m.Index(i).Float64()
			}
		}
		res := xobj.Key("Resources")
		if res.IsNull() {
			res = resources
		}
		s.scan(xobj, res, form.mul(ctm), depth+1)
	}
}

// digest hashes the decoded image stream. Streams whose filter the reader
// cannot decode are identified by their dictionary instead.
func (s *imageScanner) digest(name string, xobj pdf.Value) string {
	key := fmt.Sprintf("%s/%d/%d/%d/%s", name,
		xobj.Key("Width").Int64(), xobj.Key("Height").Int64(),
		xobj.Key("Length").Int64(), xobj.Key("Filter").String())
	if d, ok := s.digests[key]; ok {
		return d
	}

	d, err := streamDigest(xobj)
	if err != nil {
		sum := sha256.Sum256([]byte(key[len(name):]))
		d = "dict:" + hex.EncodeToString(sum[:])
	}
	s.digests[key] = d
	return d
}

func streamDigest(v pdf.Value) (d string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoding image stream: %v", r)
		}
	}()

	rc := v.Reader()
	defer rc.Close()
	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
