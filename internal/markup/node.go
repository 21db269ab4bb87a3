// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markup

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is an element of a parsed markup document. Character data is kept
// as child nodes with an empty Name so that mixed content preserves order.
type Node struct {
	Name     string
	Attr     []xml.Attr
	Data     string
	Children []*Node
}

// IsText reports whether n is a character-data node.
func (n *Node) IsText() bool { return n.Name == "" }

// Parse reads an XML document and returns its root element. DTD references
// and unknown entities common in publisher markup are tolerated.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing markup: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attr: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				if root == nil {
					root = n
				}
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{Data: string(t)})
		}
	}
	if root == nil {
		return nil, fmt.Errorf("parsing markup: no root element")
	}
	return root, nil
}

// Attribute returns the value of the attribute with the given local name.
func (n *Node) Attribute(local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child element named name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns the direct child elements named name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first descendant element named name in document order.
func (n *Node) Find(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant element named name in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.walk(func(d *Node) bool {
		if d.Name == name {
			out = append(out, d)
		}
		return true
	})
	return out
}

// FindAllOutside returns descendants named name that are not nested inside
// a descendant element named stop.
func (n *Node) FindAllOutside(name, stop string) []*Node {
	var out []*Node
	n.walk(func(d *Node) bool {
		if d.Name == stop {
			return false
		}
		if d.Name == name {
			out = append(out, d)
		}
		return true
	})
	return out
}

// walk visits descendants depth-first in document order; returning false
// from visit skips the subtree.
func (n *Node) walk(visit func(*Node) bool) {
	for _, c := range n.Children {
		if c.IsText() {
			continue
		}
		if visit(c) {
			c.walk(visit)
		}
	}
}

// Text returns the concatenated character data of n and its descendants.
func (n *Node) Text() string {
	var b strings.Builder
	n.text(&b)
	return b.String()
}

func (n *Node) text(b *strings.Builder) {
	if n.IsText() {
		b.WriteString(n.Data)
		return
	}
	for _, c := range n.Children {
		c.text(b)
	}
}

// ChildText returns the text of the first child named name and whether such
// a child exists. A present child with no text yields "" and true.
func (n *Node) ChildText(name string) (string, bool) {
	c := n.Child(name)
	if c == nil {
		return "", false
	}
	return c.Text(), true
}
