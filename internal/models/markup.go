// Package models contains domain types for the OLOS fabrication console.
package models

import "sort"

// Attributes holds the key/value attributes of a markup element.
type Attributes map[string]string

// Get returns the value for key, or "" when absent.
func (a Attributes) Get(key string) string {
	return a[key]
}

// Has reports whether key is present, even with an empty value.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Clone returns an independent copy. A nil receiver yields an empty map.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a new map holding parent's attributes overlaid by a's.
// Values already present on a always win.
func (a Attributes) Merge(parent Attributes) Attributes {
	out := make(Attributes, len(a)+len(parent))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarkupNode is one element of a parsed vector-markup document.
type MarkupNode struct {
	Name     string        `json:"name"`
	Attrs    Attributes    `json:"attributes"`
	Text     string        `json:"text,omitempty"` // trimmed character data, runs joined by a space
	Children []*MarkupNode `json:"children"`
}

// NewMarkupNode creates a node with an empty attribute map.
func NewMarkupNode(name string, children ...*MarkupNode) *MarkupNode {
	return &MarkupNode{
		Name:     name,
		Attrs:    make(Attributes),
		Children: children,
	}
}

// Clone returns a copy of n and its whole subtree.
func (n *MarkupNode) Clone() *MarkupNode {
	if n == nil {
		return nil
	}
	out := &MarkupNode{
		Name:  n.Name,
		Attrs: n.Attrs.Clone(),
		Text:  n.Text,
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// ClassifiedElement is a drawable node together with the identifier assigned
// to it during classification.
type ClassifiedElement struct {
	ID     int         `json:"id"`
	Node   *MarkupNode `json:"node"`
	Matrix [6]float64  `json:"matrix"` // effective transform, row-major 2x3
}

// ShapeBucket groups elements of one shape kind in document order.
type ShapeBucket struct {
	Shape    string               `json:"shape"`
	Elements []*ClassifiedElement `json:"elements"`
}

// ColorBucket groups elements by resolved rgb(...) color in document order.
type ColorBucket struct {
	Color    string               `json:"color"`
	Elements []*ClassifiedElement `json:"elements"`
}

// Contains reports whether el is already in the bucket.
func (b *ColorBucket) Contains(el *ClassifiedElement) bool {
	for _, e := range b.Elements {
		if e == el {
			return true
		}
	}
	return false
}

// Classification is the result of classifying one document load.
type Classification struct {
	RootAttributes Attributes           `json:"rootAttributes"`
	Shapes         []*ShapeBucket       `json:"shapes"`
	Colors         []*ColorBucket       `json:"colors"`
	Elements       []*ClassifiedElement `json:"elements"`
}

// NewClassification creates an empty Classification.
func NewClassification() *Classification {
	return &Classification{
		RootAttributes: make(Attributes),
		Shapes:         make([]*ShapeBucket, 0),
		Colors:         make([]*ColorBucket, 0),
		Elements:       make([]*ClassifiedElement, 0),
	}
}

// Clone returns a deep copy. Buckets of the copy point at the copied
// elements, so an element shared by two buckets stays shared.
func (c *Classification) Clone() *Classification {
	if c == nil {
		return nil
	}
	out := NewClassification()
	out.RootAttributes = c.RootAttributes.Clone()

	copies := make(map[*ClassifiedElement]*ClassifiedElement, len(c.Elements))
	dup := func(el *ClassifiedElement) *ClassifiedElement {
		if cp, ok := copies[el]; ok {
			return cp
		}
		cp := &ClassifiedElement{ID: el.ID, Node: el.Node.Clone(), Matrix: el.Matrix}
		copies[el] = cp
		return cp
	}

	for _, el := range c.Elements {
		out.Elements = append(out.Elements, dup(el))
	}
	for _, b := range c.Shapes {
		nb := &ShapeBucket{Shape: b.Shape}
		for _, el := range b.Elements {
			nb.Elements = append(nb.Elements, dup(el))
		}
		out.Shapes = append(out.Shapes, nb)
	}
	for _, b := range c.Colors {
		nb := &ColorBucket{Color: b.Color}
		for _, el := range b.Elements {
			nb.Elements = append(nb.Elements, dup(el))
		}
		out.Colors = append(out.Colors, nb)
	}
	return out
}

// Shape returns the bucket for the given shape kind, or nil.
func (c *Classification) Shape(shape string) *ShapeBucket {
	for _, b := range c.Shapes {
		if b.Shape == shape {
			return b
		}
	}
	return nil
}

// Color returns the bucket for the given canonical color, or nil.
func (c *Classification) Color(color string) *ColorBucket {
	for _, b := range c.Colors {
		if b.Color == color {
			return b
		}
	}
	return nil
}
