// Package markup turns SVG documents into node trees, classifies their
// drawable elements, and writes derived documents back out.
package markup

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/models"
)

// Parse reads an SVG document into a node tree.
func Parse(r io.Reader) (*models.MarkupNode, error) {
	dec := xml.NewDecoder(r)

	var root *models.MarkupNode
	var stack []*models.MarkupNode

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.NewMalformedDocument("decode token", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := models.NewMarkupNode(t.Name.Local)
			for _, a := range t.Attr {
				node.Attrs[attrName(a.Name)] = a.Value
			}

			if len(stack) == 0 {
				if root != nil {
					return nil, apperr.NewMalformedDocument("document has more than one root element", nil)
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) == 0 || stack[len(stack)-1].Name != t.Name.Local {
				return nil, apperr.NewMalformedDocument(fmt.Sprintf("unexpected closing tag </%s>", t.Name.Local), nil)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			// runs split by child elements are joined with one space
			if text := strings.TrimSpace(string(t)); text != "" {
				top := stack[len(stack)-1]
				if top.Text != "" {
					top.Text += " "
				}
				top.Text += text
			}
		}
	}

	if len(stack) != 0 {
		return nil, apperr.NewMalformedDocument(fmt.Sprintf("unclosed element <%s>", stack[len(stack)-1].Name), nil)
	}
	if root == nil {
		return nil, apperr.NewMalformedDocument("document is empty", nil)
	}
	if root.Name != "svg" {
		return nil, apperr.NewMalformedDocument(fmt.Sprintf("root element is <%s>, want <svg>", root.Name), nil)
	}
	return root, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*models.MarkupNode, error) {
	return Parse(strings.NewReader(s))
}

func attrName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Serialize writes root as SVG. rootAttrs, when non-nil, replace the
// attributes of the root element. A nil keep writes the tree as it is.
// Otherwise only the nodes accepted by keep are written, each with its
// subtree, directly under the root and in document order. Classified nodes
// already carry their inherited attributes, so their containers are dropped
// rather than applied a second time. Attributes are written in sorted order.
func Serialize(w io.Writer, root *models.MarkupNode, rootAttrs models.Attributes, keep func(*models.MarkupNode) bool) error {
	if root == nil {
		return apperr.NewPreconditionViolation("cannot serialize a nil document")
	}

	attrs := root.Attrs
	if rootAttrs != nil {
		attrs = rootAttrs
	}

	enc := xml.NewEncoder(w)
	start := startElement(root.Name, attrs)
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := writeText(enc, root); err != nil {
		return err
	}

	children := root.Children
	if keep != nil {
		children = collect(root.Children, keep, nil)
	}
	for _, child := range children {
		if err := writeNode(enc, child); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(start.End()); err != nil {
		return err
	}
	return enc.Close()
}

// collect appends the nodes accepted by keep in depth-first order. The
// subtree of an accepted node is not searched further.
func collect(nodes []*models.MarkupNode, keep func(*models.MarkupNode) bool, out []*models.MarkupNode) []*models.MarkupNode {
	for _, n := range nodes {
		if keep(n) {
			out = append(out, n)
			continue
		}
		out = collect(n.Children, keep, out)
	}
	return out
}

func startElement(name string, attrs models.Attributes) xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	for _, k := range attrs.Keys() {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: attrs[k]})
	}
	return start
}

func writeText(enc *xml.Encoder, node *models.MarkupNode) error {
	if node.Text == "" {
		return nil
	}
	return enc.EncodeToken(xml.CharData(node.Text))
}

func writeNode(enc *xml.Encoder, node *models.MarkupNode) error {
	start := startElement(node.Name, node.Attrs)
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := writeText(enc, node); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := writeNode(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
