package axtree

import (
	"errors"
	"strings"

	"github.com/hazyhaar/axtree/dom"
)

// fakeNode is an in-memory dom.Node. Elements implement dom.Element.
type fakeNode struct {
	kind     dom.Kind
	name     string
	data     string // text nodes
	attrs    []dom.Attribute
	children []dom.Node
	setErr   error
}

type fakeElement struct{ *fakeNode }

func el(tag string, attrs []dom.Attribute, children ...dom.Node) *fakeElement {
	return &fakeElement{&fakeNode{kind: dom.KindElement, name: tag, attrs: attrs, children: children}}
}

func text(s string) *fakeNode {
	return &fakeNode{kind: dom.KindText, name: "#text", data: s}
}

func comment(s string) *fakeNode {
	return &fakeNode{kind: dom.KindComment, name: "#comment", data: s}
}

func attrs(kv ...string) []dom.Attribute {
	var out []dom.Attribute
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, dom.Attribute{Name: kv[i], Value: kv[i+1]})
	}
	return out
}

func (n *fakeNode) Kind() dom.Kind       { return n.kind }
func (n *fakeNode) Name() string         { return n.name }
func (n *fakeNode) Children() []dom.Node { return n.children }

func (n *fakeNode) TextContent() string {
	switch n.kind {
	case dom.KindText:
		return n.data
	case dom.KindComment:
		return n.data
	}
	var sb strings.Builder
	for _, c := range n.children {
		if c.Kind() == dom.KindComment {
			continue
		}
		sb.WriteString(c.TextContent())
	}
	return sb.String()
}

func (e *fakeElement) Attributes() []dom.Attribute { return e.attrs }

func (e *fakeElement) Attribute(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *fakeElement) SetAttribute(name, value string) error {
	if e.setErr != nil {
		return e.setErr
	}
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = value
			return nil
		}
	}
	e.attrs = append(e.attrs, dom.Attribute{Name: name, Value: value})
	return nil
}

var errReadOnly = errors.New("read-only element")

// fakeStyles maps elements to styles; missing elements are unavailable.
type fakeStyles map[dom.Element]dom.Style

func (f fakeStyles) ComputedStyle(el dom.Element) (dom.Style, bool) {
	s, ok := f[el]
	return s, ok
}

type fakeLayout map[dom.Element]dom.Rect

func (f fakeLayout) BoundingBox(el dom.Element) (dom.Rect, bool) {
	r, ok := f[el]
	return r, ok
}
