// Package htmldom adapts golang.org/x/net/html parse trees to the dom
// interfaces so static HTML can be walked like a live page.
//
// There is no layout engine: bounding boxes are never available. Visibility
// comes from Styles, which resolves inline styles, <style> sheets and the
// few user-agent rules that hide elements.
package htmldom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/axtree/dom"
)

var (
	// ErrNoBody is returned when a parse tree has no <body> element.
	ErrNoBody = errors.New("htmldom: document has no body")

	// ErrInvalidAttributeName is returned by SetAttribute for names a
	// browser would reject.
	ErrInvalidAttributeName = errors.New("htmldom: invalid attribute name")
)

// Document is a parsed HTML document.
type Document struct {
	root *html.Node
	body *html.Node
}

// Parse reads an HTML document. The HTML5 parser always synthesises
// html/head/body, so a parsed document has a body.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldom: parse: %w", err)
	}
	return FromNode(root)
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

// FromNode wraps an existing parse tree rooted at a document node.
func FromNode(root *html.Node) (*Document, error) {
	body := findBody(root)
	if body == nil {
		return nil, ErrNoBody
	}
	return &Document{root: root, body: body}, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// Root returns the underlying document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element as a dom.Node.
func (d *Document) Body() dom.Node { return Wrap(d.body) }

// Render writes the document, including any stamped attributes.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// FindByAttribute returns the first element carrying name=value, in
// document order.
func (d *Document) FindByAttribute(name, value string) *html.Node {
	var found *html.Node
	var f func(*html.Node)
	f = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			if v, ok := getAttr(n, name); ok && v == value {
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(d.root)
	return found
}

// Wrap returns the dom view of an html.Node. Elements implement dom.Element.
func Wrap(n *html.Node) dom.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		return &element{node{n}}
	}
	return &node{n}
}

// Node exposes the html.Node behind a wrapped dom.Node.
type Node interface {
	HTMLNode() *html.Node
}

type node struct {
	n *html.Node
}

type element struct {
	node
}

func (w *node) HTMLNode() *html.Node { return w.n }

func (w *node) Kind() dom.Kind {
	switch w.n.Type {
	case html.ElementNode:
		return dom.KindElement
	case html.TextNode:
		return dom.KindText
	case html.CommentNode:
		return dom.KindComment
	case html.DocumentNode:
		return dom.KindDocument
	case html.DoctypeNode:
		return dom.KindDoctype
	case html.RawNode:
		return dom.KindCDATA
	}
	return dom.KindFragment
}

func (w *node) Name() string {
	switch w.n.Type {
	case html.ElementNode, html.DoctypeNode:
		return w.n.Data
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	case html.DocumentNode:
		return "#document"
	case html.RawNode:
		return "#cdata-section"
	}
	return "#document-fragment"
}

// Children returns child nodes. A <template> has none: its markup belongs
// to the template contents, not the element's child list.
func (w *node) Children() []dom.Node {
	if isTemplate(w.n) {
		return nil
	}
	var out []dom.Node
	for c := w.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, Wrap(c))
	}
	return out
}

func (w *node) TextContent() string {
	switch w.n.Type {
	case html.TextNode, html.CommentNode, html.RawNode:
		return w.n.Data
	case html.DoctypeNode:
		return ""
	}
	var sb strings.Builder
	collectText(w.n, &sb)
	return sb.String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	if isTemplate(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode, html.RawNode:
			sb.WriteString(c.Data)
		case html.ElementNode:
			collectText(c, sb)
		}
	}
}

func isTemplate(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Template && n.Namespace == ""
}

func (e *element) Attributes() []dom.Attribute {
	out := make([]dom.Attribute, 0, len(e.n.Attr))
	for _, a := range e.n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out = append(out, dom.Attribute{Name: name, Value: a.Val})
	}
	return out
}

func (e *element) Attribute(name string) (string, bool) {
	return getAttr(e.n, name)
}

func (e *element) SetAttribute(name, value string) error {
	if !validAttributeName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidAttributeName, name)
	}
	name = attrKey(e.n, name)
	for i := range e.n.Attr {
		if e.n.Attr[i].Namespace == "" && e.n.Attr[i].Key == name {
			e.n.Attr[i].Val = value
			return nil
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

// attrKey folds name the way the HTML parser stores attribute keys on HTML
// elements. Foreign elements keep their case.
func attrKey(n *html.Node, name string) string {
	if n.Namespace == "" {
		return strings.ToLower(name)
	}
	return name
}

func getAttr(n *html.Node, key string) (string, bool) {
	key = attrKey(n, key)
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// validAttributeName follows the HTML attribute-name syntax: non-empty, no
// whitespace, controls, quotes or one of / = > <.
func validAttributeName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r <= 0x20, r == 0x7f:
			return false
		case strings.ContainsRune(`"'/=<>`, r):
			return false
		}
	}
	return true
}
