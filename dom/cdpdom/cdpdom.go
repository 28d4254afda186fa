// Package cdpdom exposes a live Chrome page, reached through go-rod, as a
// dom tree. The node tree is fetched once with DOM.getDocument; computed
// style, box models and attribute writes are per-node CDP round trips on
// the page the document was loaded from.
package cdpdom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/axtree/axtree"
	"github.com/hazyhaar/axtree/dom"
)

var (
	// ErrNoBody is returned when the fetched document has no <body>.
	ErrNoBody = errors.New("cdpdom: document has no body")

	// ErrNoPage is returned by writes on a document not bound to a page.
	ErrNoPage = errors.New("cdpdom: document is not attached to a page")

	// ErrNotFound is returned by Locate when no element carries the id.
	ErrNotFound = errors.New("cdpdom: element not found")
)

// Document is a snapshot of the page's node tree bound to the page for
// style, layout and attribute calls.
type Document struct {
	page   *rod.Page
	root   *proto.DOMNode
	body   *proto.DOMNode
	logger *slog.Logger
}

// Load enables the DOM and CSS domains and fetches the full node tree,
// whitespace-only text nodes included. Later CDP calls on the returned
// Document use ctx.
func Load(ctx context.Context, page *rod.Page, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := page.Context(ctx)

	if err := (proto.DOMEnable{IncludeWhitespace: proto.DOMEnableIncludeWhitespaceAll}).Call(p); err != nil {
		logger.Warn("cdpdom: DOM.enable with whitespace failed, retrying plain", "error", err)
		if err := (proto.DOMEnable{}).Call(p); err != nil {
			return nil, fmt.Errorf("cdpdom: DOM.enable: %w", err)
		}
	}
	if err := (proto.CSSEnable{}).Call(p); err != nil {
		logger.Warn("cdpdom: CSS.enable failed, styles unavailable", "error", err)
	}

	depth := -1
	doc, err := proto.DOMGetDocument{Depth: &depth}.Call(p)
	if err != nil {
		return nil, fmt.Errorf("cdpdom: DOM.getDocument: %w", err)
	}

	d, err := FromTree(doc.Root, logger)
	if err != nil {
		return nil, err
	}
	d.page = p
	return d, nil
}

// FromTree builds a Document over an already fetched tree. The result is
// not bound to a page: styles and layout are unavailable and attribute
// writes fail with ErrNoPage.
func FromTree(root *proto.DOMNode, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	body := findBody(root)
	if body == nil {
		return nil, ErrNoBody
	}
	return &Document{root: root, body: body, logger: logger}, nil
}

func findBody(n *proto.DOMNode) *proto.DOMNode {
	if n == nil {
		return nil
	}
	if n.NodeType == int(dom.KindElement) && strings.EqualFold(n.NodeName, "body") {
		return n
	}
	for _, c := range n.Children {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// Body returns the body element.
func (d *Document) Body() dom.Node { return d.wrap(d.body) }

// Root returns the fetched document node.
func (d *Document) Root() *proto.DOMNode { return d.root }

// Styles returns a StyleSource backed by CSS.getComputedStyleForNode.
func (d *Document) Styles() dom.StyleSource { return styles{d} }

// Layout returns a LayoutSource backed by DOM.getBoxModel.
func (d *Document) Layout() dom.LayoutSource { return layout{d} }

// Locate finds the live element stamped with id under attr.
func Locate(ctx context.Context, page *rod.Page, attr, id string) (*rod.Element, error) {
	return locate(page.Context(ctx), attr, id)
}

type querier interface {
	Has(selector string) (bool, *rod.Element, error)
}

func locate(q querier, attr, id string) (*rod.Element, error) {
	sel := axtree.Selector(attr, id)
	has, el, err := q.Has(sel)
	if err != nil {
		return nil, fmt.Errorf("cdpdom: query %s: %w", sel, err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	return el, nil
}

func (d *Document) wrap(n *proto.DOMNode) dom.Node {
	if n == nil {
		return nil
	}
	if n.NodeType == int(dom.KindElement) {
		return &element{node{n: n, d: d}}
	}
	return &node{n: n, d: d}
}

type node struct {
	n *proto.DOMNode
	d *Document
}

type element struct {
	node
}

func (w *node) Kind() dom.Kind { return dom.Kind(w.n.NodeType) }

func (w *node) Name() string { return w.n.NodeName }

func (w *node) Children() []dom.Node {
	out := make([]dom.Node, 0, len(w.n.Children))
	for _, c := range w.n.Children {
		out = append(out, w.d.wrap(c))
	}
	return out
}

func (w *node) TextContent() string {
	switch dom.Kind(w.n.NodeType) {
	case dom.KindText, dom.KindCDATA, dom.KindComment, dom.KindPI:
		return w.n.NodeValue
	case dom.KindDocument, dom.KindDoctype:
		return ""
	}
	var sb strings.Builder
	collectText(w.n, &sb)
	return sb.String()
}

func collectText(n *proto.DOMNode, sb *strings.Builder) {
	for _, c := range n.Children {
		switch dom.Kind(c.NodeType) {
		case dom.KindText, dom.KindCDATA:
			sb.WriteString(c.NodeValue)
		case dom.KindElement:
			collectText(c, sb)
		}
	}
}

// Attributes decodes the flat name, value, name, value list CDP returns.
func (e *element) Attributes() []dom.Attribute {
	a := e.n.Attributes
	out := make([]dom.Attribute, 0, len(a)/2)
	for i := 0; i+1 < len(a); i += 2 {
		out = append(out, dom.Attribute{Name: a[i], Value: a[i+1]})
	}
	return out
}

func (e *element) Attribute(name string) (string, bool) {
	name = e.attrKey(name)
	a := e.n.Attributes
	for i := 0; i+1 < len(a); i += 2 {
		if a[i] == name {
			return a[i+1], true
		}
	}
	return "", false
}

// attrKey folds name the way Chrome stores attribute names on HTML
// elements. SVG elements keep their case.
func (e *element) attrKey(name string) string {
	if e.n.IsSVG {
		return name
	}
	return strings.ToLower(name)
}

// SetAttribute writes through DOM.setAttributeValue and mirrors the change
// in the fetched tree.
func (e *element) SetAttribute(name, value string) error {
	if e.d.page == nil {
		return ErrNoPage
	}
	name = e.attrKey(name)
	err := proto.DOMSetAttributeValue{NodeID: e.n.NodeID, Name: name, Value: value}.Call(e.d.page)
	if err != nil {
		return fmt.Errorf("cdpdom: DOM.setAttributeValue node %d: %w", e.n.NodeID, err)
	}
	e.mirror(name, value)
	return nil
}

// mirror records a written attribute in the fetched tree.
func (e *element) mirror(name, value string) {
	name = e.attrKey(name)
	a := e.n.Attributes
	for i := 0; i+1 < len(a); i += 2 {
		if a[i] == name {
			a[i+1] = value
			return
		}
	}
	e.n.Attributes = append(a, name, value)
}

// ownElement returns the CDP node behind el when it belongs to d and d is
// bound to a page.
func (d *Document) ownElement(el dom.Element) (*proto.DOMNode, bool) {
	e, ok := el.(*element)
	if !ok || e.d != d || d.page == nil {
		return nil, false
	}
	return e.n, true
}

type styles struct{ d *Document }

func (s styles) ComputedStyle(el dom.Element) (dom.Style, bool) {
	n, ok := s.d.ownElement(el)
	if !ok {
		return dom.Style{}, false
	}
	res, err := proto.CSSGetComputedStyleForNode{NodeID: n.NodeID}.Call(s.d.page)
	if err != nil {
		s.d.logger.Debug("cdpdom: computed style unavailable", "node", n.NodeID, "error", err)
		return dom.Style{}, false
	}
	return styleFromComputed(res.ComputedStyle), true
}

func styleFromComputed(props []*proto.CSSCSSComputedStyleProperty) dom.Style {
	var st dom.Style
	for _, p := range props {
		switch p.Name {
		case "display":
			st.Display = p.Value
		case "visibility":
			st.Visibility = p.Value
		case "opacity":
			st.Opacity = p.Value
		}
	}
	return st
}

type layout struct{ d *Document }

func (l layout) BoundingBox(el dom.Element) (dom.Rect, bool) {
	n, ok := l.d.ownElement(el)
	if !ok {
		return dom.Rect{}, false
	}
	res, err := proto.DOMGetBoxModel{NodeID: n.NodeID}.Call(l.d.page)
	if err == nil && res.Model != nil {
		return rectFromQuad(res.Model.Border)
	}
	// No box model: display:none and display:contents elements still have
	// a bounding client rect, all zero. Detached nodes have neither.
	st, ok := styles{l.d}.ComputedStyle(el)
	if !ok {
		return dom.Rect{}, false
	}
	return boxless(st.Display)
}

func boxless(display string) (dom.Rect, bool) {
	switch display {
	case "none", "contents":
		return dom.Rect{}, true
	}
	return dom.Rect{}, false
}

// rectFromQuad returns the axis-aligned extent of a border quad, which is
// what getBoundingClientRect reports for transformed boxes too.
func rectFromQuad(q proto.DOMQuad) (dom.Rect, bool) {
	if len(q) < 8 {
		return dom.Rect{}, false
	}
	minX, minY := q[0], q[1]
	maxX, maxY := q[0], q[1]
	for i := 2; i+1 < len(q); i += 2 {
		minX = min(minX, q[i])
		maxX = max(maxX, q[i])
		minY = min(minY, q[i+1])
		maxY = max(maxY, q[i+1])
	}
	return dom.RectFromBox(minX, minY, maxX-minX, maxY-minY), true
}
