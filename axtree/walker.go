// Package axtree builds a lightweight accessibility-style tree from a
// document and stamps every visited element with the generated node id.
//
// The walk is depth-first: ids are assigned in pre-order, children are
// attached once fully built. script, style and noscript elements are
// skipped together with their subtrees and consume no id. The tree is a
// best-effort view: missing style or layout information is approximated,
// never reported as an error.
package axtree

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/hazyhaar/axtree/dom"
)

// DefaultAttribute is the correlation attribute used when none is configured.
const DefaultAttribute = "data-ax-id"

// DefaultMaxDepth bounds the recursion depth of a single walk.
const DefaultMaxDepth = 1024

// Config configures a Walker.
type Config struct {
	// Attribute is the correlation attribute written on each visited
	// element. Default: DefaultAttribute.
	Attribute string

	// Styles provides computed style. Default: dom.NoStyles (every element
	// visible).
	Styles dom.StyleSource

	// Layout provides bounding boxes. Default: dom.NoLayout.
	Layout dom.LayoutSource

	// MaxDepth is the deepest level that is visited. Nodes at this depth
	// are emitted without children. Default: DefaultMaxDepth.
	MaxDepth int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Attribute == "" {
		c.Attribute = DefaultAttribute
	}
	if c.Styles == nil {
		c.Styles = dom.NoStyles{}
	}
	if c.Layout == nil {
		c.Layout = dom.NoLayout{}
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Walker generates trees. It holds no per-walk state and can be reused.
type Walker struct {
	cfg Config
}

// New creates a Walker.
func New(cfg Config) *Walker {
	cfg.defaults()
	return &Walker{cfg: cfg}
}

// Attribute returns the correlation attribute name.
func (w *Walker) Attribute() string { return w.cfg.Attribute }

// traversal is the state of one Generate call.
type traversal struct {
	w         *Walker
	next      int
	truncated int
	failed    int
}

func (t *traversal) id() string {
	id := strconv.Itoa(t.next)
	t.next++
	return id
}

// Generate walks root and returns the generated tree, or nil if root is nil
// or filtered. Each call starts numbering at 0.
func (w *Walker) Generate(root dom.Node) *Node {
	t := &traversal{w: w}
	n := t.visit(root, 0)

	log := w.cfg.Logger
	if t.truncated > 0 {
		log.Warn("axtree: max depth reached, subtrees truncated",
			"max_depth", w.cfg.MaxDepth, "truncated", t.truncated)
	}
	log.Debug("axtree: tree generated",
		"nodes", t.next, "stamp_failures", t.failed)
	return n
}

func (t *traversal) visit(n dom.Node, depth int) *Node {
	if n == nil {
		return nil
	}

	kind := n.Kind()
	el, isElement := n.(dom.Element)
	isElement = isElement && kind == dom.KindElement

	if isElement && filtered(el.Name()) {
		return nil
	}

	out := &Node{
		ID:   t.id(),
		Name: nodeName(n, kind),
	}

	switch {
	case kind == dom.KindText:
		out.Properties = textProperties(n)
	case isElement:
		out.Role = elementRole(el)
		out.Properties = t.elementProperties(el)
		t.stamp(el, out)
	default:
		out.Role = RoleGeneric
		out.Properties = map[string]any{}
	}

	children := n.Children()
	if len(children) == 0 {
		return out
	}
	if depth >= t.w.cfg.MaxDepth {
		t.truncated++
		return out
	}
	for _, c := range children {
		if child := t.visit(c, depth+1); child != nil {
			out.Children = append(out.Children, child)
		}
	}
	return out
}

func nodeName(n dom.Node, kind dom.Kind) string {
	if kind == dom.KindText {
		return TextName
	}
	return strings.ToLower(n.Name())
}

func elementRole(el dom.Element) string {
	if role, ok := el.Attribute("role"); ok && role != "" {
		return role
	}
	return DefaultRole(el.Name())
}

func textProperties(n dom.Node) map[string]any {
	props := map[string]any{}
	if text := trimText(n.TextContent()); text != "" {
		props[PropText] = text
	}
	return props
}

// trimText trims the whitespace String.prototype.trim removes: the Zs
// spaces, tab, vertical tab, form feed, BOM and line terminators. U+0085 is
// not among them.
func trimText(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		switch r {
		case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
			return true
		}
		return unicode.Is(unicode.Zs, r)
	})
}

func (t *traversal) elementProperties(el dom.Element) map[string]any {
	attrs := el.Attributes()
	props := make(map[string]any, len(attrs)+3)
	for _, a := range attrs {
		props[a.Name] = a.Value
	}

	visible := true
	if style, ok := t.w.cfg.Styles.ComputedStyle(el); ok {
		visible = !style.Hidden()
	}
	props[PropVisible] = visible

	if rect, ok := t.w.cfg.Layout.BoundingBox(el); ok {
		props[PropBoundingBox] = rect
	}

	if text := trimText(el.TextContent()); text != "" {
		props[PropText] = text
	}
	return props
}

// stamp writes the node id on the source element. Failures are logged and
// otherwise ignored.
func (t *traversal) stamp(el dom.Element, n *Node) {
	if err := el.SetAttribute(t.w.cfg.Attribute, n.ID); err != nil {
		t.failed++
		t.w.cfg.Logger.Warn("axtree: set correlation attribute failed",
			"id", n.ID, "name", n.Name, "attribute", t.w.cfg.Attribute, "error", err)
	}
}
