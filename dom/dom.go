// Package dom defines the source-side view of a document tree as consumed by
// the accessibility tree walker.
//
// A document is a tree of Node values. Variants are explicit: a Node whose
// Kind is KindElement also implements Element and exposes attributes; a
// KindText node exposes only its text. Style and layout are separate
// collaborators whose reads report availability instead of failing, so a
// detached node or an environment that refuses the query degrades to
// "unknown" without an error path.
package dom

// Kind is the node variant, numbered like DOM nodeType.
type Kind int

const (
	KindElement  Kind = 1
	KindText     Kind = 3
	KindCDATA    Kind = 4
	KindPI       Kind = 7 // processing instruction
	KindComment  Kind = 8
	KindDocument Kind = 9
	KindDoctype  Kind = 10
	KindFragment Kind = 11
)

// Node is any node in the source tree.
type Node interface {
	Kind() Kind
	// Name is the tag name for elements and the DOM nodeName
	// (#text, #comment, #document, ...) for other kinds. Case is
	// adapter-defined; callers lowercase.
	Name() string
	// Children returns child nodes in document order.
	Children() []Node
	// TextContent is the concatenated text of all descendant text nodes,
	// or the node's own data for text nodes.
	TextContent() string
}

// Attribute is a single name/value pair on an element.
type Attribute struct {
	Name  string
	Value string
}

// Element is a Node of KindElement.
type Element interface {
	Node
	// Attributes returns attributes in source order.
	Attributes() []Attribute
	Attribute(name string) (string, bool)
	// SetAttribute writes or replaces an attribute on the underlying
	// element. Adapters backed by a live page perform a round trip.
	SetAttribute(name, value string) error
}

// Style is the subset of computed style the walker reads.
type Style struct {
	Display    string
	Visibility string
	Opacity    string
}

// Hidden reports whether the style removes the element from view.
func (s Style) Hidden() bool {
	return s.Display == "none" || s.Visibility == "hidden" || s.Opacity == "0"
}

// Rect is a layout box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// RectFromBox builds a Rect from an origin and a size, filling the edge
// fields the way getBoundingClientRect does for non-negative sizes.
func RectFromBox(x, y, width, height float64) Rect {
	return Rect{
		X: x, Y: y, Width: width, Height: height,
		Top: y, Left: x, Right: x + width, Bottom: y + height,
	}
}

// StyleSource computes styles for elements. ok is false when the style
// cannot be obtained.
type StyleSource interface {
	ComputedStyle(el Element) (style Style, ok bool)
}

// LayoutSource reports element geometry. ok is false when the element has
// no layout box or the query is refused.
type LayoutSource interface {
	BoundingBox(el Element) (rect Rect, ok bool)
}

// NoStyles is a StyleSource that never has style information.
type NoStyles struct{}

func (NoStyles) ComputedStyle(Element) (Style, bool) { return Style{}, false }

// NoLayout is a LayoutSource that never has geometry.
type NoLayout struct{}

func (NoLayout) BoundingBox(Element) (Rect, bool) { return Rect{}, false }
