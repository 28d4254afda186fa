package cdpdom

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/axtree/axtree"
	"github.com/hazyhaar/axtree/dom"
)

// sampleTree mirrors what DOM.getDocument returns for
// <html><head></head><body><div id="a"><h1>Title</h1><script>x</script></div> </body></html>.
func sampleTree() *proto.DOMNode {
	text := func(id int, v string) *proto.DOMNode {
		return &proto.DOMNode{NodeID: proto.DOMNodeID(id), NodeType: 3, NodeName: "#text", NodeValue: v}
	}
	elem := func(id int, name string, attrs []string, kids ...*proto.DOMNode) *proto.DOMNode {
		return &proto.DOMNode{NodeID: proto.DOMNodeID(id), NodeType: 1, NodeName: name, Attributes: attrs, Children: kids}
	}
	return &proto.DOMNode{NodeID: 1, NodeType: 9, NodeName: "#document", Children: []*proto.DOMNode{
		{NodeID: 2, NodeType: 10, NodeName: "html"},
		elem(3, "HTML", nil,
			elem(4, "HEAD", nil),
			elem(5, "BODY", nil,
				elem(6, "DIV", []string{"id", "a", "class", "c"},
					elem(7, "H1", nil, text(8, "Title")),
					elem(9, "SCRIPT", nil, text(10, "x")),
				),
				text(11, " "),
			),
		),
	}}
}

func TestFromTree(t *testing.T) {
	// WHAT: A DOM.getDocument tree exposes body, kinds and attributes through the dom interfaces.
	// WHY: The walker runs unchanged over live and static documents.
	d, err := FromTree(sampleTree(), nil)
	if err != nil {
		t.Fatal(err)
	}
	body := d.Body()
	if body.Kind() != dom.KindElement || body.Name() != "BODY" {
		t.Fatalf("body: kind %d name %q", body.Kind(), body.Name())
	}
	div := body.Children()[0].(dom.Element)
	attrs := div.Attributes()
	if len(attrs) != 2 || attrs[0] != (dom.Attribute{Name: "id", Value: "a"}) {
		t.Errorf("attributes: %v", attrs)
	}
	if v, ok := div.Attribute("class"); !ok || v != "c" {
		t.Errorf("class: %q %v", v, ok)
	}
	if got := div.TextContent(); got != "Titlex" {
		t.Errorf("textContent: got %q, want Titlex", got)
	}
	if body.Children()[1].Kind() != dom.KindText {
		t.Error("whitespace text node should be kept")
	}
}

func TestFromTreeNoBody(t *testing.T) {
	root := &proto.DOMNode{NodeType: 9, NodeName: "#document"}
	if _, err := FromTree(root, nil); !errors.Is(err, ErrNoBody) {
		t.Errorf("got %v, want ErrNoBody", err)
	}
}

func TestGenerateDetached(t *testing.T) {
	// WHAT: Walking a detached tree without a page logs stamp failures and still yields ids.
	// WHY: Unit tests and offline replays have no CDP session.
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	d, err := FromTree(sampleTree(), logger)
	if err != nil {
		t.Fatal(err)
	}
	w := axtree.New(axtree.Config{Styles: d.Styles(), Layout: d.Layout(), Logger: logger})
	root := w.Generate(d.Body())

	// body, div, h1, #text, whitespace #text
	if got := axtree.Count(root); got != 5 {
		t.Fatalf("Count: got %d, want 5", got)
	}
	div := axtree.Find(root, "1")
	if div.Name != "div" || div.Properties["id"] != "a" {
		t.Errorf("div: %+v", div)
	}
	if div.Properties[axtree.PropVisible] != true {
		t.Error("unavailable style defaults to visible")
	}
	if _, ok := div.Properties[axtree.PropBoundingBox]; ok {
		t.Error("no box without a page")
	}
	if !strings.Contains(buf.String(), ErrNoPage.Error()) {
		t.Errorf("stamp failures should be logged, log:\n%s", buf.String())
	}
}

func TestRectFromQuad(t *testing.T) {
	r, ok := rectFromQuad(proto.DOMQuad{10, 20, 110, 20, 110, 70, 10, 70})
	if !ok {
		t.Fatal("expected a rect")
	}
	want := dom.Rect{X: 10, Y: 20, Width: 100, Height: 50, Top: 20, Right: 110, Bottom: 70, Left: 10}
	if r != want {
		t.Errorf("rect: got %+v, want %+v", r, want)
	}

	// Rotated quad: extent, not edge length.
	r, _ = rectFromQuad(proto.DOMQuad{50, 0, 100, 50, 50, 100, 0, 50})
	if r.X != 0 || r.Y != 0 || r.Width != 100 || r.Height != 100 {
		t.Errorf("rotated: %+v", r)
	}

	if _, ok := rectFromQuad(proto.DOMQuad{1, 2}); ok {
		t.Error("short quad should be unavailable")
	}
}

func TestStyleFromComputed(t *testing.T) {
	st := styleFromComputed([]*proto.CSSCSSComputedStyleProperty{
		{Name: "color", Value: "red"},
		{Name: "display", Value: "flex"},
		{Name: "visibility", Value: "hidden"},
		{Name: "opacity", Value: "1"},
	})
	if st.Display != "flex" || st.Visibility != "hidden" || st.Opacity != "1" {
		t.Errorf("style: %+v", st)
	}
	if !st.Hidden() {
		t.Error("visibility hidden should be hidden")
	}
}

func TestBoxless(t *testing.T) {
	// WHAT: Elements without a box model report a zero rect when their display generates no box.
	// WHY: getBoundingClientRect returns zeros for them, and Prune drops zero boxes.
	for _, display := range []string{"none", "contents"} {
		r, ok := boxless(display)
		if !ok || r != (dom.Rect{}) {
			t.Errorf("%s: got %+v %v, want a zero rect", display, r, ok)
		}
	}
	if _, ok := boxless("block"); ok {
		t.Error("a block without a box model is unavailable, not empty")
	}
}

func TestAttributeCase(t *testing.T) {
	// WHAT: Attribute reads and mirrored writes fold case on HTML elements and keep it on SVG.
	// WHY: Chrome lowercases HTML attribute names, so the stamp must read back under any casing.
	d, err := FromTree(sampleTree(), nil)
	if err != nil {
		t.Fatal(err)
	}
	div := d.Body().Children()[0].(*element)
	if v, ok := div.Attribute("CLASS"); !ok || v != "c" {
		t.Errorf("CLASS: %q %v", v, ok)
	}

	div.mirror("data-AX", "1")
	div.mirror("DATA-ax", "2")
	if v, ok := div.Attribute("data-AX"); !ok || v != "2" {
		t.Errorf("data-AX: %q %v", v, ok)
	}
	if got := div.Attributes(); len(got) != 3 || got[2].Name != "data-ax" {
		t.Errorf("mirror should store one folded name: %v", got)
	}

	svg := &element{node{n: &proto.DOMNode{NodeType: 1, NodeName: "svg", IsSVG: true}, d: d}}
	svg.mirror("data-AX", "3")
	if _, ok := svg.Attribute("data-ax"); ok {
		t.Error("SVG attribute names are case-sensitive")
	}
	if v, _ := svg.Attribute("data-AX"); v != "3" {
		t.Errorf("svg data-AX: %q", v)
	}
}

type fakeQuerier struct {
	sel string
	has bool
	err error
}

func (f *fakeQuerier) Has(sel string) (bool, *rod.Element, error) {
	f.sel = sel
	if f.err != nil || !f.has {
		return false, nil, f.err
	}
	return true, &rod.Element{}, nil
}

// WHAT: locate queries the attribute selector and maps a miss to ErrNotFound.
// WHY: callers branch on ErrNotFound to tell a stale id from a CDP failure.
func TestLocate(t *testing.T) {
	// WHAT: locate queries the attribute selector and maps a miss to ErrNotFound.
	// WHY: Callers branch on ErrNotFound to tell a stale id from a CDP failure.
	q := &fakeQuerier{has: true}
	el, err := locate(q, "data-ax", "7")
	if err != nil || el == nil {
		t.Fatalf("hit: el=%v err=%v", el, err)
	}
	if q.sel != `[data-ax="7"]` {
		t.Errorf("selector = %q", q.sel)
	}

	q = &fakeQuerier{}
	if _, err := locate(q, "data-ax", "8"); !errors.Is(err, ErrNotFound) {
		t.Errorf("miss: err = %v, want ErrNotFound", err)
	}

	boom := errors.New("cdp gone")
	q = &fakeQuerier{err: boom}
	_, err = locate(q, "data-ax", "9")
	if !errors.Is(err, boom) || errors.Is(err, ErrNotFound) {
		t.Errorf("failure: err = %v", err)
	}
}
