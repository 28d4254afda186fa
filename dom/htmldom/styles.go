package htmldom

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/axtree/dom"
)

// Cascade origins, lowest first.
const (
	originUA = iota
	originAuthor
	originInline
)

type rule struct {
	sel   complexSelector
	decls []*css.Declaration
	order int
}

// weight orders competing declarations: importance, then origin, then
// specificity, then source order.
type weight struct {
	important   bool
	origin      int
	specificity [3]int
	order       int
}

func (a weight) less(b weight) bool {
	if a.important != b.important {
		return !a.important
	}
	if a.origin != b.origin {
		return a.origin < b.origin
	}
	for i := range a.specificity {
		if a.specificity[i] != b.specificity[i] {
			return a.specificity[i] < b.specificity[i]
		}
	}
	return a.order < b.order
}

type value struct {
	v   string
	w   weight
	set bool
}

// Styles computes display, visibility and opacity for elements of one
// Document. It implements dom.StyleSource.
type Styles struct {
	rules  []rule
	cache  map[*html.Node]dom.Style
	logger *slog.Logger
}

// StylesOption configures Styles.
type StylesOption func(*Styles)

// WithStylesLogger sets the logger used to report unparsable stylesheets.
func WithStylesLogger(l *slog.Logger) StylesOption {
	return func(s *Styles) { s.logger = l }
}

// NewStyles collects every <style> sheet in the document. Sheets and rules
// that cannot be parsed are skipped.
func NewStyles(d *Document, opts ...StylesOption) *Styles {
	s := &Styles{
		cache:  make(map[*html.Node]dom.Style),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	order := 0
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style && n.Namespace == "" {
			var sb strings.Builder
			collectText(n, &sb)
			sheet, err := parser.Parse(sb.String())
			if err != nil {
				s.logger.Debug("htmldom: stylesheet skipped", "error", err)
				return
			}
			s.addRules(sheet.Rules, &order)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(d.root)
	return s
}

func (s *Styles) addRules(rules []*css.Rule, order *int) {
	for _, r := range rules {
		if r.Kind == css.AtRule {
			if strings.EqualFold(strings.TrimPrefix(r.Name, "@"), "media") && !printOnly(r.Prelude) {
				s.addRules(r.Rules, order)
			}
			continue
		}
		decls := relevant(r.Declarations)
		if len(decls) == 0 {
			continue
		}
		for _, sel := range r.Selectors {
			cs, ok := parseSelector(sel)
			if !ok {
				continue
			}
			*order++
			s.rules = append(s.rules, rule{sel: cs, decls: decls, order: *order})
		}
	}
}

func printOnly(prelude string) bool {
	p := strings.ToLower(prelude)
	return strings.Contains(p, "print") && !strings.Contains(p, "screen") && !strings.Contains(p, "all")
}

func relevant(decls []*css.Declaration) []*css.Declaration {
	var out []*css.Declaration
	for _, d := range decls {
		switch strings.ToLower(d.Property) {
		case "display", "visibility", "opacity":
			out = append(out, d)
		}
	}
	return out
}

// ComputedStyle resolves the style of a wrapped element. Elements from
// other adapters are unavailable.
func (s *Styles) ComputedStyle(el dom.Element) (dom.Style, bool) {
	hn, ok := el.(Node)
	if !ok {
		return dom.Style{}, false
	}
	n := hn.HTMLNode()
	if n == nil || n.Type != html.ElementNode {
		return dom.Style{}, false
	}
	return s.compute(n), true
}

func (s *Styles) compute(n *html.Node) dom.Style {
	if st, ok := s.cache[n]; ok {
		return st
	}

	parent := dom.Style{Display: "block", Visibility: "visible", Opacity: "1"}
	if p := parentElement(n); p != nil {
		parent = s.compute(p)
	}

	vals := map[string]value{}
	consider := func(prop, v string, w weight) {
		cur := vals[prop]
		if !cur.set || !w.less(cur.w) {
			vals[prop] = value{v: v, w: w, set: true}
		}
	}

	for _, d := range uaDeclarations(n) {
		consider(d.Property, d.Value, weight{origin: originUA})
	}
	for _, r := range s.rules {
		if !r.sel.matches(n) {
			continue
		}
		for _, d := range r.decls {
			consider(strings.ToLower(d.Property), d.Value, weight{
				important: d.Important, origin: originAuthor,
				specificity: r.sel.specificity, order: r.order,
			})
		}
	}
	if inline, ok := getAttr(n, "style"); ok && strings.TrimSpace(inline) != "" {
		decls, err := parser.ParseDeclarations(inline)
		if err == nil {
			for i, d := range relevant(decls) {
				consider(strings.ToLower(d.Property), d.Value, weight{
					important: d.Important, origin: originInline, order: i,
				})
			}
		}
	}

	st := dom.Style{
		Display:    keyword(vals["display"], defaultDisplay(n), parent.Display),
		Visibility: keyword(vals["visibility"], parent.Visibility, parent.Visibility),
		Opacity:    opacity(vals["opacity"], parent.Opacity),
	}
	s.cache[n] = st
	return st
}

// keyword resolves a keyword property: unset falls back to initial,
// inherit takes the parent value.
func keyword(v value, initial, inherited string) string {
	if !v.set {
		return initial
	}
	switch k := strings.ToLower(strings.TrimSpace(v.v)); k {
	case "inherit":
		return inherited
	case "initial", "unset", "":
		return initial
	default:
		return k
	}
}

// opacity normalises to the serialisation getComputedStyle uses, so "0.0"
// and "0%" both become "0".
func opacity(v value, inherited string) string {
	if !v.set {
		return "1"
	}
	raw := strings.ToLower(strings.TrimSpace(v.v))
	if raw == "inherit" {
		return inherited
	}
	pct := strings.HasSuffix(raw, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
	if err != nil {
		return "1"
	}
	if pct {
		f /= 100
	}
	f = min(max(f, 0), 1)
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// uaDeclarations returns the user-agent rules that hide elements.
func uaDeclarations(n *html.Node) []*css.Declaration {
	none := []*css.Declaration{{Property: "display", Value: "none"}}
	if _, ok := getAttr(n, "hidden"); ok {
		return none
	}
	if n.Namespace != "" {
		return nil
	}
	switch n.DataAtom {
	case atom.Template, atom.Head, atom.Title, atom.Meta, atom.Link, atom.Base,
		atom.Script, atom.Style, atom.Noscript, atom.Datalist, atom.Param:
		return none
	case atom.Input:
		if t, _ := getAttr(n, "type"); strings.EqualFold(t, "hidden") {
			return none
		}
	case atom.Dialog:
		if _, open := getAttr(n, "open"); !open {
			return none
		}
	}
	return nil
}

var blockTags = map[atom.Atom]bool{
	atom.Html: true, atom.Body: true, atom.Div: true, atom.P: true,
	atom.Section: true, atom.Article: true, atom.Main: true, atom.Nav: true,
	atom.Header: true, atom.Footer: true, atom.Aside: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Pre: true, atom.Blockquote: true, atom.Figure: true, atom.Figcaption: true,
	atom.Fieldset: true, atom.Hr: true, atom.Address: true, atom.Details: true,
}

func defaultDisplay(n *html.Node) string {
	if n.Namespace != "" {
		return "inline"
	}
	switch n.DataAtom {
	case atom.Li:
		return "list-item"
	case atom.Table:
		return "table"
	case atom.Tr:
		return "table-row"
	case atom.Td, atom.Th:
		return "table-cell"
	case atom.Img, atom.Button, atom.Input, atom.Select, atom.Textarea:
		return "inline-block"
	}
	if blockTags[n.DataAtom] {
		return "block"
	}
	return "inline"
}
