package htmldom

import (
	"strings"

	"golang.org/x/net/html"
)

// Supported selector subset:
//   - tag, *, .class, #id, [attr], [attr=val], and compounds of these
//   - descendant (space) and child (>) combinators
//
// Pseudo-classes, pseudo-elements and sibling combinators are not
// supported; a rule using them is ignored.

type attrSelector struct {
	key string
	val string
	has bool // true for [attr=val], false for [attr]
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrSelector
}

type step struct {
	compound
	child bool // combinator to the previous step is '>'
}

// complexSelector is matched right to left: steps[len-1] is the subject.
type complexSelector struct {
	steps       []step
	specificity [3]int
}

func parseSelector(sel string) (complexSelector, bool) {
	var cs complexSelector
	sel = strings.TrimSpace(sel)
	if sel == "" || strings.ContainsAny(sel, ":+~,") {
		return cs, false
	}

	sel = strings.ReplaceAll(sel, ">", " > ")
	child := false
	for _, tok := range strings.Fields(sel) {
		if tok == ">" {
			if len(cs.steps) == 0 || child {
				return cs, false
			}
			child = true
			continue
		}
		c, ok := parseCompound(tok)
		if !ok {
			return cs, false
		}
		cs.steps = append(cs.steps, step{compound: c, child: child})
		child = false

		if c.id != "" {
			cs.specificity[0]++
		}
		cs.specificity[1] += len(c.classes) + len(c.attrs)
		if c.tag != "" && c.tag != "*" {
			cs.specificity[2]++
		}
	}
	if child || len(cs.steps) == 0 {
		return cs, false
	}
	return cs, true
}

// parseCompound parses "tag.class#id[attr=val]" in any order after the tag.
func parseCompound(tok string) (compound, bool) {
	var c compound
	i := 0
	for i < len(tok) && !strings.ContainsRune(".#[", rune(tok[i])) {
		i++
	}
	c.tag = strings.ToLower(tok[:i])

	for i < len(tok) {
		switch tok[i] {
		case '.', '#':
			j := i + 1
			for j < len(tok) && !strings.ContainsRune(".#[", rune(tok[j])) {
				j++
			}
			name := tok[i+1 : j]
			if name == "" {
				return c, false
			}
			if tok[i] == '.' {
				c.classes = append(c.classes, name)
			} else {
				if c.id != "" {
					return c, false
				}
				c.id = name
			}
			i = j
		case '[':
			end := strings.IndexByte(tok[i:], ']')
			if end < 0 {
				return c, false
			}
			inner := tok[i+1 : i+end]
			var a attrSelector
			if eq := strings.IndexByte(inner, '='); eq >= 0 {
				a.key = strings.ToLower(strings.TrimSpace(inner[:eq]))
				a.val = strings.Trim(strings.TrimSpace(inner[eq+1:]), `"'`)
				a.has = true
			} else {
				a.key = strings.ToLower(strings.TrimSpace(inner))
			}
			if a.key == "" || strings.ContainsAny(a.key, "^$*|~") {
				return c, false
			}
			c.attrs = append(c.attrs, a)
			i += end + 1
		default:
			return c, false
		}
	}
	return c, true
}

func (cs complexSelector) matches(n *html.Node) bool {
	return matchFrom(cs.steps, len(cs.steps)-1, n)
}

func matchFrom(steps []step, i int, n *html.Node) bool {
	if !matchesCompound(n, steps[i].compound) {
		return false
	}
	if i == 0 {
		return true
	}
	if steps[i].child {
		p := parentElement(n)
		return p != nil && matchFrom(steps, i-1, p)
	}
	for p := parentElement(n); p != nil; p = parentElement(p) {
		if matchFrom(steps, i-1, p) {
			return true
		}
	}
	return false
}

func parentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

func matchesCompound(n *html.Node, c compound) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && n.Data != c.tag {
		return false
	}
	if c.id != "" {
		if v, _ := getAttr(n, "id"); v != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		v, _ := getAttr(n, "class")
		have := strings.Fields(v)
		for _, want := range c.classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		v, ok := getAttr(n, a.key)
		if !ok || (a.has && v != a.val) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
