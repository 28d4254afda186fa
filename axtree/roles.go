package axtree

import "strings"

// RoleGeneric is assigned to elements with no explicit role and no entry
// in the default table.
const RoleGeneric = "generic"

var defaultRoles = map[string]string{
	"a":      "link",
	"button": "button",
	"h1":     "heading",
	"h2":     "heading",
	"h3":     "heading",
	"h4":     "heading",
	"h5":     "heading",
	"h6":     "heading",
	"img":    "img",
	"input":  "textbox",
	"ul":     "list",
	"ol":     "list",
	"li":     "listitem",
}

// DefaultRole returns the table role for a tag, or RoleGeneric.
func DefaultRole(tag string) string {
	if r, ok := defaultRoles[strings.ToLower(tag)]; ok {
		return r
	}
	return RoleGeneric
}

// filtered reports whether an element tag is excluded with its subtree.
func filtered(tag string) bool {
	return strings.EqualFold(tag, "script") ||
		strings.EqualFold(tag, "style") ||
		strings.EqualFold(tag, "noscript")
}
