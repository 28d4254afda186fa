package axtree

import (
	"fmt"
	"strconv"

	"github.com/hazyhaar/axtree/dom"
)

// Walk visits n and its descendants in pre-order. Returning false from fn
// stops the walk.
func Walk(n *Node, fn func(*Node) bool) {
	walk(n, fn)
}

func walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node) bool {
		total++
		return true
	})
	return total
}

// Find returns the node with the given id, or nil.
func Find(n *Node, id string) *Node {
	var found *Node
	Walk(n, func(c *Node) bool {
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// ChildHistogram maps a child count to the number of nodes having exactly
// that many children.
func ChildHistogram(n *Node) map[int]int {
	hist := make(map[int]int)
	Walk(n, func(c *Node) bool {
		hist[len(c.Children)]++
		return true
	})
	return hist
}

// Selector returns the CSS selector matching the element stamped with id.
func Selector(attr, id string) string {
	return fmt.Sprintf("[%s=%s]", attr, strconv.Quote(id))
}

// Prune removes nodes that are invisible or have an empty bounding box and
// collapses single-child chains into their descendant. It rewrites n in
// place and returns the new root, or nil if nothing survives.
func Prune(n *Node) *Node {
	if n == nil || !n.Visible() || emptyBox(n) {
		return nil
	}
	switch len(n.Children) {
	case 0:
		return n
	case 1:
		return Prune(n.Children[0])
	}
	kept := n.Children[:0]
	for _, c := range n.Children {
		if p := Prune(c); p != nil {
			kept = append(kept, p)
		}
	}
	n.Children = kept
	return n
}

// emptyBox reports a zero width or height. Nodes without a box are kept.
func emptyBox(n *Node) bool {
	switch box := n.Properties[PropBoundingBox].(type) {
	case dom.Rect:
		return box.Width == 0 || box.Height == 0
	case map[string]any:
		w, wok := box["width"].(float64)
		h, hok := box["height"].(float64)
		return (wok && w == 0) || (hok && h == 0)
	}
	return false
}
