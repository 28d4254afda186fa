package axtree

import "encoding/json"

// Property keys set by the walker. Element attributes share the same
// namespace, and these keys are written after attributes.
const (
	PropText        = "text"
	PropVisible     = "isVisible"
	PropBoundingBox = "boundingBox"
)

// TextName is the Name of every text node.
const TextName = "#text"

// Node is one record of the generated tree.
type Node struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Role       string         `json:"role"` // empty for text nodes, encoded as null
	Properties map[string]any `json:"properties"`
	Children   []*Node        `json:"children"`
}

type nodeJSON struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Role       *string        `json:"role"`
	Properties map[string]any `json:"properties"`
	Children   []*Node        `json:"children"`
}

// MarshalJSON encodes an empty Role as null and nil collections as empty
// ones so consumers always see the same shape.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		ID:         n.ID,
		Name:       n.Name,
		Properties: n.Properties,
		Children:   n.Children,
	}
	if n.Role != "" {
		role := n.Role
		out.Role = &role
	}
	if out.Properties == nil {
		out.Properties = map[string]any{}
	}
	if out.Children == nil {
		out.Children = []*Node{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. Numeric properties decode
// as float64 and boundingBox as a map, as with any JSON object.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	n.ID = in.ID
	n.Name = in.Name
	n.Role = ""
	if in.Role != nil {
		n.Role = *in.Role
	}
	n.Properties = in.Properties
	n.Children = in.Children
	return nil
}

// Text returns the text property, if any.
func (n *Node) Text() string {
	s, _ := n.Properties[PropText].(string)
	return s
}

// Visible returns the isVisible property. Nodes without it count as visible.
func (n *Node) Visible() bool {
	v, ok := n.Properties[PropVisible].(bool)
	return !ok || v
}
