// Package snapshot defines the envelope a generated tree travels in: who
// produced it, from which page, through which source, and under which
// correlation attribute the live elements were stamped.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/hazyhaar/axtree/axtree"
	"github.com/hazyhaar/axtree/idgen"
)

// Source is where the walked document came from.
type Source string

const (
	SourceStatic  Source = "static"  // parsed HTML, no layout
	SourceBrowser Source = "browser" // live page over CDP
)

// Snapshot is one generated tree with its provenance.
type Snapshot struct {
	ID        string       `json:"id"` // UUIDv7
	PageURL   string       `json:"page_url"`
	Source    Source       `json:"source"`
	Attribute string       `json:"attribute"`
	HTMLHash  string       `json:"html_hash,omitempty"` // SHA-256 hex of the input, static only
	Nodes     int          `json:"nodes"`
	Pruned    bool         `json:"pruned,omitempty"`
	Timestamp int64        `json:"timestamp"` // epoch milliseconds
	Tree      *axtree.Node `json:"tree"`

	// Annotated is the document serialised with correlation attributes: the
	// re-rendered input for static sources, the live outer HTML for browser
	// ones. Never encoded.
	Annotated []byte `json:"-"`
}

// New wraps tree in a Snapshot with a fresh id and the current time.
func New(pageURL string, src Source, attribute string, tree *axtree.Node) *Snapshot {
	return &Snapshot{
		ID:        idgen.New(),
		PageURL:   pageURL,
		Source:    src,
		Attribute: attribute,
		Nodes:     axtree.Count(tree),
		Timestamp: time.Now().UnixMilli(),
		Tree:      tree,
	}
}

// Prune replaces the tree with its pruned form and recounts.
func (s *Snapshot) Prune() {
	s.Tree = axtree.Prune(s.Tree)
	s.Nodes = axtree.Count(s.Tree)
	s.Pruned = true
}

// Locator returns the selector matching the live element behind node id.
func (s *Snapshot) Locator(id string) string {
	return axtree.Selector(s.Attribute, id)
}

// Marshal serialises a Snapshot to JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// MarshalIndent serialises a Snapshot to indented JSON.
func MarshalIndent(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal deserialises a Snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// HashHTML returns the SHA-256 hex digest of raw HTML.
func HashHTML(html []byte) string {
	h := sha256.Sum256(html)
	return hex.EncodeToString(h[:])
}
