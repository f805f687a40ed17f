// Package nntpthread rebuilds reply threads from overview rows.
//
// Rows may arrive in any order. An article that references an ancestor
// not seen yet gets a placeholder standing in for that ancestor; the
// placeholder is filled in if the ancestor arrives later, and
// PruneUnresolved removes the ones that never do.
package nntpthread

import (
	"sort"

	"github.com/nntpkit/go-nntp"
)

// InfoKind tags what a Node stands for.
type InfoKind int

const (
	// Absent marks the root of a tree.
	Absent InfoKind = iota
	// Placeholder marks an ancestor that was referenced but not observed.
	Placeholder
	// Real marks an observed article.
	Real
)

func (k InfoKind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Placeholder:
		return "placeholder"
	case Real:
		return "real"
	}
	return "invalid"
}

// NodeInfo is the article carried by a Node.
type NodeInfo struct {
	Kind InfoKind
	// GlobalID is set for placeholders and real articles.
	GlobalID string
	// Row is only meaningful for Real.
	Row nntp.OverviewRow
}

// PlaceholderNumber is the article number reported for placeholders.
const PlaceholderNumber = -1

// NumberID returns the article number, or PlaceholderNumber for a
// placeholder.
func (i NodeInfo) NumberID() int64 {
	if i.Kind != Real {
		return PlaceholderNumber
	}
	return i.Row.NumberID
}

func realInfo(row nntp.OverviewRow) NodeInfo {
	return NodeInfo{Kind: Real, GlobalID: row.GlobalID, Row: row}
}

// A Node is one article, real or placeholder, in a thread tree. Each node
// is owned by exactly one parent and keyed there by its GlobalID.
type Node struct {
	depth    int
	info     NodeInfo
	children map[string]*Node
}

// NewRoot returns an empty tree.
func NewRoot() *Node {
	return &Node{children: make(map[string]*Node)}
}

func newNode(info NodeInfo, depth int) *Node {
	return &Node{depth: depth, info: info, children: make(map[string]*Node)}
}

func (n *Node) Depth() int     { return n.depth }
func (n *Node) Info() NodeInfo { return n.info }

// IsPlaceholder reports whether n stands in for an unseen article.
func (n *Node) IsPlaceholder() bool { return n.info.Kind == Placeholder }

// Child returns the child keyed by id, or nil.
func (n *Node) Child(id string) *Node {
	return n.children[id]
}

// Children returns the direct children in key order.
func (n *Node) Children() []*Node {
	keys := n.Keys()
	out := make([]*Node, len(keys))
	for i, k := range keys {
		out[i] = n.children[k]
	}
	return out
}

// Keys returns the keys of the direct children, sorted.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *Node) ChildCount() int { return len(n.children) }

// TreeKeys returns the keys of every descendant, each level's keys before
// the keys beneath them.
func (n *Node) TreeKeys() []string {
	keys := n.Keys()
	out := append([]string(nil), keys...)
	for _, k := range keys {
		out = append(out, n.children[k].TreeKeys()...)
	}
	return out
}

// TreeCount returns the number of descendants.
func (n *Node) TreeCount() int {
	c := len(n.children)
	for _, child := range n.children {
		c += child.TreeCount()
	}
	return c
}

// Walk calls fn for every descendant depth-first, children in key order.
// Returning false from fn skips that node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	for _, child := range n.Children() {
		if fn(child) {
			child.Walk(fn)
		}
	}
}

// Insert places row in the tree under its reference chain.
func (n *Node) Insert(row nntp.OverviewRow) {
	refs := row.References()
	if len(refs) == 0 {
		n.attach(row)
		return
	}

	node := n
	for _, ref := range refs {
		next := node.children[ref]
		if next == nil {
			next = newNode(NodeInfo{Kind: Placeholder, GlobalID: ref}, node.depth+1)
			node.children[ref] = next
		}
		node = next
	}
	node.attach(row)
}

// attach sets row as the child of n keyed by its GlobalID. A node already
// at that key, placeholder or not, keeps its children.
func (n *Node) attach(row nntp.OverviewRow) {
	if child := n.children[row.GlobalID]; child != nil {
		child.info = realInfo(row)
		return
	}
	n.children[row.GlobalID] = newNode(realInfo(row), n.depth+1)
}

// PruneUnresolved removes placeholders, moving their children up one
// level. Nested placeholder chains collapse entirely.
func (n *Node) PruneUnresolved() {
	for _, key := range n.Keys() {
		child, ok := n.children[key]
		if !ok {
			continue
		}
		child.PruneUnresolved()
		if !child.IsPlaceholder() {
			continue
		}
		delete(n.children, key)
		for k, grandchild := range child.children {
			grandchild.shift(-1)
			n.children[k] = grandchild
		}
	}
}

// shift adjusts the depth of n and its subtree.
func (n *Node) shift(delta int) {
	n.depth += delta
	for _, child := range n.children {
		child.shift(delta)
	}
}
