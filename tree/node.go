package tree

import "fmt"

// Kind identifies the role of a node in the discovered
// hierarchy.
type Kind int

const (
	// KindRoot is the single synthetic root of a tree.
	KindRoot Kind = iota
	// KindGroup is a top-level group.
	KindGroup
	// KindSubgroup is a nested group.
	KindSubgroup
	// KindProject is a repository leaf.
	KindProject
)

// String returns the wire name of the kind as used in
// exported tree files.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGroup:
		return "group"
	case KindSubgroup:
		return "subgroup"
	case KindProject:
		return "project"
	default:
		return "unknown"
	}
}

// ParseKind converts a wire name back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "root":
		return KindRoot, nil
	case "group":
		return KindGroup, nil
	case "subgroup":
		return KindSubgroup, nil
	case "project":
		return KindProject, nil
	default:
		return 0, fmt.Errorf(
			"parsing node kind: unknown kind %q", s,
		)
	}
}

// Node is one vertex of the discovered group/project
// hierarchy. Children are kept in discovery order.
// RootPath is derived from the parent chain when the
// node is created and never recomputed; pruning only
// removes nodes, it never moves them.
type Node struct {
	Name     string
	Kind     Kind
	URL      string
	RootPath string
	Children []*Node

	parent *Node
}

// NewRoot creates the root of a new tree. The root has
// an empty name and an empty root path; its URL is the
// server base URL.
func NewRoot(url string) *Node {
	return &Node{
		Kind: KindRoot,
		URL:  url,
	}
}

// NewChild creates a node attached to parent. The root
// path is the slash-joined name chain from the root.
func NewChild(
	parent *Node,
	kind Kind,
	name string,
	url string,
) *Node {
	n := &Node{
		Name:     name,
		Kind:     kind,
		URL:      url,
		RootPath: parent.RootPath + "/" + name,
		parent:   parent,
	}
	parent.Children = append(parent.Children, n)

	return n
}

// Parent returns the parent node, or nil for the root
// and for detached nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsRoot reports whether this node is the tree root.
func (n *Node) IsRoot() bool {
	return n.parent == nil && n.Kind == KindRoot
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Detach removes the node and its subtree from the
// parent. Detaching the root is a no-op.
func (n *Node) Detach() {
	p := n.parent
	if p == nil {
		return
	}

	for i, c := range p.Children {
		if c == n {
			p.Children = append(
				p.Children[:i], p.Children[i+1:]...,
			)

			break
		}
	}

	n.parent = nil
}

// Descendants returns every node below this one in
// depth-first order.
func (n *Node) Descendants() []*Node {
	var all []*Node

	for _, c := range n.Children {
		all = append(all, c)
		all = append(all, c.Descendants()...)
	}

	return all
}

// Leaves returns every leaf below this one in
// depth-first order.
func (n *Node) Leaves() []*Node {
	var leaves []*Node

	for _, c := range n.Children {
		if c.IsLeaf() {
			leaves = append(leaves, c)

			continue
		}

		leaves = append(leaves, c.Leaves()...)
	}

	return leaves
}

// Height returns the number of edges on the longest
// path from this node down to a leaf.
func (n *Node) Height() int {
	if n.IsLeaf() {
		return 0
	}

	max := 0

	for _, c := range n.Children {
		if h := c.Height(); h > max {
			max = h
		}
	}

	return max + 1
}

// IsEmpty reports whether the tree below this node
// contains nothing to sync (the root has no children).
func (n *Node) IsEmpty() bool {
	return n.Height() < 1
}
