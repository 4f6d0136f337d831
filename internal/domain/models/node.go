package models

// Node represents one document's position in a collection's hierarchy.
// Title and URL are denormalized display fields - a snapshot of the document's
// metadata at last sync time. They may go stale between structural mutations
// and are refreshed explicitly by the structure update operation.
type Node struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id,omitempty"` // nil = top-level
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Children []Node  `json:"children"`
}

// Tree is an ordered forest of nodes. Child ordering is display order and is
// semantically meaningful.
//
// A nil Tree means the structure was never initialized (non-tree collection
// types); a non-nil empty Tree is an initialized structure with zero nodes.
// The distinction round-trips through JSON (null vs []) and through the
// document_structure column (SQL NULL vs '[]').
type Tree []Node

// Clone returns a deep copy of the node and its subtree.
func (n Node) Clone() Node {
	out := n
	if n.ParentID != nil {
		parentID := *n.ParentID
		out.ParentID = &parentID
	}
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i := range n.Children {
			out.Children[i] = n.Children[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the tree. Cloning a nil (uninitialized) tree
// yields nil, preserving the initialized/uninitialized distinction.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for i := range t {
		out[i] = t[i].Clone()
	}
	return out
}

// Len returns the total number of nodes in the tree, all levels included.
func (t Tree) Len() int {
	count := 0
	for i := range t {
		count += 1 + Tree(t[i].Children).Len()
	}
	return count
}
