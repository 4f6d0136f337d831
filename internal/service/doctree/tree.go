package doctree

import (
	"fmt"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
)

// treeIndex is an id-addressed working copy of one collection's structure.
// Mutations edit the index, then materialize assembles the fresh snapshot
// that gets persisted. Nodes are reached directly by document id, so no edit
// ever re-walks the whole forest looking for its target.
type treeIndex struct {
	roots []string
	nodes map[string]*indexedNode
}

// indexedNode is one node's flat representation. Links are ids rather than
// nested values, which keeps subtree edits local to the ids they touch.
type indexedNode struct {
	id       string
	parentID *string
	title    string
	url      string
	children []string
}

// newTreeIndex indexes a stored structure. A document id appearing more than
// once means the stored snapshot is corrupt.
func newTreeIndex(tree models.Tree) (*treeIndex, error) {
	ix := &treeIndex{
		roots: make([]string, 0, len(tree)),
		nodes: make(map[string]*indexedNode),
	}
	for i := range tree {
		if err := ix.register(&tree[i], nil); err != nil {
			return nil, err
		}
		ix.roots = append(ix.roots, tree[i].ID)
	}
	return ix, nil
}

// register adds node and its whole subtree under parentID. Nesting is the
// authority for parent links; whatever parent id the stored node carries is
// normalized to the position it actually occupies.
func (ix *treeIndex) register(node *models.Node, parentID *string) error {
	if _, exists := ix.nodes[node.ID]; exists {
		return fmt.Errorf("%w: document %s appears more than once", domain.ErrCorruptStructure, node.ID)
	}
	in := &indexedNode{
		id:       node.ID,
		parentID: parentID,
		title:    node.Title,
		url:      node.URL,
		children: make([]string, 0, len(node.Children)),
	}
	ix.nodes[node.ID] = in
	for i := range node.Children {
		if err := ix.register(&node.Children[i], &in.id); err != nil {
			return err
		}
		in.children = append(in.children, node.Children[i].ID)
	}
	return nil
}

// insert places node, along with any subtree it carries, under node.ParentID
// at the given sibling index. A nil or out-of-range index appends.
func (ix *treeIndex) insert(node models.Node, index *int) error {
	if err := ix.checkNew(&node); err != nil {
		return err
	}
	siblings := &ix.roots
	var parentID *string
	if node.ParentID != nil {
		parent, ok := ix.nodes[*node.ParentID]
		if !ok {
			return fmt.Errorf("parent document %s not in structure: %w", *node.ParentID, domain.ErrNotFound)
		}
		siblings = &parent.children
		parentID = &parent.id
	}
	if err := ix.register(&node, parentID); err != nil {
		return err
	}
	*siblings = insertAt(*siblings, node.ID, index)
	return nil
}

// checkNew verifies that no id in the incoming subtree collides with the
// index or repeats within the subtree itself, before anything is registered.
func (ix *treeIndex) checkNew(node *models.Node) error {
	seen := make(map[string]struct{})
	var walk func(n *models.Node) error
	walk = func(n *models.Node) error {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("document %s appears twice in inserted subtree: %w", n.ID, domain.ErrConflict)
		}
		seen[n.ID] = struct{}{}
		if _, exists := ix.nodes[n.ID]; exists {
			return fmt.Errorf("document %s already in structure: %w", n.ID, domain.ErrConflict)
		}
		for i := range n.Children {
			if err := walk(&n.Children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(node)
}

// updateDisplay replaces a node's display fields in place. Position and
// children are untouched.
func (ix *treeIndex) updateDisplay(id, title, url string) error {
	n, ok := ix.nodes[id]
	if !ok {
		return fmt.Errorf("document %s not in structure: %w", id, domain.ErrNotFound)
	}
	n.title = title
	n.url = url
	return nil
}

// detach unlinks id's subtree and returns its materialized root. The
// returned node keeps its parent link so a caller can file it again where it
// came from.
func (ix *treeIndex) detach(id string) (*models.Node, error) {
	n, ok := ix.nodes[id]
	if !ok {
		return nil, fmt.Errorf("document %s not in structure: %w", id, domain.ErrNotFound)
	}
	node := ix.materializeNode(n)
	siblings := ix.siblingsOf(n)
	*siblings = removeID(*siblings, id)
	ix.unregister(n)
	return &node, nil
}

// move repositions id among its siblings. index counts positions in the
// sibling list with the node already taken out of it, matching a detach
// composed with a re-insert.
func (ix *treeIndex) move(id string, index int) error {
	n, ok := ix.nodes[id]
	if !ok {
		return fmt.Errorf("document %s not in structure: %w", id, domain.ErrNotFound)
	}
	siblings := ix.siblingsOf(n)
	rest := removeID(*siblings, id)
	*siblings = insertAt(rest, id, &index)
	return nil
}

// parentOf returns a copy of id's parent link.
func (ix *treeIndex) parentOf(id string) (*string, bool) {
	n, ok := ix.nodes[id]
	if !ok {
		return nil, false
	}
	if n.parentID == nil {
		return nil, true
	}
	pid := *n.parentID
	return &pid, true
}

// size counts the indexed nodes.
func (ix *treeIndex) size() int {
	return len(ix.nodes)
}

// materialize assembles the nested snapshot of the whole forest. The result
// is never nil: an emptied structure stays initialized.
func (ix *treeIndex) materialize() models.Tree {
	tree := make(models.Tree, 0, len(ix.roots))
	for _, id := range ix.roots {
		tree = append(tree, ix.materializeNode(ix.nodes[id]))
	}
	return tree
}

// materializeNode builds the nested value for one subtree, children first.
func (ix *treeIndex) materializeNode(n *indexedNode) models.Node {
	node := models.Node{
		ID:       n.id,
		Title:    n.title,
		URL:      n.url,
		Children: make([]models.Node, 0, len(n.children)),
	}
	if n.parentID != nil {
		pid := *n.parentID
		node.ParentID = &pid
	}
	for _, cid := range n.children {
		node.Children = append(node.Children, ix.materializeNode(ix.nodes[cid]))
	}
	return node
}

// siblingsOf returns the ordered id list the node currently sits in.
func (ix *treeIndex) siblingsOf(n *indexedNode) *[]string {
	if n.parentID == nil {
		return &ix.roots
	}
	return &ix.nodes[*n.parentID].children
}

// unregister drops a subtree from the id index.
func (ix *treeIndex) unregister(n *indexedNode) {
	for _, cid := range n.children {
		if c, ok := ix.nodes[cid]; ok {
			ix.unregister(c)
		}
	}
	delete(ix.nodes, n.id)
}

// insertAt places id into siblings at index, clamping nil or out-of-range
// values to append.
func insertAt(siblings []string, id string, index *int) []string {
	pos := len(siblings)
	if index != nil && *index >= 0 && *index < len(siblings) {
		pos = *index
	}
	siblings = append(siblings, "")
	copy(siblings[pos+1:], siblings[pos:])
	siblings[pos] = id
	return siblings
}

// removeID deletes id from an ordered sibling list.
func removeID(siblings []string, id string) []string {
	for i, s := range siblings {
		if s == id {
			return append(siblings[:i], siblings[i+1:]...)
		}
	}
	return siblings
}
