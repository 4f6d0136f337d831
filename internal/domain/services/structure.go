package services

import (
	"context"

	"arbor/internal/domain/models"
)

// RemoveMode selects the fate of the underlying documents when a subtree
// leaves a collection's structure.
type RemoveMode string

const (
	// RemoveModeDetach unlinks the subtree but keeps every document record.
	RemoveModeDetach RemoveMode = "detach"
	// RemoveModeDelete unlinks the subtree and permanently deletes the target
	// document together with all of its descendant documents.
	RemoveModeDelete RemoveMode = "delete"
)

// StructureService handles structural mutations of a collection's document
// tree. Mutations on the same collection are serialized through the lock
// registry; every committed mutation produces exactly one audit event.
type StructureService interface {
	// Tree returns a snapshot of the collection's current document structure
	Tree(ctx context.Context, collectionID string) (models.Tree, error)

	// Insert places a new node under its parent (top level when ParentID is
	// nil) at an optional sibling index
	Insert(ctx context.Context, req *InsertRequest) (*MutationResult, error)

	// Update refreshes a node's display fields in place, preserving its
	// position and children
	Update(ctx context.Context, req *UpdateRequest) (*MutationResult, error)

	// Remove detaches a subtree and, in delete mode, destroys its documents
	Remove(ctx context.Context, req *RemoveRequest) (*RemoveResult, error)

	// Move repositions a node among its current siblings
	Move(ctx context.Context, req *MoveRequest) (*MutationResult, error)
}

// InsertRequest represents a request to add a node to a collection's structure.
// The node's ParentID names the parent document; nil places it at top level.
type InsertRequest struct {
	CollectionID string      `json:"collection_id"`
	Node         models.Node `json:"node"`
	Index        *int        `json:"index,omitempty"` // nil or out of range appends
}

// UpdateRequest represents a request to refresh a node's display fields.
// Only the node's ID, Title and URL are read; children are never replaced.
type UpdateRequest struct {
	CollectionID string      `json:"collection_id"`
	Node         models.Node `json:"node"`
}

// RemoveRequest represents a request to remove a document's subtree.
type RemoveRequest struct {
	CollectionID string     `json:"collection_id"`
	DocumentID   string     `json:"document_id"`
	Mode         RemoveMode `json:"mode"`
}

// MoveRequest represents a request to reorder a node among its siblings.
// Index is interpreted against the sibling list after the node is detached
// from it.
type MoveRequest struct {
	CollectionID string `json:"collection_id"`
	DocumentID   string `json:"document_id"`
	Index        int    `json:"index"`
}

// MutationResult carries the structure produced by a successful mutation.
type MutationResult struct {
	Structure models.Tree `json:"structure"`
}

// RemoveResult carries the structure after a removal plus the detached
// subtree. Detached keeps its ParentID so a detach-mode caller can later
// re-insert it where it came from.
type RemoveResult struct {
	Structure models.Tree  `json:"structure"`
	Detached  *models.Node `json:"detached,omitempty"`
}
