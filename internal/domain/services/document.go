package services

import (
	"context"

	"arbor/internal/domain/models"
)

// DocumentService handles document lifecycle. Creating, renaming and
// destroying a document keeps the owning collection's structure in sync
// through the structure service, inside a single transaction.
type DocumentService interface {
	// CreateDocument creates a document and inserts its node into the
	// collection structure
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*models.Document, error)

	// GetDocument retrieves a document by ID
	GetDocument(ctx context.Context, id, collectionID string) (*models.Document, error)

	// UpdateDocument updates a document's title and content, refreshing the
	// node's display fields when the document is part of the structure
	UpdateDocument(ctx context.Context, id string, req *UpdateDocumentRequest) (*models.Document, error)

	// DestroyDocument removes the document's subtree from the structure and
	// permanently deletes the document and its descendants
	DestroyDocument(ctx context.Context, id, collectionID string) error
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	CollectionID     string  `json:"collection_id"`
	ParentDocumentID *string `json:"parent_document_id,omitempty"` // nil creates at top level
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	Index            *int    `json:"index,omitempty"` // sibling position, nil appends
}

// UpdateDocumentRequest represents a document update request
type UpdateDocumentRequest struct {
	CollectionID string  `json:"collection_id"`
	Title        *string `json:"title,omitempty"`
	Content      *string `json:"content,omitempty"`
}
