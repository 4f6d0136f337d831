package repositories

import (
	"context"

	"arbor/internal/domain/models"
)

// DocumentRepository defines data access operations for document records.
// The structure service consults it during cascading deletes; descendants are
// discovered by repeated ListByParent queries, not by walking the tree.
type DocumentRepository interface {
	// Create creates a new document record
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id, collectionID string) (*models.Document, error)

	// Update updates an existing document record
	Update(ctx context.Context, doc *models.Document) error

	// ListByParent lists documents whose parent is parentDocumentID
	// (nil = top-level documents of the collection)
	ListByParent(ctx context.Context, collectionID string, parentDocumentID *string) ([]models.Document, error)

	// Delete permanently deletes a document record
	Delete(ctx context.Context, id, collectionID string) error

	// DeleteAllByCollection permanently deletes every document in a collection
	DeleteAllByCollection(ctx context.Context, collectionID string) error
}
