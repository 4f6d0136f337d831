package repositories

import (
	"context"

	"arbor/internal/domain/models"
)

// CollectionRepository defines data access operations for collections,
// including the document_structure snapshot field.
type CollectionRepository interface {
	// Create creates a new collection
	Create(ctx context.Context, collection *models.Collection) error

	// GetByID retrieves a live (not soft-deleted) collection by ID
	GetByID(ctx context.Context, id string) (*models.Collection, error)

	// List retrieves all live collections for a team, newest first
	List(ctx context.Context, teamID string) ([]models.Collection, error)

	// Update updates a collection's metadata attributes (name, description,
	// color). The structure field is owned by UpdateStructure.
	Update(ctx context.Context, collection *models.Collection) error

	// UpdateStructure atomically replaces the collection's whole document
	// structure snapshot.
	UpdateStructure(ctx context.Context, id string, structure models.Tree) error

	// Delete soft-deletes a collection by setting deleted_at
	Delete(ctx context.Context, id string) error

	// CountByTeam counts a team's live collections. Bootstrap policy input.
	CountByTeam(ctx context.Context, teamID string) (int, error)
}
