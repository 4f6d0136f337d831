package services

import (
	"context"

	"arbor/internal/domain/models"
)

// CreateCollectionRequest represents a request to create a collection
type CreateCollectionRequest struct {
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Type        string `json:"type"` // "tree" or "journal"
}

// UpdateCollectionRequest represents a request to update collection attributes.
// Nil fields are left unchanged.
type UpdateCollectionRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// CollectionService defines business logic operations for collections
type CollectionService interface {
	// CreateCollection creates a new collection and applies the bootstrap
	// policy to its document structure
	CreateCollection(ctx context.Context, req *CreateCollectionRequest) (*models.Collection, error)

	// GetCollection retrieves a collection by ID
	GetCollection(ctx context.Context, id string) (*models.Collection, error)

	// ListCollections retrieves all live collections for a team
	ListCollections(ctx context.Context, teamID string) ([]models.Collection, error)

	// UpdateCollection updates a collection's display attributes
	UpdateCollection(ctx context.Context, id string, req *UpdateCollectionRequest) (*models.Collection, error)

	// DeleteCollection soft-deletes a collection and permanently deletes
	// every document it contains
	DeleteCollection(ctx context.Context, id string) error

	// ListEvents retrieves a collection's audit feed, newest first. A
	// non-positive limit falls back to the default listing limit.
	ListEvents(ctx context.Context, collectionID string, limit int) ([]models.Event, error)
}
