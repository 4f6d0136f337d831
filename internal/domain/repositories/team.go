package repositories

import (
	"context"

	"arbor/internal/domain/models"
)

// TeamRepository defines data access operations for teams
type TeamRepository interface {
	// Create creates a new team
	Create(ctx context.Context, team *models.Team) error

	// GetByID retrieves a team by ID
	GetByID(ctx context.Context, id string) (*models.Team, error)
}
