package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
)

// PostgresTeamRepository implements the TeamRepository interface
type PostgresTeamRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(config *RepositoryConfig) repositories.TeamRepository {
	return &PostgresTeamRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new team
func (r *PostgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at)
		VALUES ($1, $2, $3)
	`, r.tables.Teams)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, team.ID, team.Name, team.CreatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("team %s already exists: %w", team.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create team: %w", err)
	}

	return nil
}

// GetByID retrieves a team by ID
func (r *PostgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := fmt.Sprintf(`
		SELECT id, name, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Teams)

	var team models.Team
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("team %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get team: %w", err)
	}

	return &team, nil
}
