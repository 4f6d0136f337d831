package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
)

// PostgresCollectionRepository implements the CollectionRepository interface
type PostgresCollectionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(config *RepositoryConfig) repositories.CollectionRepository {
	return &PostgresCollectionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new collection. The structure column starts as whatever
// the model carries: SQL NULL for an uninitialized structure, a JSON array
// otherwise.
func (r *PostgresCollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, team_id, name, description, color, type, document_structure, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Collections)

	structure, err := marshalStructure(collection.Structure)
	if err != nil {
		return err
	}

	executor := GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		collection.ID,
		collection.TeamID,
		collection.Name,
		collection.Description,
		collection.Color,
		collection.Type,
		structure,
		collection.CreatedAt,
		collection.UpdatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("collection %s already exists: %w", collection.ID, domain.ErrConflict)
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("team %s: %w", collection.TeamID, domain.ErrNotFound)
		}
		return fmt.Errorf("create collection: %w", err)
	}

	return nil
}

// GetByID retrieves a live collection by ID
func (r *PostgresCollectionRepository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	query := fmt.Sprintf(`
		SELECT id, team_id, name, description, color, type, document_structure, created_at, updated_at
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Collections)

	var collection models.Collection
	var structure []byte
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&collection.ID,
		&collection.TeamID,
		&collection.Name,
		&collection.Description,
		&collection.Color,
		&collection.Type,
		&structure,
		&collection.CreatedAt,
		&collection.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}

	collection.Structure, err = unmarshalStructure(structure)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", id, err)
	}

	return &collection, nil
}

// List retrieves all live collections for a team, newest first
func (r *PostgresCollectionRepository) List(ctx context.Context, teamID string) ([]models.Collection, error) {
	query := fmt.Sprintf(`
		SELECT id, team_id, name, description, color, type, document_structure, created_at, updated_at
		FROM %s
		WHERE team_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, r.tables.Collections)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []models.Collection
	for rows.Next() {
		var collection models.Collection
		var structure []byte
		err := rows.Scan(
			&collection.ID,
			&collection.TeamID,
			&collection.Name,
			&collection.Description,
			&collection.Color,
			&collection.Type,
			&structure,
			&collection.CreatedAt,
			&collection.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collection.Structure, err = unmarshalStructure(structure)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", collection.ID, err)
		}
		collections = append(collections, collection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}

	// Return empty slice instead of nil if no collections
	if collections == nil {
		collections = []models.Collection{}
	}

	return collections, nil
}

// Update updates a collection's metadata attributes
func (r *PostgresCollectionRepository) Update(ctx context.Context, collection *models.Collection) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, color = $3, updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
	`, r.tables.Collections)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		collection.Name,
		collection.Description,
		collection.Color,
		collection.UpdatedAt,
		collection.ID,
	)

	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("collection %s: %w", collection.ID, domain.ErrNotFound)
	}

	return nil
}

// UpdateStructure atomically replaces the collection's document structure
// snapshot
func (r *PostgresCollectionRepository) UpdateStructure(ctx context.Context, id string, structure models.Tree) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET document_structure = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, r.tables.Collections)

	encoded, err := marshalStructure(structure)
	if err != nil {
		return err
	}

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, encoded, id)
	if err != nil {
		return fmt.Errorf("update collection structure: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
	}

	r.logger.Debug("collection structure updated", "collection_id", id, "nodes", structure.Len())
	return nil
}

// Delete soft-deletes a collection by setting deleted_at
func (r *PostgresCollectionRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Collections)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// CountByTeam counts a team's live collections
func (r *PostgresCollectionRepository) CountByTeam(ctx context.Context, teamID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s
		WHERE team_id = $1 AND deleted_at IS NULL
	`, r.tables.Collections)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, teamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count collections: %w", err)
	}

	return count, nil
}

// marshalStructure encodes a tree for a JSONB column. A nil tree maps to SQL
// NULL (uninitialized), an empty tree to the JSON array '[]' (initialized).
func marshalStructure(tree models.Tree) ([]byte, error) {
	if tree == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode document structure: %w", err)
	}
	return encoded, nil
}

// unmarshalStructure decodes a JSONB structure column. SQL NULL (and a stored
// JSON null) map back to a nil tree.
func unmarshalStructure(raw []byte) (models.Tree, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tree models.Tree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode document structure: %w", err)
	}
	return tree, nil
}
