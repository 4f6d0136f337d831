package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new document record
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, collection_id, team_id, parent_document_id, title, url, content, word_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		doc.ID,
		doc.CollectionID,
		doc.TeamID,
		doc.ParentDocumentID,
		doc.Title,
		doc.URL,
		doc.Content,
		doc.WordCount,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("document %s already exists: %w", doc.ID, domain.ErrConflict)
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("collection %s: %w", doc.CollectionID, domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID within a collection
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id, collectionID string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, collection_id, team_id, parent_document_id, title, url, content, word_count, created_at, updated_at
		FROM %s
		WHERE id = $1 AND collection_id = $2
	`, r.tables.Documents)

	var doc models.Document
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, collectionID).Scan(
		&doc.ID,
		&doc.CollectionID,
		&doc.TeamID,
		&doc.ParentDocumentID,
		&doc.Title,
		&doc.URL,
		&doc.Content,
		&doc.WordCount,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// Update updates an existing document record
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, url = $2, content = $3, word_count = $4, updated_at = $5
		WHERE id = $6 AND collection_id = $7
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		doc.Title,
		doc.URL,
		doc.Content,
		doc.WordCount,
		doc.UpdatedAt,
		doc.ID,
		doc.CollectionID,
	)

	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// ListByParent lists a collection's documents under one parent, nil meaning
// the top level
func (r *PostgresDocumentRepository) ListByParent(ctx context.Context, collectionID string, parentDocumentID *string) ([]models.Document, error) {
	var query string
	var args []interface{}

	if parentDocumentID != nil {
		query = fmt.Sprintf(`
			SELECT id, collection_id, team_id, parent_document_id, title, url, content, word_count, created_at, updated_at
			FROM %s
			WHERE collection_id = $1 AND parent_document_id = $2
			ORDER BY created_at
		`, r.tables.Documents)
		args = []interface{}{collectionID, *parentDocumentID}
	} else {
		query = fmt.Sprintf(`
			SELECT id, collection_id, team_id, parent_document_id, title, url, content, word_count, created_at, updated_at
			FROM %s
			WHERE collection_id = $1 AND parent_document_id IS NULL
			ORDER BY created_at
		`, r.tables.Documents)
		args = []interface{}{collectionID}
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var documents []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.CollectionID,
			&doc.TeamID,
			&doc.ParentDocumentID,
			&doc.Title,
			&doc.URL,
			&doc.Content,
			&doc.WordCount,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	// Return empty slice instead of nil if no documents
	if documents == nil {
		documents = []models.Document{}
	}

	return documents, nil
}

// Delete permanently deletes a document record
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, collectionID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND collection_id = $2
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, collectionID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// DeleteAllByCollection permanently deletes every document in a collection
func (r *PostgresDocumentRepository) DeleteAllByCollection(ctx context.Context, collectionID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE collection_id = $1
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, collectionID)
	if err != nil {
		return fmt.Errorf("delete collection documents: %w", err)
	}

	r.logger.Debug("collection documents deleted", "collection_id", collectionID, "count", result.RowsAffected())
	return nil
}
