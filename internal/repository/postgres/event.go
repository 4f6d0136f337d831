package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
)

// PostgresEventRepository implements the EventRepository interface. The
// events table is append-only; rows are never updated or deleted.
type PostgresEventRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewEventRepository creates a new event repository
func NewEventRepository(config *RepositoryConfig) repositories.EventRepository {
	return &PostgresEventRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Append appends one immutable event. Runs on the caller's transaction when
// one is in the context, so the event commits with the mutation it records.
func (r *PostgresEventRepository) Append(ctx context.Context, event *models.Event) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, collection_id, team_id, document_id, parent_document_id, prior_structure, new_structure, extra, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Events)

	prior, err := marshalStructure(event.PriorStructure)
	if err != nil {
		return err
	}
	next, err := marshalStructure(event.NewStructure)
	if err != nil {
		return err
	}
	extra, err := marshalExtra(event.Extra)
	if err != nil {
		return err
	}

	executor := GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		event.ID,
		event.Name,
		event.CollectionID,
		event.TeamID,
		nullableID(event.DocumentID),
		event.ParentDocumentID,
		prior,
		next,
		extra,
		event.CreatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("event %s already exists: %w", event.ID, domain.ErrConflict)
		}
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}

// ListByCollection retrieves a collection's events, newest first
func (r *PostgresEventRepository) ListByCollection(ctx context.Context, collectionID string, limit int) ([]models.Event, error) {
	query := fmt.Sprintf(`
		SELECT id, name, collection_id, team_id, document_id, parent_document_id, prior_structure, new_structure, extra, created_at
		FROM %s
		WHERE collection_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, r.tables.Events)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, collectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		var documentID *string
		var prior, next, extra []byte
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.CollectionID,
			&event.TeamID,
			&documentID,
			&event.ParentDocumentID,
			&prior,
			&next,
			&extra,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if documentID != nil {
			event.DocumentID = *documentID
		}
		if event.PriorStructure, err = unmarshalStructure(prior); err != nil {
			return nil, fmt.Errorf("event %s: %w", event.ID, err)
		}
		if event.NewStructure, err = unmarshalStructure(next); err != nil {
			return nil, fmt.Errorf("event %s: %w", event.ID, err)
		}
		if event.Extra, err = unmarshalExtra(extra); err != nil {
			return nil, fmt.Errorf("event %s: %w", event.ID, err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil if no events
	if events == nil {
		events = []models.Event{}
	}

	return events, nil
}

// marshalExtra encodes an event's extra payload for a JSONB column, keeping
// an absent payload as SQL NULL.
func marshalExtra(extra map[string]any) ([]byte, error) {
	if extra == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("encode event extra: %w", err)
	}
	return encoded, nil
}

// unmarshalExtra decodes an event's extra JSONB column.
func unmarshalExtra(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var extra map[string]any
	if err := json.Unmarshal(raw, &extra); err != nil {
		return nil, fmt.Errorf("decode event extra: %w", err)
	}
	return extra, nil
}

// nullableID maps the zero string to SQL NULL for optional id columns.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
