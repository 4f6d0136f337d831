package repositories

import (
	"context"

	"arbor/internal/domain/models"
)

// EventRepository is the append-only sink for the audit feed. Append must be
// able to participate in the caller's transaction so that an event is never
// recorded for a mutation that did not durably commit.
type EventRepository interface {
	// Append appends one immutable event
	Append(ctx context.Context, event *models.Event) error

	// ListByCollection retrieves a collection's events, newest first
	ListByCollection(ctx context.Context, collectionID string, limit int) ([]models.Event, error)
}
