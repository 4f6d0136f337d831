package doctree

import (
	"context"
	"fmt"
	"time"

	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"

	"github.com/google/uuid"
)

// recorder writes the audit trail for structural mutations. Exactly one
// event per committed mutation: the append runs in the same transaction as
// the structure write, so neither can land without the other.
type recorder struct {
	events repositories.EventRepository
}

func newRecorder(events repositories.EventRepository) *recorder {
	return &recorder{events: events}
}

// record appends the event for one mutation. Prior and new snapshots are
// deep-cloned; nothing the caller mutates afterwards can reach a stored
// record.
func (r *recorder) record(ctx context.Context, name string, col *models.Collection, documentID string, parentID *string, prior, next models.Tree, extra map[string]any) error {
	event := &models.Event{
		ID:               uuid.New().String(),
		Name:             name,
		CollectionID:     col.ID,
		TeamID:           col.TeamID,
		DocumentID:       documentID,
		ParentDocumentID: parentID,
		PriorStructure:   prior.Clone(),
		NewStructure:     next.Clone(),
		Extra:            extra,
		CreatedAt:        time.Now(),
	}
	if err := r.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append %s event: %w", name, err)
	}
	return nil
}
