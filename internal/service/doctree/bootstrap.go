package doctree

import (
	"context"
	"fmt"
	"time"

	"arbor/internal/domain/models"
	"arbor/internal/utils"

	"github.com/google/uuid"
)

// welcomeCollectionLimit caps how many collections a team can have and still
// get a seeded welcome document. The first collections a team creates deserve
// a starting point; by the third the team knows its way around and an empty
// structure is less noise.
const welcomeCollectionLimit = 2

// bootstrapStructure initializes the structure of a freshly created
// collection. Tree collections start initialized, with a welcome document
// while the team is under the welcome limit and empty after that. Journal
// collections stay uninitialized. Runs inside the creation transaction so
// the collection never becomes visible half-seeded.
//
// Returns whether a welcome document was seeded.
func (s *collectionService) bootstrapStructure(ctx context.Context, col *models.Collection) (bool, error) {
	if col.Type != models.CollectionTypeTree {
		return false, nil
	}

	count, err := s.collections.CountByTeam(ctx, col.TeamID)
	if err != nil {
		return false, fmt.Errorf("count team collections: %w", err)
	}

	// The count includes the collection just created in this transaction.
	if count <= welcomeCollectionLimit {
		doc, err := s.seedWelcomeDocument(ctx, col)
		if err != nil {
			return false, err
		}
		col.Structure = models.Tree{doc.Node()}
	} else {
		col.Structure = models.Tree{}
	}

	if err := s.collections.UpdateStructure(ctx, col.ID, col.Structure); err != nil {
		return false, fmt.Errorf("persist seeded structure: %w", err)
	}
	return col.Structure.Len() > 0, nil
}

// seedWelcomeDocument creates the welcome document record for a new
// collection from the embedded template.
func (s *collectionService) seedWelcomeDocument(ctx context.Context, col *models.Collection) (*models.Document, error) {
	title, body := s.templates.Welcome(col.Name)
	now := time.Now()
	doc := &models.Document{
		ID:           uuid.New().String(),
		CollectionID: col.ID,
		TeamID:       col.TeamID,
		Title:        title,
		Content:      body,
		WordCount:    utils.CountWords(body),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	doc.URL = utils.DocumentURL(doc.Title, doc.ID)

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create welcome document: %w", err)
	}
	return doc, nil
}
