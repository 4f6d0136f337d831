package doctree

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
	"arbor/internal/domain/services"
	"arbor/internal/locks"
	"arbor/internal/templates"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// colorPattern accepts six-digit hex colors like "#4E5C6E".
var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// collectionService implements the CollectionService interface
type collectionService struct {
	collections repositories.CollectionRepository
	documents   repositories.DocumentRepository
	teams       repositories.TeamRepository
	events      repositories.EventRepository
	txManager   repositories.TransactionManager
	registry    *locks.Registry
	templates   *templates.Registry
	logger      *slog.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	collectionRepo repositories.CollectionRepository,
	documentRepo repositories.DocumentRepository,
	teamRepo repositories.TeamRepository,
	eventRepo repositories.EventRepository,
	txManager repositories.TransactionManager,
	registry *locks.Registry,
	templateRegistry *templates.Registry,
	logger *slog.Logger,
) services.CollectionService {
	return &collectionService{
		collections: collectionRepo,
		documents:   documentRepo,
		teams:       teamRepo,
		events:      eventRepo,
		txManager:   txManager,
		registry:    registry,
		templates:   templateRegistry,
		logger:      logger,
	}
}

// CreateCollection creates a collection and seeds its document structure
// according to the bootstrap policy. Creation, seeding and the lifecycle
// event land in one transaction.
func (s *collectionService) CreateCollection(ctx context.Context, req *services.CreateCollectionRequest) (*models.Collection, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.teams.GetByID(ctx, req.TeamID); err != nil {
		return nil, err
	}

	now := time.Now()
	col := &models.Collection{
		ID:          uuid.New().String(),
		TeamID:      req.TeamID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Type:        req.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var seeded bool
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.collections.Create(txCtx, col); err != nil {
			return err
		}

		var err error
		seeded, err = s.bootstrapStructure(txCtx, col)
		if err != nil {
			return err
		}

		event := &models.Event{
			ID:           uuid.New().String(),
			Name:         models.EventCollectionCreate,
			CollectionID: col.ID,
			TeamID:       col.TeamID,
			NewStructure: col.Structure.Clone(),
			Extra: map[string]any{
				models.ExtraName: col.Name,
				models.ExtraType: col.Type,
			},
			CreatedAt: time.Now(),
		}
		if err := s.events.Append(txCtx, event); err != nil {
			return fmt.Errorf("append %s event: %w", event.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection created",
		"id", col.ID,
		"team_id", col.TeamID,
		"type", col.Type,
		"seeded_welcome", seeded,
	)
	return col, nil
}

// GetCollection retrieves a collection by ID.
func (s *collectionService) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: collection id is required", domain.ErrValidation)
	}
	return s.collections.GetByID(ctx, id)
}

// ListCollections retrieves all live collections for a team.
func (s *collectionService) ListCollections(ctx context.Context, teamID string) ([]models.Collection, error) {
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required", domain.ErrValidation)
	}
	return s.collections.List(ctx, teamID)
}

// UpdateCollection updates a collection's display attributes. The document
// structure is not touched, so no structure lock is taken.
func (s *collectionService) UpdateCollection(ctx context.Context, id string, req *services.UpdateCollectionRequest) (*models.Collection, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: collection id is required", domain.ErrValidation)
	}
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	col, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		col.Name = *req.Name
	}
	if req.Description != nil {
		col.Description = *req.Description
	}
	if req.Color != nil {
		col.Color = *req.Color
	}
	col.UpdatedAt = time.Now()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.collections.Update(txCtx, col); err != nil {
			return err
		}
		event := &models.Event{
			ID:           uuid.New().String(),
			Name:         models.EventCollectionUpdate,
			CollectionID: col.ID,
			TeamID:       col.TeamID,
			Extra:        map[string]any{models.ExtraName: col.Name},
			CreatedAt:    time.Now(),
		}
		if err := s.events.Append(txCtx, event); err != nil {
			return fmt.Errorf("append %s event: %w", event.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection updated", "id", col.ID, "team_id", col.TeamID)
	return col, nil
}

// DeleteCollection soft-deletes the collection and permanently deletes all
// of its documents. The whole teardown runs under the collection's structure
// lock: a deletion is a structural fate for every node, so it serializes
// with in-flight mutations just like one.
func (s *collectionService) DeleteCollection(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: collection id is required", domain.ErrValidation)
	}

	key := locks.StructureKey(id)
	if !locks.Held(ctx, key) {
		lease, err := s.registry.Acquire(ctx, key)
		if err != nil {
			return err
		}
		defer lease.Release()
		ctx = locks.WithLease(ctx, lease)
	}

	var col *models.Collection
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		col, err = s.collections.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.collections.Delete(txCtx, id); err != nil {
			return err
		}
		if err := s.documents.DeleteAllByCollection(txCtx, id); err != nil {
			return fmt.Errorf("delete collection documents: %w", err)
		}
		event := &models.Event{
			ID:             uuid.New().String(),
			Name:           models.EventCollectionDelete,
			CollectionID:   col.ID,
			TeamID:         col.TeamID,
			PriorStructure: col.Structure.Clone(),
			Extra:          map[string]any{models.ExtraName: col.Name},
			CreatedAt:      time.Now(),
		}
		if err := s.events.Append(txCtx, event); err != nil {
			return fmt.Errorf("append %s event: %w", event.Name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("collection deleted", "id", id, "team_id", col.TeamID)
	return nil
}

// ListEvents returns the collection's audit feed, newest first.
func (s *collectionService) ListEvents(ctx context.Context, collectionID string, limit int) ([]models.Event, error) {
	if collectionID == "" {
		return nil, fmt.Errorf("%w: collection id is required", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = config.DefaultEventListLimit
	}
	return s.events.ListByCollection(ctx, collectionID, limit)
}

// validateCreateRequest validates a collection creation request
func (s *collectionService) validateCreateRequest(req *services.CreateCollectionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.TeamID, validation.Required),
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxCollectionNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxCollectionDescriptionLength)),
		validation.Field(&req.Color, validation.Match(colorPattern).Error("must be a hex color like #4E5C6E")),
		validation.Field(&req.Type, validation.Required,
			validation.In(models.CollectionTypeTree, models.CollectionTypeJournal)),
	)
}

// validateUpdateRequest validates a collection update request
func (s *collectionService) validateUpdateRequest(req *services.UpdateCollectionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxCollectionNameLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxCollectionDescriptionLength)),
		validation.Field(&req.Color, validation.Match(colorPattern).Error("must be a hex color like #4E5C6E")),
	)
}
