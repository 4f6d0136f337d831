// Package doctree implements collection and document lifecycle together
// with the structural mutations of a collection's document tree. Every
// structural change is serialized per collection, persisted as a whole-tree
// snapshot and recorded in the audit trail.
package doctree

import (
	"context"
	"fmt"
	"log/slog"

	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
	"arbor/internal/domain/services"
	"arbor/internal/locks"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// structureService implements the StructureService interface
type structureService struct {
	collections repositories.CollectionRepository
	documents   repositories.DocumentRepository
	txManager   repositories.TransactionManager
	registry    *locks.Registry
	recorder    *recorder
	logger      *slog.Logger
}

// NewStructureService creates a new structure service
func NewStructureService(
	collectionRepo repositories.CollectionRepository,
	documentRepo repositories.DocumentRepository,
	eventRepo repositories.EventRepository,
	txManager repositories.TransactionManager,
	registry *locks.Registry,
	logger *slog.Logger,
) services.StructureService {
	return &structureService{
		collections: collectionRepo,
		documents:   documentRepo,
		txManager:   txManager,
		registry:    registry,
		recorder:    newRecorder(eventRepo),
		logger:      logger,
	}
}

// Tree returns a snapshot of the collection's current structure.
func (s *structureService) Tree(ctx context.Context, collectionID string) (models.Tree, error) {
	if collectionID == "" {
		return nil, fmt.Errorf("%w: collection id is required", domain.ErrValidation)
	}
	col, err := s.collections.GetByID(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !col.Initialized() {
		return nil, fmt.Errorf("collection %s has no document structure: %w", collectionID, domain.ErrNotInitialized)
	}
	return col.Structure.Clone(), nil
}

// Insert places a new node into the structure.
func (s *structureService) Insert(ctx context.Context, req *services.InsertRequest) (*services.MutationResult, error) {
	if err := s.validateInsertRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	next, err := s.mutate(ctx, req.CollectionID, func(_ context.Context, _ *models.Collection, ix *treeIndex) (*mutation, error) {
		if err := ix.insert(req.Node, req.Index); err != nil {
			return nil, err
		}
		parentID, _ := ix.parentOf(req.Node.ID)
		return &mutation{
			name:       models.EventStructureInsert,
			documentID: req.Node.ID,
			parentID:   parentID,
			extra:      indexExtra(req.Index),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node inserted",
		"collection_id", req.CollectionID,
		"document_id", req.Node.ID,
		"tree_size", next.Len(),
	)
	return &services.MutationResult{Structure: next}, nil
}

// Update refreshes a node's display fields in place.
func (s *structureService) Update(ctx context.Context, req *services.UpdateRequest) (*services.MutationResult, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	next, err := s.mutate(ctx, req.CollectionID, func(_ context.Context, _ *models.Collection, ix *treeIndex) (*mutation, error) {
		if err := ix.updateDisplay(req.Node.ID, req.Node.Title, req.Node.URL); err != nil {
			return nil, err
		}
		parentID, _ := ix.parentOf(req.Node.ID)
		return &mutation{
			name:       models.EventStructureUpdate,
			documentID: req.Node.ID,
			parentID:   parentID,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node display updated",
		"collection_id", req.CollectionID,
		"document_id", req.Node.ID,
	)
	return &services.MutationResult{Structure: next}, nil
}

// Remove detaches a subtree; in delete mode it also destroys the documents.
func (s *structureService) Remove(ctx context.Context, req *services.RemoveRequest) (*services.RemoveResult, error) {
	if err := s.validateRemoveRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var detached *models.Node
	next, err := s.mutate(ctx, req.CollectionID, func(txCtx context.Context, col *models.Collection, ix *treeIndex) (*mutation, error) {
		node, err := ix.detach(req.DocumentID)
		if err != nil {
			return nil, err
		}
		detached = node
		if req.Mode == services.RemoveModeDelete {
			// Deletions run inside this mutation's transaction: one failure
			// rolls back the structure write, the audit event and every
			// deletion that already happened.
			if err := s.deleteSubtree(txCtx, col, req.DocumentID); err != nil {
				return nil, err
			}
		}
		return &mutation{
			name:       models.EventStructureRemove,
			documentID: req.DocumentID,
			parentID:   node.ParentID,
			extra:      map[string]any{models.ExtraMode: string(req.Mode)},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subtree removed",
		"collection_id", req.CollectionID,
		"document_id", req.DocumentID,
		"mode", req.Mode,
		"tree_size", next.Len(),
	)
	return &services.RemoveResult{Structure: next, Detached: detached}, nil
}

// Move repositions a node among its current siblings.
func (s *structureService) Move(ctx context.Context, req *services.MoveRequest) (*services.MutationResult, error) {
	if err := s.validateMoveRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	next, err := s.mutate(ctx, req.CollectionID, func(_ context.Context, _ *models.Collection, ix *treeIndex) (*mutation, error) {
		if err := ix.move(req.DocumentID, req.Index); err != nil {
			return nil, err
		}
		parentID, _ := ix.parentOf(req.DocumentID)
		return &mutation{
			name:       models.EventStructureMove,
			documentID: req.DocumentID,
			parentID:   parentID,
			extra:      map[string]any{models.ExtraIndex: req.Index},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node moved",
		"collection_id", req.CollectionID,
		"document_id", req.DocumentID,
		"index", req.Index,
	)
	return &services.MutationResult{Structure: next}, nil
}

// mutation describes one structural edit for the audit trail.
type mutation struct {
	name       string
	documentID string
	parentID   *string
	extra      map[string]any
}

// mutate runs one structural edit under the collection's lock: load the
// collection, index its structure, apply the edit, then persist the fresh
// snapshot and its audit event in a single transaction. The lock is held
// until the transaction has committed or rolled back.
func (s *structureService) mutate(ctx context.Context, collectionID string, edit func(txCtx context.Context, col *models.Collection, ix *treeIndex) (*mutation, error)) (models.Tree, error) {
	key := locks.StructureKey(collectionID)
	if !locks.Held(ctx, key) {
		lease, err := s.registry.Acquire(ctx, key)
		if err != nil {
			return nil, err
		}
		defer lease.Release()
		ctx = locks.WithLease(ctx, lease)
	}

	var next models.Tree
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		col, err := s.collections.GetByID(txCtx, collectionID)
		if err != nil {
			return err
		}
		if !col.Initialized() {
			return fmt.Errorf("collection %s has no document structure: %w", collectionID, domain.ErrNotInitialized)
		}
		ix, err := newTreeIndex(col.Structure)
		if err != nil {
			return err
		}

		m, err := edit(txCtx, col, ix)
		if err != nil {
			return err
		}

		next = ix.materialize()
		if err := s.collections.UpdateStructure(txCtx, collectionID, next); err != nil {
			return err
		}
		return s.recorder.record(txCtx, m.name, col, m.documentID, m.parentID, col.Structure, next, m.extra)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// deleteSubtree permanently deletes the removed document and then, depth
// first, every descendant found through the document store's parent links.
// Strictly sequential: each deletion is awaited before the next starts.
func (s *structureService) deleteSubtree(ctx context.Context, col *models.Collection, rootID string) error {
	if err := s.documents.Delete(ctx, rootID, col.ID); err != nil {
		return &domain.CascadeError{
			CollectionID: col.ID,
			DocumentIDs:  []string{rootID},
			Errs:         []error{err},
		}
	}
	return s.deleteDescendants(ctx, col, rootID)
}

// deleteDescendants deletes every document whose parent link leads back to
// parentID, recursing into each child before moving to the next sibling.
func (s *structureService) deleteDescendants(ctx context.Context, col *models.Collection, parentID string) error {
	children, err := s.documents.ListByParent(ctx, col.ID, &parentID)
	if err != nil {
		return &domain.CascadeError{
			CollectionID: col.ID,
			DocumentIDs:  []string{parentID},
			Errs:         []error{fmt.Errorf("list children of %s: %w", parentID, err)},
		}
	}
	for _, child := range children {
		if err := s.documents.Delete(ctx, child.ID, col.ID); err != nil {
			return &domain.CascadeError{
				CollectionID: col.ID,
				DocumentIDs:  []string{child.ID},
				Errs:         []error{err},
			}
		}
		s.logger.Debug("cascade deleted document",
			"collection_id", col.ID,
			"document_id", child.ID,
		)
		if err := s.deleteDescendants(ctx, col, child.ID); err != nil {
			return err
		}
	}
	return nil
}

// indexExtra records the requested index when the caller supplied one.
func indexExtra(index *int) map[string]any {
	if index == nil {
		return nil
	}
	return map[string]any{models.ExtraIndex: *index}
}

// validateInsertRequest validates a node insertion request
func (s *structureService) validateInsertRequest(req *services.InsertRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.CollectionID, validation.Required),
	); err != nil {
		return err
	}
	return validateNode(&req.Node)
}

// validateUpdateRequest validates a display refresh request
func (s *structureService) validateUpdateRequest(req *services.UpdateRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.CollectionID, validation.Required),
	); err != nil {
		return err
	}
	return validateNode(&req.Node)
}

// validateRemoveRequest validates a subtree removal request
func (s *structureService) validateRemoveRequest(req *services.RemoveRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CollectionID, validation.Required),
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.Mode, validation.Required,
			validation.In(services.RemoveModeDetach, services.RemoveModeDelete)),
	)
}

// validateMoveRequest validates a sibling reorder request
func (s *structureService) validateMoveRequest(req *services.MoveRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CollectionID, validation.Required),
		validation.Field(&req.DocumentID, validation.Required),
	)
}

func validateNode(node *models.Node) error {
	return validation.ValidateStruct(node,
		validation.Field(&node.ID, validation.Required),
		validation.Field(&node.Title, validation.Required, validation.Length(1, config.MaxDocumentTitleLength)),
		validation.Field(&node.URL, validation.Length(0, config.MaxDocumentURLLength)),
	)
}
