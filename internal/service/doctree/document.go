package doctree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbor/internal/config"
	"arbor/internal/domain"
	"arbor/internal/domain/models"
	"arbor/internal/domain/repositories"
	"arbor/internal/domain/services"
	"arbor/internal/locks"
	"arbor/internal/utils"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// documentService implements the DocumentService interface
type documentService struct {
	documents   repositories.DocumentRepository
	collections repositories.CollectionRepository
	structure   services.StructureService
	txManager   repositories.TransactionManager
	registry    *locks.Registry
	logger      *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	documentRepo repositories.DocumentRepository,
	collectionRepo repositories.CollectionRepository,
	structureService services.StructureService,
	txManager repositories.TransactionManager,
	registry *locks.Registry,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		documents:   documentRepo,
		collections: collectionRepo,
		structure:   structureService,
		txManager:   txManager,
		registry:    registry,
		logger:      logger,
	}
}

// CreateDocument creates the document record and inserts its node into the
// collection structure in one transaction under the structure lock. If the
// insert is rejected (uninitialized structure, missing parent) the record
// creation rolls back with it.
func (s *documentService) CreateDocument(ctx context.Context, req *services.CreateDocumentRequest) (*models.Document, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	col, err := s.collections.GetByID(ctx, req.CollectionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &models.Document{
		ID:               uuid.New().String(),
		CollectionID:     col.ID,
		TeamID:           col.TeamID,
		ParentDocumentID: req.ParentDocumentID,
		Title:            req.Title,
		Content:          req.Content,
		WordCount:        utils.CountWords(req.Content),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	doc.URL = utils.DocumentURL(doc.Title, doc.ID)

	key := locks.StructureKey(col.ID)
	if !locks.Held(ctx, key) {
		lease, err := s.registry.Acquire(ctx, key)
		if err != nil {
			return nil, err
		}
		defer lease.Release()
		ctx = locks.WithLease(ctx, lease)
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.documents.Create(txCtx, doc); err != nil {
			return err
		}
		_, err := s.structure.Insert(txCtx, &services.InsertRequest{
			CollectionID: col.ID,
			Node:         doc.Node(),
			Index:        req.Index,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"collection_id", doc.CollectionID,
		"title", doc.Title,
		"word_count", doc.WordCount,
	)
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (s *documentService) GetDocument(ctx context.Context, id, collectionID string) (*models.Document, error) {
	if id == "" || collectionID == "" {
		return nil, fmt.Errorf("%w: document id and collection id are required", domain.ErrValidation)
	}
	return s.documents.GetByID(ctx, id, collectionID)
}

// UpdateDocument updates the document record and, when the title changes,
// refreshes the node's display fields in the structure. A detached document
// (or one in a journal collection) updates the record only. Content-only
// edits skip the structure lock entirely.
func (s *documentService) UpdateDocument(ctx context.Context, id string, req *services.UpdateDocumentRequest) (*models.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrValidation)
	}
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc, err := s.documents.GetByID(ctx, id, req.CollectionID)
	if err != nil {
		return nil, err
	}
	applyContent(doc, req)

	if req.Title == nil {
		if err := s.documents.Update(ctx, doc); err != nil {
			return nil, err
		}
		s.logger.Info("document updated", "id", doc.ID, "collection_id", doc.CollectionID)
		return doc, nil
	}

	doc.Title = *req.Title
	doc.URL = utils.DocumentURL(doc.Title, doc.ID)

	key := locks.StructureKey(doc.CollectionID)
	if !locks.Held(ctx, key) {
		lease, err := s.registry.Acquire(ctx, key)
		if err != nil {
			return nil, err
		}
		defer lease.Release()
		ctx = locks.WithLease(ctx, lease)
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.documents.Update(txCtx, doc); err != nil {
			return err
		}
		_, err := s.structure.Update(txCtx, &services.UpdateRequest{
			CollectionID: doc.CollectionID,
			Node:         doc.Node(),
		})
		// Detached documents and journal collections have no node to refresh.
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotInitialized) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"id", doc.ID,
		"collection_id", doc.CollectionID,
		"title", doc.Title,
	)
	return doc, nil
}

// DestroyDocument removes the document's subtree from the structure and
// permanently deletes every document in it. The document must be part of
// the structure; destroying a detached document is not supported.
func (s *documentService) DestroyDocument(ctx context.Context, id, collectionID string) error {
	if id == "" || collectionID == "" {
		return fmt.Errorf("%w: document id and collection id are required", domain.ErrValidation)
	}

	_, err := s.structure.Remove(ctx, &services.RemoveRequest{
		CollectionID: collectionID,
		DocumentID:   id,
		Mode:         services.RemoveModeDelete,
	})
	if err != nil {
		return err
	}

	s.logger.Info("document destroyed", "id", id, "collection_id", collectionID)
	return nil
}

// applyContent applies the request's content change to the record.
func applyContent(doc *models.Document, req *services.UpdateDocumentRequest) {
	if req.Content != nil {
		doc.Content = *req.Content
		doc.WordCount = utils.CountWords(*req.Content)
	}
	doc.UpdatedAt = time.Now()
}

// validateCreateRequest validates a document creation request
func (s *documentService) validateCreateRequest(req *services.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CollectionID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxDocumentTitleLength)),
	)
}

// validateUpdateRequest validates a document update request
func (s *documentService) validateUpdateRequest(req *services.UpdateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CollectionID, validation.Required),
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxDocumentTitleLength)),
	)
}
