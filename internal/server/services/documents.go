// Package services contains server-side business logic: owner-scoped
// document access, the sign-in session lifecycle, and blob URL issuing.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/server/auth"
	"github.com/dmitrijs2005/sendit/internal/server/models"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sendit/internal/server/watch"
	"github.com/google/uuid"
)

// DocumentService enforces ownership on top of the document repository
// and publishes a change notification after every successful write.
type DocumentService struct {
	repomanager repomanager.RepositoryManager
	notifier    watch.Notifier
	now         func() time.Time
}

func NewDocumentService(m repomanager.RepositoryManager, notifier watch.Notifier) *DocumentService {
	return &DocumentService{repomanager: m, notifier: notifier, now: time.Now}
}

// Get returns the caller's document. Documents owned by someone else are
// reported as missing.
func (s *DocumentService) Get(ctx context.Context, p auth.Principal, collection, id string) (*models.Document, error) {
	doc, err := s.repomanager.Documents(s.repomanager.DB()).Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != p.UserID {
		return nil, common.ErrorNotFound
	}
	return doc, nil
}

// Set writes the document. With merge only the given fields change.
func (s *DocumentService) Set(ctx context.Context, p auth.Principal, collection, id string, data map[string]any, merge bool) error {
	if err := checkWritable(p, collection, id); err != nil {
		return err
	}
	data, err := s.prepare(data)
	if err != nil {
		return err
	}

	repo := s.repomanager.Documents(s.repomanager.DB())
	if _, err := repo.Upsert(ctx, &models.Document{
		Collection: collection,
		ID:         id,
		OwnerID:    p.UserID,
		Data:       data,
	}, merge); err != nil {
		return err
	}

	s.notify(ctx, p, collection, id)
	return nil
}

// Add stores a new document under a generated id.
func (s *DocumentService) Add(ctx context.Context, p auth.Principal, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, p, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes the caller's document; a missing document is not an error.
func (s *DocumentService) Delete(ctx context.Context, p auth.Principal, collection, id string) error {
	if err := checkWritable(p, collection, id); err != nil {
		return err
	}
	if err := s.repomanager.Documents(s.repomanager.DB()).Delete(ctx, collection, id, p.UserID); err != nil {
		return err
	}
	s.notify(ctx, p, collection, id)
	return nil
}

// Query lists the caller's documents matching every filter.
func (s *DocumentService) Query(ctx context.Context, p auth.Principal, collection string, filters []documents.Filter) ([]*models.Document, error) {
	return s.repomanager.Documents(s.repomanager.DB()).Query(ctx, collection, p.UserID, filters)
}

// Snapshot is Get reporting a missing document as (nil, nil), the shape
// live subscriptions deliver.
func (s *DocumentService) Snapshot(ctx context.Context, p auth.Principal, collection, id string) (*models.Document, error) {
	doc, err := s.Get(ctx, p, collection, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return doc, err
}

func (s *DocumentService) prepare(data map[string]any) (map[string]any, error) {
	resolved := documents.ResolveServerValues(data, s.now())
	return documents.Normalize(resolved)
}

func (s *DocumentService) notify(ctx context.Context, p auth.Principal, collection, id string) {
	s.notifier.Notify(ctx, watch.DocumentTopic(collection, id), watch.QueryTopic(collection, p.UserID))
}

func checkWritable(p auth.Principal, collection, id string) error {
	if collection == common.UsersCollection && id != p.UserID {
		return fmt.Errorf("%w: user records are writable by their owner only", common.ErrorForbidden)
	}
	return nil
}
