package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/server/models"
)

type key struct{ collection, id string }

// MemoryRepository keeps documents in process memory. Stored values are
// copied on the way in and out.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[key]*models.Document
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: map[key]*models.Document{}, now: time.Now}
}

func (r *MemoryRepository) Get(_ context.Context, collection, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[key{collection, id}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return doc.Clone(), nil
}

func (r *MemoryRepository) Upsert(_ context.Context, doc *models.Document, merge bool) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{doc.Collection, doc.ID}
	now := r.now()
	cur, ok := r.docs[k]
	switch {
	case !ok:
		cur = doc.Clone()
		cur.CreatedAt = now
	case cur.OwnerID != doc.OwnerID:
		return nil, common.ErrorForbidden
	case merge:
		cur = cur.Clone()
		cur.Data = documents.Merge(cur.Data, doc.Data)
	default:
		created := cur.CreatedAt
		cur = doc.Clone()
		cur.CreatedAt = created
	}
	cur.UpdatedAt = now
	r.docs[k] = cur
	return cur.Clone(), nil
}

func (r *MemoryRepository) Delete(_ context.Context, collection, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{collection, id}
	doc, ok := r.docs[k]
	if !ok {
		return nil
	}
	if doc.OwnerID != ownerID {
		return common.ErrorForbidden
	}
	delete(r.docs, k)
	return nil
}

func (r *MemoryRepository) Query(_ context.Context, collection, ownerID string, filters []documents.Filter) ([]*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Document
	for k, doc := range r.docs {
		if k.collection != collection || doc.OwnerID != ownerID {
			continue
		}
		if documents.Matches(doc.Data, filters) {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
