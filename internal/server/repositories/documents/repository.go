// Package documents stores owner-scoped flat documents grouped in collections.
package documents

import (
	"context"

	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/server/models"
)

// Repository defines document persistence. Ownership is enforced here so
// that the check and the write happen in one statement.
type Repository interface {
	// Get returns the document or common.ErrorNotFound.
	Get(ctx context.Context, collection, id string) (*models.Document, error)

	// Upsert creates the document or updates it when it belongs to
	// doc.OwnerID. With merge the given fields are applied over the stored
	// ones, otherwise the stored data is replaced. Writing a document owned
	// by someone else returns common.ErrorForbidden.
	Upsert(ctx context.Context, doc *models.Document, merge bool) (*models.Document, error)

	// Delete removes the document. A missing document is not an error; a
	// foreign one returns common.ErrorForbidden.
	Delete(ctx context.Context, collection, id, ownerID string) error

	// Query lists the owner's documents in a collection matching every
	// equality filter, ordered by id.
	Query(ctx context.Context, collection, ownerID string, filters []documents.Filter) ([]*models.Document, error)
}
