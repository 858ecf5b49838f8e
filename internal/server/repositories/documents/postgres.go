package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/dbx"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/server/models"
)

// PostgresRepository keeps documents in a JSONB column.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	query := `
		SELECT owner_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`
	doc := &models.Document{Collection: collection, ID: id}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, collection, id).Scan(&doc.OwnerID, &raw, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if doc.Data, err = documents.Decode(raw); err != nil {
		return nil, err
	}
	return doc, nil
}

const (
	upsertMerge = `
		INSERT INTO documents (collection, id, owner_id, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = documents.data || EXCLUDED.data, updated_at = now()
		WHERE documents.owner_id = EXCLUDED.owner_id
		RETURNING data, created_at, updated_at
	`
	upsertReplace = `
		INSERT INTO documents (collection, id, owner_id, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
		WHERE documents.owner_id = EXCLUDED.owner_id
		RETURNING data, created_at, updated_at
	`
)

func (r *PostgresRepository) Upsert(ctx context.Context, doc *models.Document, merge bool) (*models.Document, error) {
	payload, err := documents.Encode(doc.Data)
	if err != nil {
		return nil, err
	}

	query := upsertReplace
	if merge {
		query = upsertMerge
	}

	out := &models.Document{Collection: doc.Collection, ID: doc.ID, OwnerID: doc.OwnerID}
	var raw []byte
	err = r.db.QueryRowContext(ctx, query, doc.Collection, doc.ID, doc.OwnerID, string(payload)).
		Scan(&raw, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		// the conflict guard filtered the row out: it belongs to someone else
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorForbidden
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	if out.Data, err = documents.Decode(raw); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, collection, id, ownerID string) error {
	query := `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2 AND owner_id = $3
	`
	res, err := r.db.ExecContext(ctx, query, collection, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n > 0 {
		return nil
	}

	_, err = r.Get(ctx, collection, id)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case err != nil:
		return err
	default:
		return common.ErrorForbidden
	}
}

func (r *PostgresRepository) Query(ctx context.Context, collection, ownerID string, filters []documents.Filter) ([]*models.Document, error) {
	obj, err := documents.FiltersObject(filters)
	if err != nil {
		return nil, err
	}
	contains, err := documents.Encode(obj)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND owner_id = $2 AND data @> $3::jsonb
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, collection, ownerID, string(contains))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		doc := &models.Document{Collection: collection, OwnerID: ownerID}
		var raw []byte
		if err := rows.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if doc.Data, err = documents.Decode(raw); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
