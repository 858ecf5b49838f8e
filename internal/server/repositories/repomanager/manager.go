// Package repomanager vends the server repositories for the configured
// storage backend and runs their schema migrations.
package repomanager

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/sendit/internal/dbx"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/documents"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/refreshtokens"
)

// MemoryDSN selects the in-process backend.
const MemoryDSN = "memory://"

// RepositoryManager hands out repositories bound to a DBTX, so the same
// repository code runs on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	DB() dbx.DBTX
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Documents(db dbx.DBTX) documents.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Close() error
}

// New opens the backend named by dsn.
func New(ctx context.Context, dsn string) (RepositoryManager, error) {
	if strings.HasPrefix(dsn, MemoryDSN) {
		return NewMemoryRepositoryManager(), nil
	}
	return NewPostgresRepositoryManager(ctx, dsn)
}
