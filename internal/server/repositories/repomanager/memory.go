package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/sendit/internal/dbx"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/documents"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/refreshtokens"
)

// MemoryRepositoryManager keeps everything in process. There is no
// connection, so DB returns nil and repositories ignore their DBTX.
type MemoryRepositoryManager struct {
	txMu          sync.Mutex
	documents     *documents.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		documents:     documents.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) DB() dbx.DBTX { return nil }

// WithTx serializes transactional blocks. Writes are not rolled back on error.
func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}

func (m *MemoryRepositoryManager) Documents(dbx.DBTX) documents.Repository { return m.documents }

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

func (m *MemoryRepositoryManager) Close() error { return nil }
