package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/dbx"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/identities"
	"github.com/dmitrijs2005/gophsession/internal/server/repositories/refreshtokens"
)

// MemoryRepositoryManager hands out process-local repositories. The same
// instances are returned on every call so state is shared.
type MemoryRepositoryManager struct {
	identities    *identities.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
}

func NewMemoryRepositoryManager(refreshValidity time.Duration) *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		identities:    identities.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(refreshValidity),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func (m *MemoryRepositoryManager) DB() *sql.DB { return nil }

func (m *MemoryRepositoryManager) Identities(_ dbx.DBTX) identities.Repository {
	return m.identities
}

func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *MemoryRepositoryManager) Close() error { return nil }
