package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophmail/internal/server/repositories/events"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/users"
)

// MemoryRepositoryManager serves repositories from a memory.Store.
// Transactions are serialized by a mutex; there is no rollback, so a
// transaction function should perform its writes last.
type MemoryRepositoryManager struct {
	txMu  sync.Mutex
	store *memory.Store
}

// NewMemoryRepositoryManager returns a manager over a fresh, empty store.
func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: memory.NewStore()}
}

// Store exposes the underlying store for inspection.
func (m *MemoryRepositoryManager) Store() *memory.Store { return m.store }

func (m *MemoryRepositoryManager) Users() users.Repository       { return m.store.Users() }
func (m *MemoryRepositoryManager) Messages() messages.Repository { return m.store.Messages() }
func (m *MemoryRepositoryManager) Events() events.Repository     { return m.store.Events() }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, m)
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func (m *MemoryRepositoryManager) Ping(ctx context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }
