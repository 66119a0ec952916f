package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/server/repositories/events"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/users"
)

// Repositories vends the repository set bound to one handle, either the
// store itself or an open transaction.
type Repositories interface {
	Users() users.Repository
	Messages() messages.Repository
	Events() events.Repository
}

// RepositoryManager is the storage entry point used by services. Calls made
// through the embedded Repositories run outside any transaction; WithTx runs
// fn atomically and commits when it returns nil.
type RepositoryManager interface {
	Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
