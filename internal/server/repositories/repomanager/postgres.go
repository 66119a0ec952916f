// Package repomanager provides RepositoryManager implementations for
// PostgreSQL and for the in-process store, wiring together repository
// constructors, transactions and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophmail/internal/dbx"
	"github.com/dmitrijs2005/gophmail/internal/server/migrations"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/events"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook. Transactions that fail with a
// transient error are retried under the configured policy.
type PostgresRepositoryManager struct {
	db    *sql.DB
	retry dbx.RetryPolicy
}

// postgresRepos binds the repositories to one DBTX.
type postgresRepos struct {
	q dbx.DBTX
}

func (r postgresRepos) Users() users.Repository       { return users.NewPostgresRepository(r.q) }
func (r postgresRepos) Messages() messages.Repository { return messages.NewPostgresRepository(r.q) }
func (r postgresRepos) Events() events.Repository     { return events.NewPostgresRepository(r.q) }

// Users returns a users.Repository bound to the connection pool.
func (m *PostgresRepositoryManager) Users() users.Repository {
	return users.NewPostgresRepository(m.db)
}

// Messages returns a messages.Repository bound to the connection pool.
func (m *PostgresRepositoryManager) Messages() messages.Repository {
	return messages.NewPostgresRepository(m.db)
}

// Events returns an events.Repository bound to the connection pool.
func (m *PostgresRepositoryManager) Events() events.Repository {
	return events.NewPostgresRepository(m.db)
}

// WithTx runs fn inside a transaction. The whole transaction, fn included,
// is replayed when it fails with a transient error (serialization failure,
// deadlock, lost connection); after the retries are spent the error is
// returned.
func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithRetry(ctx, m.retry, func(ctx context.Context) error {
		return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(ctx, postgresRepos{q: tx})
		})
	})
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the managed database.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

// Ping checks that the database is reachable.
func (m *PostgresRepositoryManager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close releases the connection pool.
func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	if db == nil {
		return nil, fmt.Errorf("nil database handle")
	}
	return &PostgresRepositoryManager{db: db, retry: dbx.DefaultRetryPolicy()}, nil
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenPostgres opens a pgx connection pool for dsn and verifies it is
// reachable.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := dbx.WithRetry(ctx, dbx.DefaultRetryPolicy(), db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
