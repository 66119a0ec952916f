// Package server initializes and runs the GophMail message server.
// It wires configuration, storage, services and the network front ends
// (message protocol, gRPC health, metrics) and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophmail/internal/cryptox"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server/config"
	"github.com/dmitrijs2005/gophmail/internal/server/metrics"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophmail/internal/server/services"
	"github.com/dmitrijs2005/gophmail/internal/server/session"
	"github.com/dmitrijs2005/gophmail/internal/server/tcp"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophmail/internal/server/grpc"
)

// ErrConfig marks startup failures caused by configuration.
var ErrConfig = errors.New("invalid configuration")

type App struct {
	config         *config.Config
	logger         logging.Logger
	repos          repomanager.RepositoryManager
	userService    *services.UserService
	messageService *services.MessageService
	auditService   *services.AuditService
	metrics        *metrics.Metrics
}

// openRepositories is a seam for tests.
var openRepositories = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	if dsn == config.MemoryDSN {
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	db, err := repomanager.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return repomanager.NewPostgresRepositoryManager(db)
}

// NewApp validates c, connects to the store and runs migrations. Errors
// wrapping ErrConfig mean the configuration was rejected; any other error
// means the store is unavailable.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	cipher, err := cryptox.NewCipherFromString(c.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	repos, err := openRepositories(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &App{
		config:         c,
		logger:         logger,
		repos:          repos,
		userService:    services.NewUserService(repos),
		messageService: services.NewMessageService(repos, cipher, logger.With("module", "messages")),
		auditService:   services.NewAuditService(repos, logger.With("module", "audit")),
		metrics:        metrics.New(),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}

// Run serves until a signal arrives or a front end fails, then shuts
// everything down and closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := app.initSignalHandler(ctx)
	defer cancel()

	app.logger.Info(ctx, "Starting app...")
	defer func() {
		if err := app.repos.Close(); err != nil {
			app.logger.Warn(ctx, "closing store", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.messageServer().Run(ctx)
	})

	if app.config.HealthAddr != "" {
		g.Go(func() error {
			return gs.NewGRPCServer(app.config.HealthAddr, app.logger, app.repos.Ping, 0).Run(ctx)
		})
	}

	if app.config.MetricsAddr != "" {
		g.Go(func() error {
			return app.metrics.Serve(ctx, app.config.MetricsAddr, app.logger.With("module", "metrics"))
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
		return err
	}
	app.logger.Info(ctx, "Server stopped")
	return nil
}

func (app *App) messageServer() *tcp.Server {
	opts := session.Options{
		Credentials:  app.userService,
		Mailbox:      app.messageService,
		Auditor:      app.auditService,
		Metrics:      app.metrics,
		Logger:       app.logger.With("module", "session"),
		ReadTimeout:  app.config.ReadTimeout,
		MaxFrameSize: app.config.MaxFrameSize,
	}
	return tcp.NewServer(app.config.Address(), app.config.MaxConnections, opts, app.logger)
}

// Deactivate disables username and closes the store. It backs the
// -deactivate administrative flag.
func (app *App) Deactivate(ctx context.Context, username string) error {
	defer app.repos.Close()
	if err := app.userService.Deactivate(ctx, username); err != nil {
		return err
	}
	app.auditService.Record(ctx, models.EventDeactivate, "", "username="+username)
	app.logger.Info(ctx, "user deactivated", "username", username)
	return nil
}
