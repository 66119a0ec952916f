package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophmail/internal/client/client"
	"github.com/dmitrijs2005/gophmail/internal/client/config"
	"github.com/dmitrijs2005/gophmail/internal/client/services"
	"github.com/dmitrijs2005/gophmail/internal/cryptox"
	"github.com/dmitrijs2005/gophmail/internal/logging"
)

// App is the interactive client: one driver, one inbox, one terminal.
type App struct {
	config    *config.Config
	messenger services.MessengerService
	db        *sql.DB
	reader    *bufio.Reader
	out       io.Writer
	logger    logging.Logger
}

// NewApp validates c, opens the local inbox and prepares the driver. No
// connection is made until the first command needs one.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var cipher *cryptox.Cipher
	if c.SharedKey != "" {
		var err error
		cipher, err = cryptox.NewCipherFromString(c.SharedKey)
		if err != nil {
			return nil, fmt.Errorf("invalid shared key: %w", err)
		}
	}

	db, err := client.InitDatabase(ctx, c.InboxDSN)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	driver := client.New(client.Options{
		Addr:          c.ServerEndpointAddr,
		Timeout:       c.Timeout,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		Logger:        logger,
	})

	return &App{
		config:    c,
		messenger: services.NewMessengerService(driver, db, cipher),
		db:        db,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		logger:    logger,
	}, nil
}

// Run blocks in the REPL until the user exits or stdin ends, then says
// goodbye to the server and closes the inbox.
func (a *App) Run(ctx context.Context) error {
	printlnFn("GophMail CLI (type 'help' for commands)")
	if a.config.SharedKey == "" {
		printlnFn("No shared key configured (-k); send, get and history are unavailable.")
	}

	runREPL(ctx, a, a.getStatus, a.reader)

	return errors.Join(a.messenger.Close(), a.db.Close())
}

func (a *App) isLoggedIn() bool {
	return a.messenger.CurrentUser() != ""
}

func (a *App) getStatus() string {
	if u := a.messenger.CurrentUser(); u != "" {
		return "(" + u + ")"
	}
	return ""
}
