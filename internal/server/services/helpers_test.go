package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophmail/internal/cryptox"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/events"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

// failingManager behaves like the memory manager except that transactions
// and event inserts fail.
type failingManager struct {
	*repomanager.MemoryRepositoryManager
}

func (m *failingManager) WithTx(context.Context, func(context.Context, repomanager.Repositories) error) error {
	return errStoreDown
}

func (m *failingManager) Events() events.Repository { return failingEvents{} }

type failingEvents struct{}

func (failingEvents) Insert(context.Context, *models.Event) error { return errStoreDown }

func newCipher(t *testing.T) *cryptox.Cipher {
	t.Helper()
	c, err := cryptox.NewCipherFromString(cryptox.GenerateKey())
	require.NoError(t, err)
	return c
}

func nopLogger() logging.Logger { return logging.Nop() }
