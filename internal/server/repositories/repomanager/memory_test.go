package repomanager

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManager_WithTx(t *testing.T) {
	m := NewMemoryRepositoryManager()
	var _ RepositoryManager = m
	ctx := context.Background()

	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.Ping(ctx))

	err := m.WithTx(ctx, func(ctx context.Context, r Repositories) error {
		_, err := r.Users().Create(ctx, &models.User{UserName: "alice"})
		return err
	})
	require.NoError(t, err)

	u, err := m.Users().GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UserName)

	boom := errors.New("boom")
	assert.ErrorIs(t, m.WithTx(ctx, func(context.Context, Repositories) error { return boom }), boom)
	require.NoError(t, m.Close())
}

func TestMemoryManager_CanceledContext(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := m.WithTx(ctx, func(context.Context, Repositories) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// Concurrent fetch-and-mark transactions must never hand out the same message twice.
func TestMemoryManager_ConcurrentFetchAndMark(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()

	a, err := m.Users().Create(ctx, &models.User{UserName: "a"})
	require.NoError(t, err)
	b, err := m.Users().Create(ctx, &models.User{UserName: "b"})
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err := m.Messages().Insert(ctx, &models.Message{SenderID: a.ID, RecipientID: b.ID, Ciphertext: []byte{byte(i)}})
		require.NoError(t, err)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
		seen  = map[string]int{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithTx(ctx, func(ctx context.Context, r Repositories) error {
				msgs, err := r.Messages().FetchUndelivered(ctx, b.ID)
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(msgs))
				for _, msg := range msgs {
					ids = append(ids, msg.ID)
				}
				mu.Lock()
				total += len(msgs)
				for _, id := range ids {
					seen[id]++
				}
				mu.Unlock()
				return r.Messages().MarkDelivered(ctx, ids)
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "message %s delivered %d times", id, n)
	}
}
