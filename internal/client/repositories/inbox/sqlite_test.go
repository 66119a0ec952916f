package inbox

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/client/client"
	"github.com/dmitrijs2005/gophmail/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE inbox (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL,
  sender TEXT NOT NULL,
  sent_at INTEGER NOT NULL,
  received_at INTEGER NOT NULL,
  ciphertext BLOB NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func msg(id, owner string, sentAt time.Time) *models.Message {
	return &models.Message{
		ID:         id,
		Owner:      owner,
		Sender:     "alice",
		SentAt:     sentAt,
		ReceivedAt: sentAt.Add(time.Second),
		Ciphertext: []byte("ct-" + id),
	}
}

func TestSave_IsIdempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	m := msg("m1", "bob", now)
	require.NoError(t, r.Save(ctx, m))

	again := msg("m1", "bob", now)
	again.Ciphertext = []byte("other")
	require.NoError(t, r.Save(ctx, again))

	n, err := r.Count(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := r.List(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []byte("ct-m1"), list[0].Ciphertext)
	assert.True(t, now.Equal(list[0].SentAt))
	assert.True(t, now.Add(time.Second).Equal(list[0].ReceivedAt))
}

func TestSave_MigratedSchemaKeysOnIDOnly(t *testing.T) {
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "inbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Save(ctx, msg("m1", "bob", now)))
	require.NoError(t, r.Save(ctx, msg("m1", "carol", now)))

	n, err := r.Count(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = r.Count(ctx, "carol")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestList_OrderOwnerAndLimit(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(ctx, msg("m3", "bob", base.Add(3*time.Minute))))
	require.NoError(t, r.Save(ctx, msg("m1", "bob", base.Add(1*time.Minute))))
	require.NoError(t, r.Save(ctx, msg("m2", "bob", base.Add(2*time.Minute))))
	require.NoError(t, r.Save(ctx, msg("x1", "carol", base)))

	all, err := r.List(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(all))

	last, err := r.List(ctx, "bob", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3"}, ids(last))

	none, err := r.List(ctx, "dave", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestErrorsAreWrapped(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	err = r.Save(ctx, msg("m1", "bob", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save message")

	_, err = r.List(ctx, "bob", 0)
	require.Error(t, err)

	_, err = r.Count(ctx, "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count messages")
}

func ids(ms []*models.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}
