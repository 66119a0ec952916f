package messages

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+messages\s*\(id,\s*sender_id,\s*recipient_id,\s*ciphertext,\s*sent_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`
	fetchQ  = `(?s)^\s*SELECT\s+m\.id,\s*m\.sender_id,\s*u\.username,\s*m\.recipient_id,\s*m\.ciphertext,\s*m\.sent_at\s+FROM\s+messages\s+m\s+JOIN\s+users\s+u\s+ON\s+u\.id\s*=\s*m\.sender_id\s+WHERE\s+m\.recipient_id\s*=\s*\$1\s+AND\s+NOT\s+m\.delivered\s+ORDER\s+BY\s+m\.sent_at,\s*m\.seq\s+FOR\s+UPDATE\s+OF\s+m\s+SKIP\s+LOCKED\s*$`
	markQ   = `(?s)^\s*UPDATE\s+messages\s+SET\s+delivered\s*=\s*TRUE,\s*delivered_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+NOT\s+delivered\s*$`
)

func TestInsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	orig := newID
	newID = func() string { return "m-1" }
	defer func() { newID = orig }()

	sentAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(insertQ).
		WithArgs("m-1", "u-a", "u-b", []byte{0, 1, 2}, sentAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Insert(context.Background(), &models.Message{
		SenderID: "u-a", RecipientID: "u-b", Ciphertext: []byte{0, 1, 2}, SentAt: sentAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.ID)
	assert.False(t, got.Delivered)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Insert(context.Background(), &models.Message{ID: "m", SenderID: "a", RecipientID: "b", Ciphertext: []byte("x")})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestFetchUndelivered_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)
	rows := sqlmock.NewRows([]string{"id", "sender_id", "username", "recipient_id", "ciphertext", "sent_at"}).
		AddRow("m-1", "u-a", "alice", "u-b", []byte("c1"), t1).
		AddRow("m-2", "u-c", "carol", "u-b", []byte("c2"), t2)
	mock.ExpectQuery(fetchQ).WithArgs("u-b").WillReturnRows(rows)

	got, err := repo.FetchUndelivered(context.Background(), "u-b")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].SenderName)
	assert.Equal(t, []byte("c1"), got[0].Ciphertext)
	assert.Equal(t, "m-2", got[1].ID)
	assert.True(t, got[1].SentAt.Equal(t2))
}

func TestFetchUndelivered_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(fetchQ).WithArgs("u-b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "username", "recipient_id", "ciphertext", "sent_at"}))

	got, err := repo.FetchUndelivered(context.Background(), "u-b")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchUndelivered_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(fetchQ).WithArgs("u-b").WillReturnError(errors.New("db down"))
	_, err := repo.FetchUndelivered(context.Background(), "u-b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")

	rows := sqlmock.NewRows([]string{"id", "sender_id", "username", "recipient_id", "ciphertext", "sent_at"}).
		AddRow("m-1", "u-a", "alice", "u-b", []byte("c1"), time.Now()).
		RowError(0, errors.New("row broke"))
	mock.ExpectQuery(fetchQ).WithArgs("u-b").WillReturnRows(rows)
	_, err = repo.FetchUndelivered(context.Background(), "u-b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row broke")
}

func TestMarkDelivered(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(markQ).WithArgs("m-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(markQ).WithArgs("m-2").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDelivered(context.Background(), []string{"m-1", "m-2"}))
	require.NoError(t, repo.MarkDelivered(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDelivered_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(markQ).WithArgs("m-1").WillReturnError(errors.New("db down"))

	err := repo.MarkDelivered(context.Background(), []string{"m-1", "m-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	require.NoError(t, mock.ExpectationsWereMet())
}
