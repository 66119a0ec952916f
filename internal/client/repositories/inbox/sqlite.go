package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/client/models"
	"github.com/dmitrijs2005/gophmail/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, m *models.Message) error {
	query := `INSERT INTO inbox (id, owner, sender, sent_at, received_at, ciphertext)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, m.ID, m.Owner, m.Sender, m.SentAt.UnixNano(), m.ReceivedAt.UnixNano(), m.Ciphertext)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, owner string, limit int) ([]*models.Message, error) {
	// Newest first so LIMIT keeps the latest, reversed below.
	query := `SELECT id, owner, sender, sent_at, received_at, ciphertext
		FROM inbox WHERE owner = ?
		ORDER BY sent_at DESC, id DESC`
	args := []any{owner}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		var (
			m                  models.Message
			sentAt, receivedAt int64
		)
		if err := rows.Scan(&m.ID, &m.Owner, &m.Sender, &sentAt, &receivedAt, &m.Ciphertext); err != nil {
			return nil, err
		}
		m.SentAt = time.Unix(0, sentAt).UTC()
		m.ReceivedAt = time.Unix(0, receivedAt).UTC()
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, owner string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inbox WHERE owner = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}
