// Package messages provides storage for relayed messages.
package messages

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophmail/internal/dbx"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements message storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var newID = uuid.NewString

// Insert appends msg as undelivered. An empty ID is generated.
func (r *PostgresRepository) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, sender_id, recipient_id, ciphertext, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if msg.ID == "" {
		msg.ID = newID()
	}
	if _, err := r.db.ExecContext(ctx, query, msg.ID, msg.SenderID, msg.RecipientID, msg.Ciphertext, msg.SentAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	msg.Delivered = false
	return msg, nil
}

// FetchUndelivered returns the recipient's pending messages, oldest first,
// locking them for the surrounding transaction. Rows already locked by a
// concurrent GET are skipped rather than waited for.
func (r *PostgresRepository) FetchUndelivered(ctx context.Context, recipientID string) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.sender_id, u.username, m.recipient_id, m.ciphertext, m.sent_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.recipient_id = $1 AND NOT m.delivered
		ORDER BY m.sent_at, m.seq
		FOR UPDATE OF m SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		var item models.Message
		if err := rows.Scan(&item.ID, &item.SenderID, &item.SenderName, &item.RecipientID, &item.Ciphertext, &item.SentAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// MarkDelivered flags each id as delivered. Already delivered rows are left
// untouched.
func (r *PostgresRepository) MarkDelivered(ctx context.Context, ids []string) error {
	query := `
		UPDATE messages SET delivered = TRUE, delivered_at = now()
		WHERE id = $1 AND NOT delivered
	`
	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}
