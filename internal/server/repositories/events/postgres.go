package events

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophmail/internal/dbx"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, e *models.Event) error {
	query :=
		`INSERT INTO events (event, user_id, details)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	var userID any
	if e.UserID != "" {
		userID = e.UserID
	}

	err := r.db.QueryRowContext(ctx, query, e.Event, userID, e.Details).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
