package messages

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

// Repository stores messages and tracks their delivery.
//
// FetchUndelivered and MarkDelivered are meant to run inside one
// transaction for a given GET, so that concurrent readers never hand out
// the same message twice.
type Repository interface {
	Insert(ctx context.Context, msg *models.Message) (*models.Message, error)
	FetchUndelivered(ctx context.Context, recipientID string) ([]*models.Message, error)
	MarkDelivered(ctx context.Context, ids []string) error
}
