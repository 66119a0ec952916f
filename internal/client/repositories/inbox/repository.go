package inbox

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/client/models"
)

// Repository stores delivered messages on the client.
type Repository interface {
	// Save stores m unless a message with the same id is already present.
	Save(ctx context.Context, m *models.Message) error

	// List returns the owner's messages by send time, oldest first. The
	// newest limit messages are returned when limit is positive.
	List(ctx context.Context, owner string, limit int) ([]*models.Message, error)

	// Count returns how many messages the owner has.
	Count(ctx context.Context, owner string) (int, error)
}
