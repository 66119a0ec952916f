// Package events stores the audit log.
package events

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, e *models.Event) error
}
