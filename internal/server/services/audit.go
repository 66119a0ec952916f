package services

import (
	"context"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/repomanager"
)

// AuditService writes the audit trail. Recording is best effort: a store
// failure is logged and never reaches the caller.
type AuditService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewAuditService(m repomanager.RepositoryManager, l logging.Logger) *AuditService {
	return &AuditService{repomanager: m, logger: l}
}

// Record logs and stores one event. details is cut to
// common.MaxEventDetailsLength characters.
func (s *AuditService) Record(ctx context.Context, event, userID, details string) {
	details = truncate(details, common.MaxEventDetailsLength)
	s.logger.Info(ctx, "audit", "event", event, "user_id", userID, "details", details)

	e := &models.Event{Event: event, UserID: userID, Details: details}
	if err := s.repomanager.Events().Insert(ctx, e); err != nil {
		s.logger.Warn(ctx, "audit event not stored", "event", event, "error", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
