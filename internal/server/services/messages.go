package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/cryptox"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/repomanager"
)

// MessageService relays messages between accounts.
//
// Payloads are end-to-end ciphertext produced by clients; the service seals
// them once more with the server key before they reach the store and opens
// them on the way out.
type MessageService struct {
	repomanager repomanager.RepositoryManager
	cipher      *cryptox.Cipher
	logger      logging.Logger
	now         func() time.Time
}

// NewMessageService constructs a MessageService.
func NewMessageService(m repomanager.RepositoryManager, c *cryptox.Cipher, l logging.Logger) *MessageService {
	return &MessageService{repomanager: m, cipher: c, logger: l, now: time.Now}
}

// Send stores ciphertext for recipient. Unknown or deactivated recipients
// yield common.ErrUnknownRecipient; an empty payload common.ErrEmptyMessage.
func (s *MessageService) Send(ctx context.Context, senderID, recipient string, ciphertext []byte) (*models.Message, error) {
	if len(ciphertext) == 0 {
		return nil, common.ErrEmptyMessage
	}

	sealed, err := s.cipher.Encrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	var msg *models.Message
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		to, err := r.Users().GetUserByLogin(ctx, recipient)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUnknownRecipient
			}
			return err
		}
		if !to.Active {
			return common.ErrUnknownRecipient
		}

		msg, err = r.Messages().Insert(ctx, &models.Message{
			SenderID:    senderID,
			RecipientID: to.ID,
			Ciphertext:  sealed,
			SentAt:      s.now().UTC(),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrUnknownRecipient) {
			return nil, common.ErrUnknownRecipient
		}
		return nil, fmt.Errorf("%w: error storing message: %w", common.ErrorInternal, err)
	}
	return msg, nil
}

// FetchNew returns the user's undelivered messages, oldest first, and marks
// them delivered in the same transaction. A second call returns only
// messages stored after the first one.
//
// A stored payload that no longer opens with the server key is logged and
// dropped; it is still marked delivered.
func (s *MessageService) FetchNew(ctx context.Context, userID string) ([]*models.Message, error) {
	var pending []*models.Message
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		pending, err = r.Messages().FetchUndelivered(ctx, userID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		ids := make([]string, 0, len(pending))
		for _, m := range pending {
			ids = append(ids, m.ID)
		}
		return r.Messages().MarkDelivered(ctx, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: error fetching messages: %w", common.ErrorInternal, err)
	}

	out := make([]*models.Message, 0, len(pending))
	for _, m := range pending {
		plain, err := s.cipher.Decrypt(m.Ciphertext)
		if err != nil {
			s.logger.Error(ctx, "dropping undecryptable message", "message_id", m.ID, "error", err)
			continue
		}
		m.Ciphertext = plain
		m.Delivered = true
		out = append(out, m)
	}
	return out, nil
}
