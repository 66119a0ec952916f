// Package services contains application services for the GophMail client.
// The messenger service seals outgoing text with the shared key, relays it
// through the protocol driver and keeps every received message in the
// local inbox so history survives server-side delivery.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/client/client"
	"github.com/dmitrijs2005/gophmail/internal/client/models"
	"github.com/dmitrijs2005/gophmail/internal/client/repositories/inbox"
	"github.com/dmitrijs2005/gophmail/internal/cryptox"
	"github.com/dmitrijs2005/gophmail/internal/dbx"
	"github.com/dmitrijs2005/gophmail/internal/protocol"
)

// ErrNoSharedKey means no message key is configured, so nothing can be
// sealed or opened.
var ErrNoSharedKey = errors.New("shared key not configured")

// Transport is the part of client.Driver the service needs.
type Transport interface {
	Register(ctx context.Context, username string, password []byte) error
	Login(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	SendMessage(ctx context.Context, recipient string, ciphertext []byte) error
	GetMessages(ctx context.Context) ([]protocol.Envelope, error)
	Username() string
	Close() error
}

// Received is a message ready for display. Unreadable is set when the
// ciphertext does not open with the shared key.
type Received struct {
	ID         string
	Sender     string
	SentAt     time.Time
	Text       string
	Unreadable bool
}

// MessengerService defines the user-facing messaging operations of the CLI.
//
// Contract:
//   - Register / Login / Logout: account and session management.
//   - Send: encrypt text for the recipient and hand it to the server.
//   - Fetch: pull new messages, store them in the inbox, return them opened.
//   - History: read the inbox without contacting the server.
//   - HistorySize: how many messages the inbox holds for the current user.
//   - Close: end the server session.
type MessengerService interface {
	Register(ctx context.Context, username string, password []byte) error
	Login(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	Send(ctx context.Context, recipient, text string) error
	Fetch(ctx context.Context) ([]Received, error)
	History(ctx context.Context, limit int) ([]Received, error)
	HistorySize(ctx context.Context) (int, error)
	CurrentUser() string
	Close() error
}

type messengerService struct {
	transport Transport
	db        *sql.DB
	cipher    *cryptox.Cipher
	now       func() time.Time
}

// NewMessengerService wires the service. cipher may be nil, in which case
// Send, Fetch and History fail with ErrNoSharedKey.
func NewMessengerService(t Transport, db *sql.DB, cipher *cryptox.Cipher) MessengerService {
	return &messengerService{transport: t, db: db, cipher: cipher, now: time.Now}
}

func (s *messengerService) Register(ctx context.Context, username string, password []byte) error {
	return s.transport.Register(ctx, username, password)
}

func (s *messengerService) Login(ctx context.Context, username string, password []byte) error {
	return s.transport.Login(ctx, username, password)
}

func (s *messengerService) Logout(ctx context.Context) error {
	return s.transport.Logout(ctx)
}

func (s *messengerService) CurrentUser() string {
	return s.transport.Username()
}

func (s *messengerService) Close() error {
	return s.transport.Close()
}

func (s *messengerService) Send(ctx context.Context, recipient, text string) error {
	if s.cipher == nil {
		return ErrNoSharedKey
	}
	ciphertext, err := s.cipher.Encrypt([]byte(text))
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return s.transport.SendMessage(ctx, recipient, ciphertext)
}

// Fetch pulls undelivered messages. They are gone from the server once
// this returns, so they are handed back even if the inbox write fails.
func (s *messengerService) Fetch(ctx context.Context) ([]Received, error) {
	if s.cipher == nil {
		return nil, ErrNoSharedKey
	}
	owner := s.transport.Username()
	if owner == "" {
		return nil, client.ErrNeedLogin
	}

	envs, err := s.transport.GetMessages(ctx)
	if err != nil {
		return nil, err
	}
	if len(envs) == 0 {
		return nil, nil
	}

	received := s.now().UTC()
	msgs := make([]*models.Message, 0, len(envs))
	for _, e := range envs {
		msgs = append(msgs, &models.Message{
			ID:         e.ID,
			Owner:      owner,
			Sender:     e.Sender,
			SentAt:     e.SentAt,
			ReceivedAt: received,
			Ciphertext: e.Ciphertext,
		})
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := inbox.NewSQLiteRepository(tx)
		for _, m := range msgs {
			if err := repo.Save(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("messages not saved to history: %w", err)
	}
	return s.open(msgs), err
}

func (s *messengerService) History(ctx context.Context, limit int) ([]Received, error) {
	if s.cipher == nil {
		return nil, ErrNoSharedKey
	}
	owner := s.transport.Username()
	if owner == "" {
		return nil, client.ErrNeedLogin
	}

	msgs, err := inbox.NewSQLiteRepository(s.db).List(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	return s.open(msgs), nil
}

func (s *messengerService) HistorySize(ctx context.Context) (int, error) {
	owner := s.transport.Username()
	if owner == "" {
		return 0, client.ErrNeedLogin
	}
	return inbox.NewSQLiteRepository(s.db).Count(ctx, owner)
}

func (s *messengerService) open(msgs []*models.Message) []Received {
	out := make([]Received, 0, len(msgs))
	for _, m := range msgs {
		r := Received{ID: m.ID, Sender: m.Sender, SentAt: m.SentAt}
		plain, err := s.cipher.Decrypt(m.Ciphertext)
		if err != nil {
			r.Unreadable = true
		} else {
			r.Text = string(plain)
		}
		out = append(out, r)
	}
	return out
}
