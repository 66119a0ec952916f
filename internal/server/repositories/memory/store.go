// Package memory provides in-process implementations of the server
// repositories. It backs tests and the "memory" DSN; nothing survives a
// restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/google/uuid"
)

// Store holds all tables. Every method takes the store mutex, so each call
// is atomic on its own; multi-call atomicity is provided by the repository
// manager that serializes transactions.
type Store struct {
	mu       sync.Mutex
	users    map[string]*models.User
	byName   map[string]string
	messages []*models.Message
	events   []*models.Event
	seq      int64
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]*models.User),
		byName: make(map[string]string),
		now:    time.Now,
	}
}

// Users returns a users.Repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Messages returns a messages.Repository view of the store.
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s: s} }

// Events returns an events.Repository view of the store.
func (s *Store) Events() *EventRepository { return &EventRepository{s: s} }

// EventLog returns a copy of the stored audit events.
func (s *Store) EventLog() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out
}

// MessageCount returns the number of stored messages, delivered or not.
func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.byName[user.UserName]; ok {
		return nil, common.ErrAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = r.s.now()

	stored := *user
	r.s.users[user.ID] = &stored
	r.s.byName[user.UserName] = user.ID
	return user, nil
}

func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.byName[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := *r.s.users[id]
	return &u, nil
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Active = active
	return nil
}

type MessageRepository struct{ s *Store }

func (r *MessageRepository) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[msg.SenderID]; !ok {
		return nil, common.ErrorNotFound
	}
	if _, ok := r.s.users[msg.RecipientID]; !ok {
		return nil, common.ErrorNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Delivered = false
	msg.DeliveredAt = nil

	stored := *msg
	stored.Ciphertext = append([]byte(nil), msg.Ciphertext...)
	r.s.messages = append(r.s.messages, &stored)
	return msg, nil
}

func (r *MessageRepository) FetchUndelivered(ctx context.Context, recipientID string) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Message
	for _, m := range r.s.messages {
		if m.RecipientID != recipientID || m.Delivered {
			continue
		}
		cp := *m
		cp.SenderName = r.s.users[m.SenderID].UserName
		out = append(out, &cp)
	}
	// messages is in insertion order, so a stable sort keeps ties ordered.
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (r *MessageRepository) MarkDelivered(ctx context.Context, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	now := r.s.now()
	for _, m := range r.s.messages {
		if _, ok := want[m.ID]; ok && !m.Delivered {
			m.Delivered = true
			at := now
			m.DeliveredAt = &at
		}
	}
	return nil
}

type EventRepository struct{ s *Store }

func (r *EventRepository) Insert(ctx context.Context, e *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq++
	e.ID = r.s.seq
	e.CreatedAt = r.s.now()
	cp := *e
	r.s.events = append(r.s.events, &cp)
	return nil
}
