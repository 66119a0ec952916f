// Package services contains server-side business logic: account
// registration and authentication (UserService), message relay
// (MessageService) and the audit trail (AuditService).
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/cryptox"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/repomanager"
)

// UserService verifies and registers credentials.
type UserService struct {
	repomanager repomanager.RepositoryManager
	dummySalt   []byte
	dummyHash   []byte
}

// NewUserService constructs a UserService over the given repositories.
func NewUserService(m repomanager.RepositoryManager) *UserService {
	salt, hash := cryptox.HashPassword([]byte("gophmail"))
	return &UserService{repomanager: m, dummySalt: salt, dummyHash: hash}
}

// ValidateUsername checks a username: 1..64 characters, printable, no spaces.
func ValidateUsername(name string) error {
	if name == "" || utf8.RuneCountInString(name) > common.MaxUsernameLength || !utf8.ValidString(name) {
		return common.ErrInvalidUsername
	}
	if strings.IndexFunc(name, func(r rune) bool { return unicode.IsSpace(r) || !unicode.IsPrint(r) }) >= 0 {
		return common.ErrInvalidUsername
	}
	return nil
}

// Register creates an active user whose password is stored as a PBKDF2
// salt/hash pair. A taken name yields common.ErrAlreadyExists.
func (s *UserService) Register(ctx context.Context, username string, password []byte) (*models.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, common.ErrInvalidPassword
	}

	salt, hash := cryptox.HashPassword(password)

	var user *models.User
	// fn may be replayed on transient errors, so each attempt starts from a
	// fresh row.
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		created, err := r.Users().Create(ctx, &models.User{
			UserName:     username,
			PasswordSalt: salt,
			PasswordHash: hash,
			Active:       true,
		})
		if err != nil {
			return err
		}
		user = created
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("%w: error creating user: %w", common.ErrorInternal, err)
	}
	return user, nil
}

// Authenticate returns the user when the password matches and the account
// is active. Unknown, inactive and wrong-password cases all yield
// common.ErrorUnauthorized and take the same PBKDF2 work.
func (s *UserService) Authenticate(ctx context.Context, username string, password []byte) (*models.User, error) {
	var user *models.User
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		user, err = r.Users().GetUserByLogin(ctx, username)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.VerifyPassword(s.dummySalt, s.dummyHash, password)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: error loading user: %w", common.ErrorInternal, err)
	}

	ok := cryptox.VerifyPassword(user.PasswordSalt, user.PasswordHash, password)
	if !ok || !user.Active {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// Deactivate disables an account. Its messages are kept; it can no longer
// log in or receive new messages.
func (s *UserService) Deactivate(ctx context.Context, username string) error {
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		user, err := r.Users().GetUserByLogin(ctx, username)
		if err != nil {
			return err
		}
		return r.Users().SetActive(ctx, user.ID, false)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: error deactivating user: %w", common.ErrorInternal, err)
	}
	return nil
}
