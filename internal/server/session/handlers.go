package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/protocol"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
)

// statusDelivered labels GET exchanges that completed.
const statusDelivered = "DELIVERED"

func (s *Session) handleRegister(ctx context.Context) (string, error) {
	args, err := s.continueWithArgs(protocol.CmdRegister)
	if err != nil {
		return "", err
	}
	username, password := string(args[0]), args[1]
	defer common.WipeByteArray(password)

	var status string
	user, err := s.opts.Credentials.Register(ctx, username, password)
	switch {
	case err == nil:
		status = protocol.StatusRegisterSuccess
		s.opts.Auditor.Record(ctx, models.EventRegisterSuccess, user.ID, "username="+username)
	case errors.Is(err, common.ErrAlreadyExists):
		status = protocol.Failure(protocol.StatusRegisterFailed, protocol.ReasonUsernameTaken)
	case errors.Is(err, common.ErrInvalidUsername):
		status = protocol.Failure(protocol.StatusRegisterFailed, protocol.ReasonInvalidUsername)
	case errors.Is(err, common.ErrInvalidPassword):
		status = protocol.Failure(protocol.StatusRegisterFailed, protocol.ReasonInvalidPassword)
	default:
		s.logger.Error(ctx, "register failed", "error", err)
		status = protocol.Failure(protocol.StatusRegisterFailed, protocol.ReasonStorage)
	}
	if err != nil {
		s.opts.Auditor.Record(ctx, models.EventRegisterFailed, "", fmt.Sprintf("username=%s status=%s", username, status))
	}
	return status, s.write(status)
}

func (s *Session) handleLogin(ctx context.Context) (string, error) {
	args, err := s.continueWithArgs(protocol.CmdLogin)
	if err != nil {
		return "", err
	}
	username, password := string(args[0]), args[1]
	defer common.WipeByteArray(password)

	var status string
	user, err := s.opts.Credentials.Authenticate(ctx, username, password)
	switch {
	case err == nil:
		s.user = user
		s.state = StateAuthenticated
		s.logger = s.logger.With("user_id", user.ID)
		status = protocol.StatusLoginSuccess
		s.opts.Auditor.Record(ctx, models.EventLoginSuccess, user.ID, "username="+username)
	case errors.Is(err, common.ErrorUnauthorized):
		status = protocol.StatusLoginFailed
		s.opts.Auditor.Record(ctx, models.EventLoginFailed, "", "username="+username)
	default:
		s.logger.Error(ctx, "login failed", "error", err)
		status = protocol.Failure(protocol.StatusError, protocol.ReasonStorage)
	}
	return status, s.write(status)
}

func (s *Session) handleSend(ctx context.Context) (string, error) {
	args, err := s.continueWithArgs(protocol.CmdSend)
	if err != nil {
		return "", err
	}
	recipient, ciphertext := string(args[0]), args[1]

	var status string
	msg, err := s.opts.Mailbox.Send(ctx, s.user.ID, recipient, ciphertext)
	switch {
	case err == nil:
		status = protocol.StatusMessageSent
		s.opts.Auditor.Record(ctx, models.EventSend, s.user.ID,
			fmt.Sprintf("message_id=%s to=%s bytes=%d", msg.ID, recipient, len(ciphertext)))
	case errors.Is(err, common.ErrUnknownRecipient):
		status = protocol.Failure(protocol.StatusMessageFailed, protocol.ReasonUnknownRecipient)
	case errors.Is(err, common.ErrEmptyMessage):
		status = protocol.Failure(protocol.StatusMessageFailed, protocol.ReasonEmptyMessage)
	default:
		s.logger.Error(ctx, "send failed", "error", err)
		status = protocol.Failure(protocol.StatusMessageFailed, protocol.ReasonStorage)
	}
	return status, s.write(status)
}

// handleGet hands over every undelivered message. The store marks them
// delivered before the count is written, so a connection lost halfway
// loses the rest rather than delivering them twice.
//
// A non-zero count is a continuation: envelopes follow only once the client
// answers READY. Any other answer ends the exchange with INVALID_COMMAND
// and the fetched messages stay delivered.
func (s *Session) handleGet(ctx context.Context) (string, error) {
	msgs, err := s.opts.Mailbox.FetchNew(ctx, s.user.ID)
	if err != nil {
		s.logger.Error(ctx, "fetch failed", "error", err)
		status := protocol.Failure(protocol.StatusError, protocol.ReasonStorage)
		return status, s.write(status)
	}

	if err := s.write(protocol.FormatCount(len(msgs))); err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return statusDelivered, nil
	}

	reply, err := s.read()
	if err != nil {
		return "", err
	}
	if string(reply) != protocol.StatusReady {
		s.logger.Warn(ctx, "get not confirmed, messages dropped", "count", len(msgs))
		return protocol.StatusInvalidCommand, s.write(protocol.StatusInvalidCommand)
	}

	for _, m := range msgs {
		env := protocol.Envelope{ID: m.ID, Sender: m.SenderName, SentAt: m.SentAt, Ciphertext: m.Ciphertext}
		b, err := env.MarshalBinary()
		if err != nil {
			return "", err
		}
		if err := s.writeBytes(b); err != nil {
			return "", err
		}
	}
	s.opts.Metrics.Delivered(len(msgs))
	s.logger.Debug(ctx, "messages delivered", "count", len(msgs))
	return statusDelivered, nil
}

func (s *Session) handleLogout(ctx context.Context) (string, error) {
	s.opts.Auditor.Record(ctx, models.EventLogout, s.user.ID, "")
	s.user = nil
	s.state = StateUnauthenticated
	s.logger = s.opts.Logger.With("conn_id", s.id, "remote", remoteAddr(s.conn))
	return protocol.StatusLogoutSuccess, s.write(protocol.StatusLogoutSuccess)
}

func (s *Session) handleExit(ctx context.Context) (string, error) {
	s.state = StateClosed
	return protocol.StatusGoodbye, s.write(protocol.StatusGoodbye)
}

// continueWithArgs sends READY and collects the command's argument frames.
func (s *Session) continueWithArgs(cmd protocol.Command) ([][]byte, error) {
	if err := s.write(protocol.StatusReady); err != nil {
		return nil, err
	}
	return s.readArgs(cmd.ArgCount())
}
