package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophmail/internal/protocol"
)

var (
	// ErrUnavailable wraps transport failures: dial errors, resets, timeouts
	// and a server that refuses the connection.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized is LOGIN_FAILED.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNeedLogin is NEED_LOGIN: the command requires an authenticated session.
	ErrNeedLogin = errors.New("login required")
	// ErrInvalidCommand is INVALID_COMMAND.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrUnknownRecipient is MESSAGE_FAILED:unknown_recipient.
	ErrUnknownRecipient = errors.New("unknown recipient")
	// ErrOutcomeUnknown means a SEND was fully written but no verdict arrived.
	// The message may or may not have been stored.
	ErrOutcomeUnknown = errors.New("outcome unknown")
	// ErrProtocol means the server sent something the exchange did not allow.
	ErrProtocol = errors.New("protocol violation")

	// Matched by *StatusError.
	ErrRegisterFailed = errors.New("register failed")
	ErrMessageFailed  = errors.New("message failed")
	ErrServer         = errors.New("server error")
)

// StatusError is a failure token sent by the server, such as
// "REGISTER_FAILED:username_taken" or "ERROR:storage_error".
type StatusError struct {
	Status string
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return "server replied " + e.Status
	}
	return fmt.Sprintf("server replied %s (%s)", e.Status, e.Reason)
}

// Is lets callers match the status class with errors.Is.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRegisterFailed:
		return e.Status == protocol.StatusRegisterFailed
	case ErrMessageFailed:
		return e.Status == protocol.StatusMessageFailed
	case ErrServer:
		return e.Status == protocol.StatusError
	case ErrUnknownRecipient:
		return e.Status == protocol.StatusMessageFailed && e.Reason == protocol.ReasonUnknownRecipient
	}
	return false
}

// statusErr maps a non-success status frame to an error.
func statusErr(s string) error {
	status, reason := protocol.SplitStatus(s)
	switch status {
	case protocol.StatusLoginFailed:
		return ErrUnauthorized
	case protocol.StatusNeedLogin:
		return ErrNeedLogin
	case protocol.StatusInvalidCommand:
		return ErrInvalidCommand
	case protocol.StatusRegisterFailed, protocol.StatusMessageFailed, protocol.StatusError:
		return &StatusError{Status: status, Reason: reason}
	}
	return fmt.Errorf("%w: unexpected reply %q", ErrProtocol, s)
}
