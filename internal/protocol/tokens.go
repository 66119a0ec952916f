package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Greeting identity.
const (
	Name    = "GOPHMAIL"
	Version = "1"
)

// Command is a client request name.
type Command string

const (
	CmdRegister Command = "REGISTER"
	CmdLogin    Command = "LOGIN"
	CmdLogout   Command = "LOGOUT"
	CmdSend     Command = "SEND"
	CmdGet      Command = "GET"
	CmdExit     Command = "EXIT"
)

// Known reports whether c is part of the protocol.
func (c Command) Known() bool {
	switch c {
	case CmdRegister, CmdLogin, CmdLogout, CmdSend, CmdGet, CmdExit:
		return true
	}
	return false
}

// ArgCount is the number of argument frames the client sends after READY.
func (c Command) ArgCount() int {
	switch c {
	case CmdRegister, CmdLogin, CmdSend:
		return 2
	default:
		return 0
	}
}

// Status tokens sent by the server.
const (
	StatusWelcome         = "WELCOME"
	StatusReady           = "READY"
	StatusRegisterSuccess = "REGISTER_SUCCESS"
	StatusRegisterFailed  = "REGISTER_FAILED"
	StatusLoginSuccess    = "LOGIN_SUCCESS"
	StatusLoginFailed     = "LOGIN_FAILED"
	StatusNeedLogin       = "NEED_LOGIN"
	StatusMessageSent     = "MESSAGE_SENT"
	StatusMessageFailed   = "MESSAGE_FAILED"
	StatusLogoutSuccess   = "LOGOUT_SUCCESS"
	StatusInvalidCommand  = "INVALID_COMMAND"
	StatusError           = "ERROR"
	StatusGoodbye         = "GOODBYE"
)

// Failure reasons carried after the colon of *_FAILED and ERROR tokens.
const (
	ReasonUsernameTaken    = "username_taken"
	ReasonInvalidUsername  = "invalid_username"
	ReasonInvalidPassword  = "invalid_password"
	ReasonStorage          = "storage_error"
	ReasonUnknownRecipient = "unknown_recipient"
	ReasonEmptyMessage     = "empty_message"
	ReasonServerBusy       = "server_busy"
	ReasonFrameTooLarge    = "frame_too_large"
)

// ErrBadGreeting is returned by ParseGreeting for anything but a WELCOME frame.
var ErrBadGreeting = errors.New("protocol: bad greeting")

// Greeting is the first frame the server sends on a new connection.
func Greeting() string {
	return fmt.Sprintf("%s %s %s", StatusWelcome, Name, Version)
}

// ParseGreeting splits a WELCOME frame into protocol name and version.
func ParseGreeting(s string) (name, version string, err error) {
	parts := strings.Fields(s)
	if len(parts) != 3 || parts[0] != StatusWelcome {
		return "", "", fmt.Errorf("%w: %q", ErrBadGreeting, s)
	}
	return parts[1], parts[2], nil
}

// Failure formats a status token with its reason, e.g. "MESSAGE_FAILED:unknown_recipient".
func Failure(status, reason string) string {
	return status + ":" + reason
}

// SplitStatus separates a status frame into token and optional reason.
func SplitStatus(s string) (status, reason string) {
	status, reason, _ = strings.Cut(s, ":")
	return status, reason
}

// FormatCount encodes the number of envelopes that follow a GET.
func FormatCount(n int) string {
	return strconv.Itoa(n)
}

// ParseCount decodes a GET count frame. Negative values are rejected.
func ParseCount(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
