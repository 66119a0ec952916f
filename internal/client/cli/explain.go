package cli

import (
	"errors"

	"github.com/dmitrijs2005/gophmail/internal/client/client"
	"github.com/dmitrijs2005/gophmail/internal/client/services"
	"github.com/dmitrijs2005/gophmail/internal/protocol"
)

var reasons = map[string]string{
	protocol.ReasonUsernameTaken:   "username is taken",
	protocol.ReasonInvalidUsername: "username must be 1-64 printable characters without spaces",
	protocol.ReasonInvalidPassword: "password must not be empty",
	protocol.ReasonStorage:         "server storage error, try again later",
	protocol.ReasonEmptyMessage:    "message is empty",
	protocol.ReasonServerBusy:      "server is busy, try again later",
	protocol.ReasonFrameTooLarge:   "message is too large",
}

// explain turns a client error into a line for the user.
func explain(err error) string {
	var se *client.StatusError
	switch {
	case errors.Is(err, client.ErrUnknownRecipient):
		return "no such recipient"
	case errors.Is(err, client.ErrOutcomeUnknown):
		return "connection lost before the server answered; the message may have been sent"
	case errors.As(err, &se):
		if text, ok := reasons[se.Reason]; ok {
			return text
		}
		return se.Error()
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.Is(err, client.ErrUnauthorized):
		return "wrong username or password"
	case errors.Is(err, client.ErrNeedLogin):
		return "log in first"
	case errors.Is(err, client.ErrInvalidCommand):
		return "not allowed now (log out first?)"
	case errors.Is(err, services.ErrNoSharedKey):
		return "no shared key configured (-k)"
	}
	return err.Error()
}
