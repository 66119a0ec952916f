package models

import "time"

// Audit event kinds.
const (
	EventConnectionAttempt = "CONNECTION_ATTEMPT"
	EventConnectionError   = "CONNECTION_ERROR"
	EventRegisterSuccess   = "REGISTER_SUCCESS"
	EventRegisterFailed    = "REGISTER_FAILED"
	EventLoginSuccess      = "LOGIN_SUCCESS"
	EventLoginFailed       = "LOGIN_FAILED"
	EventLogout            = "LOGOUT"
	EventSend              = "SEND"
	EventDeactivate        = "DEACTIVATE"
)

// Event is one row of the audit log. UserID is empty when the event is not
// tied to an account (e.g. a failed login for an unknown name).
type Event struct {
	ID        int64
	Event     string
	UserID    string
	Details   string
	CreatedAt time.Time
}
