// Package client contains client-side building blocks for GophMail.
//
// # Overview
//
// The package provides:
//  1. Driver, which owns one TCP connection to the relay server and runs
//     the command/READY/arguments/status exchange for REGISTER, LOGIN,
//     LOGOUT, SEND, GET and EXIT over length-prefixed frames.
//  2. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     for the CLI, wiring an SQLite database and applying embedded goose
//     migrations.
//
// # Error Handling
//
// Failures are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable for transport problems, ErrUnauthorized,
// ErrNeedLogin, ErrInvalidCommand, ErrUnknownRecipient, ErrOutcomeUnknown
// and ErrProtocol. Other failure tokens are returned as *StatusError, which
// matches ErrRegisterFailed, ErrMessageFailed or ErrServer.
//
// # Retries
//
// Any transport error tears the connection down. Login and GetMessages are
// safe to repeat and are retried with linear backoff on a fresh connection;
// GetMessages logs in again with the last accepted credentials. SendMessage
// is repeated once, and only if its arguments never reached the wire.
// Register and Logout are never repeated.
//
// Concurrency & Contexts
//
// A Driver is safe for concurrent use; calls are serialized because the
// protocol allows one exchange at a time. Every exchange is bounded by the
// context deadline or the configured timeout, whichever comes first.
package client
