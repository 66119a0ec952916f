// Package session implements the per-connection protocol state machine of
// the message server.
//
// A Session owns one connection for its whole life. It greets the client,
// then repeatedly reads a command frame, checks it against the current
// state and runs the fixed exchange for that command:
//
//	client: COMMAND
//	server: READY | count | error token
//	client: argument frames (REGISTER, LOGIN, SEND)
//	server: final status
//
// Only one exchange is in flight at a time. Sessions are never shared
// between goroutines.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/protocol"
	"github.com/dmitrijs2005/gophmail/internal/protocol/frame"
	"github.com/dmitrijs2005/gophmail/internal/server/metrics"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/google/uuid"
)

// State of a session.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Credentials registers and verifies accounts.
type Credentials interface {
	Register(ctx context.Context, username string, password []byte) (*models.User, error)
	Authenticate(ctx context.Context, username string, password []byte) (*models.User, error)
}

// Mailbox stores and hands out messages.
type Mailbox interface {
	Send(ctx context.Context, senderID, recipient string, ciphertext []byte) (*models.Message, error)
	FetchNew(ctx context.Context, userID string) ([]*models.Message, error)
}

// Auditor records security-relevant events.
type Auditor interface {
	Record(ctx context.Context, event, userID, details string)
}

// Options carries the collaborators and limits shared by all sessions.
type Options struct {
	Credentials  Credentials
	Mailbox      Mailbox
	Auditor      Auditor
	Metrics      *metrics.Metrics
	Logger       logging.Logger
	ReadTimeout  time.Duration
	MaxFrameSize uint32
}

const defaultReadTimeout = 30 * time.Second

// Session is the protocol state bound to one connection.
type Session struct {
	id     string
	conn   net.Conn
	opts   Options
	logger logging.Logger

	state State
	user  *models.User
}

// New binds a session to conn. Zero limits fall back to the defaults.
func New(conn net.Conn, opts Options) *Session {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = frame.DefaultMaxFrameSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Auditor == nil {
		opts.Auditor = nopAuditor{}
	}

	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		opts:   opts,
		logger: opts.Logger.With("conn_id", id, "remote", remoteAddr(conn)),
		state:  StateUnauthenticated,
	}
}

// ID is the connection id used in logs.
func (s *Session) ID() string { return s.id }

// State reports the current state.
func (s *Session) State() State { return s.state }

// Serve runs the session until the client exits, the connection fails or
// ctx is canceled. It always closes the connection and never panics.
func (s *Session) Serve(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "session panic", "panic", p)
			s.opts.Auditor.Record(ctx, models.EventConnectionError, s.userID(), fmt.Sprintf("panic: %v", p))
		}
		s.state = StateClosed
		_ = s.conn.Close()
	}()

	s.logger.Info(ctx, "connection accepted")
	s.opts.Auditor.Record(ctx, models.EventConnectionAttempt, "", remoteAddr(s.conn))

	if err := s.write(protocol.Greeting()); err != nil {
		s.transportError(ctx, err)
		return
	}

	for s.state != StateClosed {
		if ctx.Err() != nil {
			return
		}

		payload, err := s.read()
		if err != nil {
			s.transportError(ctx, err)
			return
		}

		cmd := protocol.Command(payload)
		start := time.Now()
		status, err := s.dispatch(ctx, cmd)
		s.opts.Metrics.Command(metricLabel(cmd), status, time.Since(start))
		if err != nil {
			s.transportError(ctx, err)
			return
		}
	}
	s.logger.Info(ctx, "connection closed by client")
}

// dispatch runs one exchange and returns the final status token. A non-nil
// error is a transport failure that ends the session.
func (s *Session) dispatch(ctx context.Context, cmd protocol.Command) (string, error) {
	if status, ok := s.reject(cmd); ok {
		s.logger.Debug(ctx, "command rejected", "command", string(cmd), "state", s.state.String(), "status", status)
		return status, s.write(status)
	}

	switch cmd {
	case protocol.CmdRegister:
		return s.handleRegister(ctx)
	case protocol.CmdLogin:
		return s.handleLogin(ctx)
	case protocol.CmdSend:
		return s.handleSend(ctx)
	case protocol.CmdGet:
		return s.handleGet(ctx)
	case protocol.CmdLogout:
		return s.handleLogout(ctx)
	default:
		return s.handleExit(ctx)
	}
}

// reject returns the error token for a command not allowed in the current
// state.
func (s *Session) reject(cmd protocol.Command) (string, bool) {
	if !cmd.Known() {
		return protocol.StatusInvalidCommand, true
	}
	switch s.state {
	case StateUnauthenticated:
		switch cmd {
		case protocol.CmdSend, protocol.CmdGet, protocol.CmdLogout:
			return protocol.StatusNeedLogin, true
		}
	case StateAuthenticated:
		switch cmd {
		case protocol.CmdRegister, protocol.CmdLogin:
			return protocol.StatusInvalidCommand, true
		}
	}
	return "", false
}

// transportError logs why the connection is going away. An oversized frame
// gets one last error frame since the stream is out of sync after it.
func (s *Session) transportError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, frame.ErrFrameTooLarge):
		s.logger.Warn(ctx, "frame too large, closing", "error", err)
		_ = s.write(protocol.Failure(protocol.StatusError, protocol.ReasonFrameTooLarge))
		s.opts.Auditor.Record(ctx, models.EventConnectionError, s.userID(), err.Error())
	case errors.Is(err, frame.ErrConnectionClosed), errors.Is(err, net.ErrClosed):
		s.logger.Info(ctx, "connection closed by peer")
	case errors.Is(err, os.ErrDeadlineExceeded):
		s.logger.Info(ctx, "connection idle, closing", "timeout", s.opts.ReadTimeout.String())
	default:
		s.logger.Warn(ctx, "connection error", "error", err)
		s.opts.Auditor.Record(ctx, models.EventConnectionError, s.userID(), err.Error())
	}
}

func (s *Session) read() ([]byte, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
		return nil, err
	}
	return frame.ReadFrame(s.conn, s.opts.MaxFrameSize)
}

// readArgs reads the n argument frames following READY.
func (s *Session) readArgs(n int) ([][]byte, error) {
	args := make([][]byte, n)
	for i := range args {
		a, err := s.read()
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	return args, nil
}

func (s *Session) write(token string) error {
	return s.writeBytes([]byte(token))
}

func (s *Session) writeBytes(b []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
		return err
	}
	return frame.WriteFrame(s.conn, b)
}

func (s *Session) userID() string {
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

func remoteAddr(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

func metricLabel(cmd protocol.Command) string {
	if cmd.Known() {
		return string(cmd)
	}
	return "UNKNOWN"
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, string, string, string) {}
