// Package tcp runs the accept loop of the message server: one goroutine
// per connection, a cap on concurrent connections, and shutdown that
// closes every live connection.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/protocol"
	"github.com/dmitrijs2005/gophmail/internal/protocol/frame"
	"github.com/dmitrijs2005/gophmail/internal/server/session"
	"golang.org/x/sync/semaphore"
)

// rejectTimeout bounds the write of the busy notice to a refused client.
const rejectTimeout = time.Second

type Server struct {
	address  string
	sessions session.Options
	limit    *semaphore.Weighted
	logger   logging.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer builds a server for address that admits at most maxConns
// concurrent connections. Each connection runs a session with opts.
func NewServer(address string, maxConns int, opts session.Options, l logging.Logger) *Server {
	if maxConns <= 0 {
		maxConns = 1
	}
	return &Server{
		address:  address,
		sessions: opts,
		limit:    semaphore.NewWeighted(int64(maxConns)),
		logger:   l.With("module", "tcp_server"),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting message server", "address", listen.Addr().String())
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is canceled or lis fails.
// On return the listener and every connection are closed and all session
// goroutines have finished.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping message server...")
		case <-stop:
		}
		_ = lis.Close()
		s.closeAll()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if !s.limit.TryAcquire(1) {
			s.wg.Add(1)
			go s.reject(ctx, conn)
			continue
		}

		s.track(conn)
		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	s.sessions.Metrics.ConnectionOpened()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "connection worker panic", "panic", p)
		}
		_ = conn.Close()
		s.limit.Release(1)
		s.untrack(conn)
		s.sessions.Metrics.ConnectionClosed()
		s.wg.Done()
	}()

	session.New(conn, s.sessions).Serve(ctx)
}

func (s *Server) reject(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.sessions.Metrics.ConnectionRejected()
	s.logger.Warn(ctx, "connection limit reached, rejecting", "remote", conn.RemoteAddr().String())

	_ = conn.SetWriteDeadline(time.Now().Add(rejectTimeout))
	_ = frame.WriteString(conn, protocol.Failure(protocol.StatusError, protocol.ReasonServerBusy))
}

// track registers conn for shutdown. A connection accepted while the
// server is closing is closed at once.
func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = conn.Close()
	}
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// closeAll closes every live connection, which unblocks their sessions.
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
	}
}

// Active reports the number of connections being served.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
