package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/protocol"
	"github.com/dmitrijs2005/gophmail/internal/protocol/frame"
)

// Options configure a Driver. Zero values fall back to the defaults below.
type Options struct {
	Addr          string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	MaxFrameSize  uint32
	Logger        logging.Logger

	// Dial opens the transport; net.Dialer when nil.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

type credentials struct {
	username string
	password []byte
}

func (c *credentials) wipe() {
	if c != nil {
		common.WipeByteArray(c.password)
	}
}

// Driver speaks the GophMail protocol over one connection at a time.
type Driver struct {
	opts   Options
	logger logging.Logger

	mu            sync.Mutex
	conn          net.Conn
	authenticated bool
	creds         *credentials
}

// New returns a Driver for opts. It does not connect; the first call that
// needs the server does.
func New(opts Options) *Driver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = defaultRetryAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = frame.DefaultMaxFrameSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Dial == nil {
		d := &net.Dialer{Timeout: opts.Timeout}
		opts.Dial = d.DialContext
	}
	return &Driver{opts: opts, logger: opts.Logger.With("module", "client", "server", opts.Addr)}
}

// Username returns the user of the last successful login, or "".
func (d *Driver) Username() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.creds == nil {
		return ""
	}
	return d.creds.username
}

// Connect dials the server and checks its greeting. It is a no-op when a
// connection is already open.
func (d *Driver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connect(ctx)
}

// Register creates an account. It leaves the session unauthenticated.
func (d *Driver) Register(ctx context.Context, username string, password []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connect(ctx); err != nil {
		return err
	}
	status, _, err := d.exchange(ctx, protocol.CmdRegister, []byte(username), password)
	if err != nil {
		return err
	}
	if status == protocol.StatusRegisterSuccess {
		return nil
	}
	return d.statusErr(status)
}

// Login authenticates the session. On success the credentials are kept so
// that GetMessages and SendMessage can restore the session after a
// reconnect.
func (d *Driver) Login(ctx context.Context, username string, password []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.withRetry(ctx, d.opts.RetryAttempts, func(ctx context.Context) error {
		if err := d.connect(ctx); err != nil {
			return err
		}
		return d.login(ctx, username, password)
	})
	if err != nil {
		return err
	}

	d.creds.wipe()
	d.creds = &credentials{username: username, password: append([]byte(nil), password...)}
	return nil
}

// Logout ends the authenticated session and forgets the credentials.
func (d *Driver) Logout(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.creds.wipe()
	d.creds = nil

	if d.conn == nil {
		d.authenticated = false
		return nil
	}
	status, _, err := d.exchange(ctx, protocol.CmdLogout)
	if err != nil {
		return err
	}
	if status != protocol.StatusLogoutSuccess {
		return d.statusErr(status)
	}
	d.authenticated = false
	return nil
}

// SendMessage stores ciphertext for recipient. A transport failure before
// the arguments were fully written is retried once; after that the result
// is ErrOutcomeUnknown.
func (d *Driver) SendMessage(ctx context.Context, recipient string, ciphertext []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.withRetry(ctx, 2, func(ctx context.Context) error {
		if err := d.ensureSession(ctx); err != nil {
			return err
		}
		status, written, err := d.exchange(ctx, protocol.CmdSend, []byte(recipient), ciphertext)
		if err != nil {
			if written {
				return fmt.Errorf("%w: %w", ErrOutcomeUnknown, err)
			}
			return err
		}
		if status == protocol.StatusMessageSent {
			return nil
		}
		return d.statusErr(status)
	})
}

// GetMessages hands back every message waiting for the logged in user. The
// server marks them delivered as it reads them, so envelopes lost to a
// broken connection are not offered again.
func (d *Driver) GetMessages(ctx context.Context) ([]protocol.Envelope, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var envs []protocol.Envelope
	err := d.withRetry(ctx, d.opts.RetryAttempts, func(ctx context.Context) error {
		if err := d.ensureSession(ctx); err != nil {
			return err
		}
		var err error
		envs, err = d.get(ctx)
		return err
	})
	return envs, err
}

// Close says EXIT and closes the connection. Credentials are wiped.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.creds.wipe()
	d.creds = nil
	if d.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()
	status, _, err := d.exchange(ctx, protocol.CmdExit)
	if err != nil {
		// exchange already dropped the connection.
		return nil
	}
	if status != protocol.StatusGoodbye {
		d.logger.Debug(ctx, "unexpected reply to exit", "status", status)
	}
	conn := d.conn
	d.reset()
	return conn.Close()
}

func (d *Driver) connect(ctx context.Context) error {
	if d.conn != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	conn, err := d.opts.Dial(ctx, "tcp", d.opts.Addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	d.conn = conn
	d.authenticated = false

	disarm := d.arm(ctx)
	defer disarm()

	greeting, err := d.read(ctx)
	if err != nil {
		return err
	}
	name, version, err := protocol.ParseGreeting(greeting)
	if err != nil {
		d.drop()
		if status, _ := protocol.SplitStatus(greeting); status == protocol.StatusError {
			return fmt.Errorf("%w: %w", ErrUnavailable, statusErr(greeting))
		}
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if name != protocol.Name || version != protocol.Version {
		d.drop()
		return fmt.Errorf("%w: unsupported server %s %s", ErrProtocol, name, version)
	}
	d.logger.Debug(ctx, "connected", "local", conn.LocalAddr().String())
	return nil
}

// ensureSession connects and, when credentials are remembered, restores
// the authenticated session. Without credentials the server answers
// NEED_LOGIN itself.
func (d *Driver) ensureSession(ctx context.Context) error {
	if err := d.connect(ctx); err != nil {
		return err
	}
	if d.authenticated || d.creds == nil {
		return nil
	}
	d.logger.Debug(ctx, "restoring session", "username", d.creds.username)
	err := d.login(ctx, d.creds.username, d.creds.password)
	if errors.Is(err, ErrUnauthorized) {
		d.creds.wipe()
		d.creds = nil
	}
	return err
}

func (d *Driver) login(ctx context.Context, username string, password []byte) error {
	status, _, err := d.exchange(ctx, protocol.CmdLogin, []byte(username), password)
	if err != nil {
		return err
	}
	if status != protocol.StatusLoginSuccess {
		return d.statusErr(status)
	}
	d.authenticated = true
	return nil
}

func (d *Driver) get(ctx context.Context) ([]protocol.Envelope, error) {
	disarm := d.arm(ctx)
	defer disarm()

	if err := d.write(ctx, []byte(protocol.CmdGet)); err != nil {
		return nil, err
	}
	reply, err := d.read(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := protocol.ParseCount(reply)
	if !ok {
		return nil, d.statusErr(reply)
	}
	if n == 0 {
		return []protocol.Envelope{}, nil
	}
	// The server has already marked these delivered.
	if err := d.write(ctx, []byte(protocol.StatusReady)); err != nil {
		return nil, err
	}

	envs := make([]protocol.Envelope, 0, n)
	for i := 0; i < n; i++ {
		b, err := d.readBytes(ctx)
		if err != nil {
			return nil, err
		}
		var env protocol.Envelope
		if err := env.UnmarshalBinary(b); err != nil {
			d.drop()
			return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// exchange runs one command. Commands with arguments wait for READY first;
// any other reply is the final status. written reports whether every
// argument frame reached the transport.
func (d *Driver) exchange(ctx context.Context, cmd protocol.Command, args ...[]byte) (status string, written bool, err error) {
	if d.conn == nil {
		return "", false, fmt.Errorf("%w: not connected", ErrUnavailable)
	}
	disarm := d.arm(ctx)
	defer disarm()

	if err := d.write(ctx, []byte(cmd)); err != nil {
		return "", false, err
	}
	reply, err := d.read(ctx)
	if err != nil {
		return "", false, err
	}
	if cmd.ArgCount() == 0 || reply != protocol.StatusReady {
		return reply, false, nil
	}

	for _, a := range args {
		if err := d.write(ctx, a); err != nil {
			return "", false, err
		}
	}
	reply, err = d.read(ctx)
	if err != nil {
		return "", true, err
	}
	return reply, true, nil
}

// arm bounds the coming I/O by the context deadline or the configured
// timeout, and unblocks it early if ctx is cancelled.
func (d *Driver) arm(ctx context.Context) func() {
	conn := d.conn
	deadline := time.Now().Add(d.opts.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	return func() { stop() }
}

func (d *Driver) write(ctx context.Context, payload []byte) error {
	if err := frame.WriteFrame(d.conn, payload); err != nil {
		return d.fail(ctx, err)
	}
	return nil
}

func (d *Driver) read(ctx context.Context) (string, error) {
	b, err := d.readBytes(ctx)
	return string(b), err
}

func (d *Driver) readBytes(ctx context.Context) ([]byte, error) {
	b, err := frame.ReadFrame(d.conn, d.opts.MaxFrameSize)
	if err != nil {
		return nil, d.fail(ctx, err)
	}
	return b, nil
}

// statusErr converts a failure token and drops the connection when the
// server is about to close it.
func (d *Driver) statusErr(status string) error {
	if _, reason := protocol.SplitStatus(status); reason == protocol.ReasonFrameTooLarge {
		d.drop()
	}
	return statusErr(status)
}

// fail drops the connection after a transport error.
func (d *Driver) fail(ctx context.Context, err error) error {
	d.drop()
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	d.logger.Debug(ctx, "connection lost", "error", err)
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func (d *Driver) drop() {
	if d.conn != nil {
		_ = d.conn.Close()
	}
	d.reset()
}

func (d *Driver) reset() {
	d.conn = nil
	d.authenticated = false
}
