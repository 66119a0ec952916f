package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/protocol"
	"github.com/dmitrijs2005/gophmail/internal/protocol/frame"
	"github.com/dmitrijs2005/gophmail/internal/server/metrics"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStore = fmt.Errorf("%w: connection refused", common.ErrorInternal)

type stubCredentials struct {
	user        *models.User
	err         error
	panicOnAuth bool
}

func (s *stubCredentials) Register(context.Context, string, []byte) (*models.User, error) {
	return s.user, s.err
}

func (s *stubCredentials) Authenticate(context.Context, string, []byte) (*models.User, error) {
	if s.panicOnAuth {
		panic("boom")
	}
	return s.user, s.err
}

type stubMailbox struct {
	sendErr  error
	fetchErr error
	msgs     []*models.Message
}

func (s *stubMailbox) Send(context.Context, string, string, []byte) (*models.Message, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &models.Message{ID: "m-1"}, nil
}

func (s *stubMailbox) FetchNew(context.Context, string) ([]*models.Message, error) {
	return s.msgs, s.fetchErr
}

func TestStoreFailures(t *testing.T) {
	c := connectWith(t, Options{
		Credentials: &stubCredentials{err: errStore},
	})

	assert.Equal(t, "REGISTER_FAILED:storage_error", c.exchange(protocol.CmdRegister, "alice", "pw"))
	assert.Equal(t, "ERROR:storage_error", c.exchange(protocol.CmdLogin, "alice", "pw"))
	assert.Equal(t, StateUnauthenticated, c.sess.State())
}

func TestMailboxFailures(t *testing.T) {
	c := connectWith(t, Options{
		Credentials: &stubCredentials{user: &models.User{ID: "u-1", UserName: "alice"}},
		Mailbox:     &stubMailbox{sendErr: errStore, fetchErr: errStore},
	})

	require.Equal(t, protocol.StatusLoginSuccess, c.exchange(protocol.CmdLogin, "alice", "pw"))
	assert.Equal(t, "MESSAGE_FAILED:storage_error", c.exchange(protocol.CmdSend, "bob", "x"))
	assert.Equal(t, "ERROR:storage_error", c.exchange(protocol.CmdGet))

	// still connected and authenticated
	assert.Equal(t, StateAuthenticated, c.sess.State())
	assert.Equal(t, protocol.StatusLogoutSuccess, c.exchange(protocol.CmdLogout))
}

func TestPanicIsContained(t *testing.T) {
	c := connectWith(t, Options{
		Credentials: &stubCredentials{panicOnAuth: true},
	})

	c.send(string(protocol.CmdLogin))
	require.Equal(t, protocol.StatusReady, c.recv())
	c.send("alice")
	c.send("pw")

	c.waitClosed()
	assert.Equal(t, StateClosed, c.sess.State())
	_, err := frame.ReadFrame(c.conn, frame.DefaultMaxFrameSize)
	assert.ErrorIs(t, err, frame.ErrConnectionClosed)
}

func TestMetricsRecorded(t *testing.T) {
	m := metrics.New()
	c := connectWith(t, Options{
		Credentials: &stubCredentials{user: &models.User{ID: "u-1", UserName: "alice"}},
		Mailbox:     &stubMailbox{msgs: []*models.Message{{ID: "m-1", SenderName: "bob", Ciphertext: []byte("x")}}},
		Metrics:     m,
	})

	require.Equal(t, protocol.StatusLoginSuccess, c.exchange(protocol.CmdLogin, "alice", "pw"))
	require.Len(t, c.get(), 1)
	require.Equal(t, protocol.StatusInvalidCommand, c.exchange("NOPE"))
	require.Equal(t, protocol.StatusGoodbye, c.exchange(protocol.CmdExit))
	c.waitClosed()

	expected := `
# HELP gophmail_session_messages_delivered_total Messages handed to recipients by GET.
# TYPE gophmail_session_messages_delivered_total counter
gophmail_session_messages_delivered_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "gophmail_session_messages_delivered_total"))

	n, err := testutil.GatherAndCount(m.Registry(), "gophmail_session_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
