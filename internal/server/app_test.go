package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/cryptox"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/protocol"
	"github.com/dmitrijs2005/gophmail/internal/protocol/frame"
	"github.com/dmitrijs2005/gophmail/internal/server/config"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.Host = "127.0.0.1"
	c.Port = freePort(t)
	c.DatabaseDSN = config.MemoryDSN
	c.CipherKey = cryptox.GenerateKey()
	c.HealthAddr = ""
	c.MetricsAddr = ""
	return c
}

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	_, port, err := net.SplitHostPort(lis.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := memoryConfig(t)
	c.CipherKey = ""

	_, err := NewApp(context.Background(), c, logging.Nop())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNewApp_StoreUnavailable(t *testing.T) {
	orig := openRepositories
	openRepositories = func(context.Context, string) (repomanager.RepositoryManager, error) {
		return nil, errors.New("connection refused")
	}
	defer func() { openRepositories = orig }()

	c := memoryConfig(t)
	c.DatabaseDSN = "postgres://nowhere"
	_, err := NewApp(context.Background(), c, logging.Nop())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "db init error")
}

func TestApp_RunServesAndStops(t *testing.T) {
	c := memoryConfig(t)
	app, err := NewApp(context.Background(), c, logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	var conn net.Conn
	require.Eventually(t, func() bool {
		conn, err = net.Dial("tcp", c.Address())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	greet, err := frame.ReadFrame(conn, frame.DefaultMaxFrameSize)
	require.NoError(t, err)
	assert.Equal(t, protocol.Greeting(), string(greet))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_RunFailsOnBusyPort(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	_, port, _ := net.SplitHostPort(lis.Addr().String())

	c := memoryConfig(t)
	c.Port, _ = strconv.Atoi(port)
	app, err := NewApp(context.Background(), c, logging.Nop())
	require.NoError(t, err)

	assert.Error(t, app.Run(context.Background()))
}

func TestApp_Deactivate(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig(t), logging.Nop())
	require.NoError(t, err)

	_, err = app.userService.Register(ctx, "alice", []byte("pw"))
	require.NoError(t, err)

	require.NoError(t, app.Deactivate(ctx, "alice"))
	_, err = app.userService.Authenticate(ctx, "alice", []byte("pw"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	assert.ErrorIs(t, app.Deactivate(ctx, "ghost"), common.ErrorNotFound)
}
