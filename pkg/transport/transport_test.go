package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/xlb/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialPair(t *testing.T) (*transport.TCPTransport, *transport.TCPTransport) {
	t.Helper()
	a, err := transport.NewTCPTransport(0, "127.0.0.1:0")
	require.NoError(t, err)
	b, err := transport.NewTCPTransport(1, "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errCh := make(chan error, 2)
	go func() { errCh <- a.Connect(ctx, map[int64]string{1: b.Addr()}) }()
	go func() { errCh <- b.Connect(ctx, map[int64]string{0: a.Addr()}) }()
	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)

	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func TestSendRecv(t *testing.T) {
	a, b := dialPair(t)
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, 1, transport.TagPut, []byte("hello")))
	env, err := b.Recv(ctx, 0, transport.TagPut)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), env.Payload)
	assert.Equal(t, int64(0), env.Source)
}

func TestProbeAndTryRecv(t *testing.T) {
	a, b := dialPair(t)
	ctx := context.Background()

	ok, err := b.TryProbe(0, transport.TagGet)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Send(ctx, 1, transport.TagGet, []byte("x")))
	require.NoError(t, b.Probe(ctx, 0, transport.TagGet))

	env, ok, err := b.TryRecv(0, transport.TagGet)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, transport.TagGet, env.Tag)
}

func TestSyncSendAcks(t *testing.T) {
	a, b := dialPair(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- a.SyncSend(ctx, 1, transport.TagWorkUnit, []byte("payload")) }()

	env, err := b.Recv(ctx, 0, transport.TagWorkUnit)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), env.Payload)

	require.NoError(t, <-done)
}

func TestAnySourceMatches(t *testing.T) {
	a, b := dialPair(t)
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, 1, transport.TagUnique, []byte("u")))
	env, err := b.Recv(ctx, transport.AnySource, transport.TagUnique)
	require.NoError(t, err)
	assert.Equal(t, int64(0), env.Source)
}
