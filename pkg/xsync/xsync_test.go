package xsync_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/xlb/pkg/transport"
	"github.com/cuemby/xlb/pkg/xsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialPair(t *testing.T, rankA, rankB int64) (*transport.TCPTransport, *transport.TCPTransport) {
	t.Helper()
	a, err := transport.NewTCPTransport(rankA, "127.0.0.1:0")
	require.NoError(t, err)
	b, err := transport.NewTCPTransport(rankB, "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errCh := make(chan error, 2)
	go func() { errCh <- a.Connect(ctx, map[int64]string{rankB: b.Addr()}) }()
	go func() { errCh <- b.Connect(ctx, map[int64]string{rankA: a.Addr()}) }()
	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)

	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

// TestScenarioS6ServerSyncDeadlockAvoidance: server 3 and server 5
// concurrently initiate SYNC-REQUESTs to each other. Server 3 accepts and
// serves server 5's request immediately, since it comes from a higher
// rank; server 5 defers server 3's request and only answers it once its
// own outstanding sync (to 3) resolves, draining the deferred request.
// Both Initiate calls
// eventually return without error and each side's serve callback fires
// exactly once, with no timeout required.
func TestScenarioS6ServerSyncDeadlockAvoidance(t *testing.T) {
	t3, t5 := dialPair(t, 3, 5)

	var mu sync.Mutex
	var servedOn3, servedOn5 []int64

	serverOn3 := xsync.New(3, t3, func(ctx context.Context, peer int64, hdr transport.SyncHeader) error {
		mu.Lock()
		servedOn3 = append(servedOn3, peer)
		mu.Unlock()
		return nil
	}, 8)
	serverOn5 := xsync.New(5, t5, func(ctx context.Context, peer int64, hdr transport.SyncHeader) error {
		mu.Lock()
		servedOn5 = append(servedOn5, peer)
		mu.Unlock()
		return nil
	}, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- serverOn3.Initiate(ctx, 5, transport.SyncHeader{Mode: transport.SyncModeRequest}) }()
	go func() { errCh <- serverOn5.Initiate(ctx, 3, transport.SyncHeader{Mode: transport.SyncModeRequest}) }()

	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{5}, servedOn3)
	assert.Equal(t, []int64{3}, servedOn5)
}

func TestServeIncomingAcceptsWhenIdle(t *testing.T) {
	t1, t2 := dialPair(t, 1, 2)
	var servedPeer int64 = -1
	s1 := xsync.New(1, t1, func(ctx context.Context, peer int64, hdr transport.SyncHeader) error {
		servedPeer = peer
		return nil
	}, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, t2.Send(ctx, 1, transport.TagSyncRequest, transport.EncodeSyncHeader(transport.SyncHeader{Mode: transport.SyncModeRequest})))

	var served bool
	var err error
	require.Eventually(t, func() bool {
		served, err = s1.ServeIncoming(ctx)
		return served
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(2), servedPeer)

	env, err := t2.Recv(ctx, 1, transport.TagSyncResponse)
	require.NoError(t, err)
	require.Len(t, env.Payload, 1)
	assert.Equal(t, byte(1), env.Payload[0])
}
