package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/xlb/pkg/client"
	"github.com/cuemby/xlb/pkg/config"
	"github.com/cuemby/xlb/pkg/rpcserver"
	"github.com/cuemby/xlb/pkg/transport"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialCluster wires a full mesh of TCP transports, one per rank, mirroring
// pkg/rpcserver's own test helper of the same name since a Client needs a
// live server on the other end of its transport.
func dialCluster(t *testing.T, ranks ...int64) map[int64]*transport.TCPTransport {
	t.Helper()
	trs := make(map[int64]*transport.TCPTransport, len(ranks))
	addrs := make(map[int64]string, len(ranks))
	for _, r := range ranks {
		tr, err := transport.NewTCPTransport(r, "127.0.0.1:0")
		require.NoError(t, err)
		trs[r] = tr
		addrs[r] = tr.Addr()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	errCh := make(chan error, len(ranks))
	for _, r := range ranks {
		r := r
		peers := make(map[int64]string, len(ranks)-1)
		for _, o := range ranks {
			if o != r {
				peers[o] = addrs[o]
			}
		}
		go func() { errCh <- trs[r].Connect(ctx, peers) }()
	}
	for range ranks {
		require.NoError(t, <-errCh)
	}

	t.Cleanup(func() {
		for _, tr := range trs {
			tr.Close()
		}
	})
	return trs
}

func runServer(t *testing.T, rank int64, cluster *config.Cluster, tr transport.Transport) {
	t.Helper()
	srv := rpcserver.New(rank, cluster, tr, nil, nil, rpcserver.Config{PollInterval: time.Millisecond, IdleInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// TestClientPutGetRoundTrip drives the same spec §4.3 path as
// pkg/rpcserver's TestPutThenGetMatchesQueuedUnit, but through Client
// instead of hand-built envelopes, on both the putting and the getting end.
func TestClientPutGetRoundTrip(t *testing.T) {
	const serverRank, putterRank, workerRank = int64(0), int64(10), int64(11)
	cluster := &config.Cluster{Ranks: 1, Servers: 1, PendingSyncCap: 8}
	trs := dialCluster(t, serverRank, putterRank, workerRank)
	runServer(t, serverRank, cluster, trs[serverRank])

	putter := client.New(trs[putterRank], putterRank, serverRank)
	worker := client.New(trs[workerRank], workerRank, serverRank)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload := []byte("hello work")
	require.NoError(t, putter.Put(ctx, 7, putterRank, payload, client.PutOptions{Target: int64(transport.AnySource)}))

	work, err := worker.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(7), work.WorkType)
	assert.Equal(t, payload, work.Payload)
	assert.Equal(t, putterRank, work.Putter)
}

// TestClientIGetMissReturnsError covers spec §4.3's IGET non-blocking miss:
// with nothing queued for the requested work type, IGet must return
// immediately with an error rather than hang waiting on a WORKUNIT that
// will never arrive.
func TestClientIGetMissReturnsError(t *testing.T) {
	const serverRank, workerRank = int64(0), int64(21)
	cluster := &config.Cluster{Ranks: 1, Servers: 1, PendingSyncCap: 8}
	trs := dialCluster(t, serverRank, workerRank)
	runServer(t, serverRank, cluster, trs[serverRank])

	worker := client.New(trs[workerRank], workerRank, serverRank)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	work, err := worker.IGet(ctx, 99)
	assert.Error(t, err)
	assert.Nil(t, work)
}

// TestClientCreateStoreRetrieveRoundTrip covers spec §4.1's basic data path
// end to end through Client: Create an INTEGER datum, Store a value into
// it, Retrieve it back and confirm the round trip preserves the value.
func TestClientCreateStoreRetrieveRoundTrip(t *testing.T) {
	const serverRank, clientRank = int64(0), int64(30)
	cluster := &config.Cluster{Ranks: 1, Servers: 1, PendingSyncCap: 8}
	trs := dialCluster(t, serverRank, clientRank)
	runServer(t, serverRank, cluster, trs[serverRank])

	c := client.New(trs[clientRank], clientRank, serverRank)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := c.Create(ctx, 0, types.TypeInteger, types.TypeNone, types.TypeNone, "x", 1, 1, false)
	require.NoError(t, err)
	require.NotZero(t, id)

	val := types.Value{Type: types.TypeInteger, Integer: 42}
	require.NoError(t, c.Store(ctx, id, nil, types.TypeInteger, val, transport.RetrievePlan{}))

	got, err := c.Retrieve(ctx, id, nil, transport.RetrievePlan{})
	require.NoError(t, err)
	assert.Equal(t, types.TypeInteger, got.Type)
	assert.EqualValues(t, 42, got.Integer)
}

// TestClientUniqueReturnsDistinctIDs covers spec §4.1's id-reservation
// helper: repeated calls never hand back the same id twice.
func TestClientUniqueReturnsDistinctIDs(t *testing.T) {
	const serverRank, clientRank = int64(0), int64(40)
	cluster := &config.Cluster{Ranks: 1, Servers: 1, PendingSyncCap: 8}
	trs := dialCluster(t, serverRank, clientRank)
	runServer(t, serverRank, cluster, trs[serverRank])

	c := client.New(trs[clientRank], clientRank, serverRank)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, err := c.Unique(ctx)
	require.NoError(t, err)
	b, err := c.Unique(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// TestClientShutdownWorkerAcknowledged covers spec §5's orderly-shutdown
// worker half: the server must answer with a Success-coded response.
func TestClientShutdownWorkerAcknowledged(t *testing.T) {
	const serverRank, clientRank = int64(0), int64(50)
	cluster := &config.Cluster{Ranks: 1, Servers: 1, PendingSyncCap: 8}
	trs := dialCluster(t, serverRank, clientRank)
	runServer(t, serverRank, cluster, trs[serverRank])

	c := client.New(trs[clientRank], clientRank, serverRank)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.NoError(t, c.ShutdownWorker(ctx))
}
