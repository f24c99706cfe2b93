package rpcserver

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/xlb/pkg/checkpoint"
	"github.com/cuemby/xlb/pkg/config"
	"github.com/cuemby/xlb/pkg/datastore"
	"github.com/cuemby/xlb/pkg/events"
	"github.com/cuemby/xlb/pkg/log"
	"github.com/cuemby/xlb/pkg/metrics"
	"github.com/cuemby/xlb/pkg/steal"
	"github.com/cuemby/xlb/pkg/transport"
	"github.com/cuemby/xlb/pkg/workqueue"
	"github.com/cuemby/xlb/pkg/xsync"
)

// incomingTags is the full set of tags Run polls every tick, in the order
// they are checked. TagSyncRequest is deliberately absent: the sync
// protocol's rank-order deadlock avoidance (spec §4.4) requires it to be
// consumed only through xsync.Syncer's own state machine (Initiate's
// waitForOutcome, ServeIncoming), never from a second reader racing it.
var incomingTags = []transport.Tag{
	transport.TagPut,
	transport.TagGet,
	transport.TagIGet,
	transport.TagCreate,
	transport.TagStoreSub,
	transport.TagStoreHeader,
	transport.TagStorePayload,
	transport.TagRetrieve,
	transport.TagEnumerate,
	transport.TagSubscribe,
	transport.TagRefcountIncr,
	transport.TagInsertAtomic,
	transport.TagUnique,
	transport.TagTypeOf,
	transport.TagContainerTypeOf,
	transport.TagContainerReference,
	transport.TagContainerSize,
	transport.TagLock,
	transport.TagUnlock,
	transport.TagCheckIdle,
	transport.TagShutdownWorker,
	transport.TagShutdownServer,
	// WorkUnit is outgoing-from-server in the steady case, but a peer
	// server also uses it to push units transferred by a steal (see
	// handlers_work.go's handleWorkUnitIn), so this server's own loop
	// must poll it too.
	transport.TagWorkUnit,
}

// Config bundles the tunables a Server needs beyond the wired components
// themselves (spec §4.5/§4.6 leave these as deployment choices; pkg/config
// is where a process assembles them from its topology file).
type Config struct {
	StealBudgetBytes int64
	IdleInterval     time.Duration
	PollInterval     time.Duration
}

// Server is one rank's event loop over the data store, work/request
// queues, sync protocol and checkpoint log (spec §5 "Execution model").
type Server struct {
	rank    int64
	cluster *config.Cluster
	cfg     Config
	store   *datastore.Store
	matcher *workqueue.Matcher
	idle    *steal.IdleDetector
	peers   *steal.PeerSelector
	syncer  *xsync.Syncer
	tr      transport.Transport
	ckpt    *checkpoint.Log // nil disables checkpointing
	metrics *metrics.Collector
	events  *events.Broker
	logger  zerolog.Logger

	storeStaging map[int64]*storeStaging

	stopCh chan struct{}
}

// storeStaging accumulates the STORE_SUB/STORE_HEADER pair that precedes a
// STORE_PAYLOAD from the same source rank (spec §6: the raw value travels
// in its own message since Store's payload has no fixed upper size).
type storeStaging struct {
	sub []byte
	hdr *transport.StoreHeader
}

// New wires the given components into a Server for rank, among cluster's
// topology (used to route reference writes and refcount cascades to the
// right home server, per datastore.Store.destroy's "routing ... is the
// caller's responsibility"). ckpt may be nil to disable checkpointing
// (spec §4.6 is an optional durability layer, not a hard dependency of the
// matching protocol).
func New(rank int64, cluster *config.Cluster, tr transport.Transport, ckpt *checkpoint.Log, broker *events.Broker, cfg Config) *Server {
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 50 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Millisecond
	}
	if cfg.StealBudgetBytes <= 0 {
		cfg.StealBudgetBytes = 1 << 20
	}

	store := datastore.New(int32(rank), cluster.Servers, cluster.Env.ReportLeaks)
	matcher := workqueue.NewMatcher()
	// PeerSelector indexes servers zero-based, but spec §2 places servers
	// last (server(w) = W + (w mod S)), so rank is shifted by Worker() here
	// and shifted back in attemptSteal.
	peers := steal.NewPeerSelector(rank-int64(cluster.Worker()), cluster.Servers, time.Now().UnixNano())
	s := &Server{
		rank:         rank,
		cluster:      cluster,
		cfg:          cfg,
		store:        store,
		matcher:      matcher,
		idle:         steal.NewIdleDetector(cfg.IdleInterval),
		peers:        peers,
		tr:           tr,
		ckpt:         ckpt,
		events:       broker,
		logger:       log.WithRank(rank),
		storeStaging: make(map[int64]*storeStaging),
		stopCh:       make(chan struct{}),
	}
	s.syncer = xsync.New(rank, tr, s.serveSync, cluster.PendingSyncCap)
	s.metrics = metrics.NewCollector(store, matcher.Work, matcher.Requests, s.syncer)
	return s
}

// Run drives the event loop until ctx is cancelled or Stop is called. A
// handler error is logged, not returned (see dispatch), and a failed
// TryRecv is logged and that tag skipped for the tick; Run returns
// ctx.Err() when ctx is cancelled and nil after Stop.
func (s *Server) Run(ctx context.Context) error {
	s.metrics.Start()
	defer s.metrics.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		default:
		}

		busy := false
		for _, tag := range incomingTags {
			env, ok, err := s.tr.TryRecv(transport.AnySource, tag)
			if err != nil {
				s.logger.Error().Err(err).Stringer("tag", tag).Msg("rpcserver: try_recv failed")
				continue
			}
			if !ok {
				continue
			}
			busy = true
			s.dispatch(ctx, tag, env)
		}

		served, err := s.syncer.ServeIncoming(ctx)
		if err != nil && err != xsync.ErrShutdown {
			s.logger.Error().Err(err).Msg("rpcserver: serve_incoming failed")
		}
		busy = busy || served

		if s.idle.ShouldSteal(time.Now()) {
			if err := s.attemptSteal(ctx); err != nil {
				s.logger.Debug().Err(err).Msg("rpcserver: idle steal attempt failed")
			}
		}

		if !busy {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.PollInterval):
			}
		}
	}
}

// Stop signals Run to return after its current tick.
func (s *Server) Stop() {
	close(s.stopCh)
}

// dispatch times and counts one handler invocation (pkg/metrics
// RPCRequestsTotal/RPCRequestDuration), translating a returned error into
// the outcome label and a debug log line. It sends no reply itself: a
// handler that fails before answering (a payload that does not decode, for
// instance) leaves the caller without a response.
func (s *Server) dispatch(ctx context.Context, tag transport.Tag, env transport.Envelope) {
	timer := metrics.NewTimer()
	h, ok := s.handlerFor(tag)
	if !ok {
		s.logger.Warn().Stringer("tag", tag).Msg("rpcserver: no handler registered")
		return
	}

	err := h(ctx, env)
	timer.ObserveDurationVec(metrics.RPCRequestDuration, tag.String())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.logger.Debug().Err(err).Stringer("tag", tag).Int64("source", env.Source).Msg("rpcserver: handler error")
	}
	metrics.RPCRequestsTotal.WithLabelValues(tag.String(), outcome).Inc()
}

type handlerFunc func(ctx context.Context, env transport.Envelope) error

func (s *Server) handlerFor(tag transport.Tag) (handlerFunc, bool) {
	switch tag {
	case transport.TagPut:
		return s.handlePut, true
	case transport.TagGet:
		return s.handleGet, true
	case transport.TagIGet:
		return s.handleIGet, true
	case transport.TagWorkUnit:
		return s.handleWorkUnitIn, true
	case transport.TagCreate:
		return s.handleCreate, true
	case transport.TagStoreSub:
		return s.handleStoreSub, true
	case transport.TagStoreHeader:
		return s.handleStoreHeader, true
	case transport.TagStorePayload:
		return s.handleStorePayload, true
	case transport.TagRetrieve:
		return s.handleRetrieve, true
	case transport.TagEnumerate:
		return s.handleEnumerate, true
	case transport.TagSubscribe:
		return s.handleSubscribe, true
	case transport.TagRefcountIncr:
		return s.handleRefcountIncr, true
	case transport.TagInsertAtomic:
		return s.handleInsertAtomic, true
	case transport.TagUnique:
		return s.handleUnique, true
	case transport.TagTypeOf:
		return s.handleTypeOf, true
	case transport.TagContainerTypeOf:
		return s.handleContainerTypeOf, true
	case transport.TagContainerReference:
		return s.handleContainerReference, true
	case transport.TagContainerSize:
		return s.handleContainerSize, true
	case transport.TagLock:
		return s.handleLock, true
	case transport.TagUnlock:
		return s.handleUnlock, true
	case transport.TagCheckIdle:
		return s.handleCheckIdle, true
	case transport.TagShutdownWorker:
		return s.handleShutdownWorker, true
	case transport.TagShutdownServer:
		return s.handleShutdownServer, true
	default:
		return nil, false
	}
}

// respond sends a generic Response to src, logging (not returning) a send
// failure: the caller already has its own business-logic error to return,
// and a dead peer connection is reported the next time anything tries to
// reach it.
func (s *Server) respond(ctx context.Context, src int64, code int32, payload []byte) {
	if err := s.tr.Send(ctx, src, transport.TagResponse, transport.EncodeResponse(transport.Response{Code: code, Payload: payload})); err != nil {
		s.logger.Warn().Err(err).Int64("dest", src).Msg("rpcserver: response send failed")
	}
}

// logMutation appends a best-effort checkpoint record for a data store
// mutation (spec §4.6). Checkpointing is optional durability, not a
// correctness dependency of the matching protocol, so a write failure here
// is logged rather than turned into an RPC error.
func (s *Server) logMutation(key string, value []byte) {
	if s.ckpt == nil {
		return
	}
	if err := s.ckpt.Put(key, value, false); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("rpcserver: checkpoint write failed")
		s.publish(events.EventCheckpointCRCFail, "checkpoint write failed", map[string]string{"key": key})
	}
}

// publish is a nil-safe wrapper around events.Broker.Publish: a Server
// built without a broker (e.g. in tests that don't care about
// diagnostics) still works.
func (s *Server) publish(typ events.EventType, message string, metadata map[string]string) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.New(typ, message, metadata))
}

func workTypeKey(wt int32) string { return strconv.FormatInt(int64(wt), 10) }
