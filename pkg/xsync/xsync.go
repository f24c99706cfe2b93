// Package xsync implements the server-to-server sync protocol of spec
// §4.4: rank-order deadlock avoidance for the mutual-RPC problem that
// arises whenever two servers need to call each other (for notifications,
// reference writes, or steals). Named xsync, not sync, to avoid colliding
// with the standard library package every other file in this module also
// imports.
//
// Design Notes §9 calls for this to be "an explicit state machine over
// {idle-polling, sync-initiating, sync-serving, shutting-down} that calls
// into the transport's non-blocking primitives" rather than
// thread-per-peer, which would reintroduce the deadlock the protocol
// exists to prevent. Syncer is that state machine: Initiate drives
// sync-initiating (interleaved with sync-serving for higher-ranked
// intruders), and ServeIncoming drives idle-polling's one-shot check for a
// fresh request.
package xsync

import (
	"context"
	"time"

	"github.com/cuemby/xlb/pkg/transport"
)

const (
	respAccept = byte(1)
	respReject = byte(0)
)

// ServeFunc dispatches an accepted sync by mode (spec §4.4 "Serving an
// accepted sync"): REQUEST enters the peer-serving RPC loop (represented
// here as a single callback invocation — the rpcserver package drives any
// further tagged exchange with peer before returning), STEAL runs §4.5.
// Implementations should not block on anything but peer itself.
type ServeFunc func(ctx context.Context, peer int64, hdr transport.SyncHeader) error

// pendingRequest is one lower-ranked peer's deferred SYNC-REQUEST (spec
// §4.4 "pending_requests").
type pendingRequest struct {
	peer int64
	hdr  transport.SyncHeader
}

// Syncer holds one server's sync protocol state: whether it currently has
// an outstanding initiated sync, and the bounded queue of lower-ranked
// peers' requests deferred until the current sync completes.
type Syncer struct {
	self      int64
	transport transport.Transport
	serve     ServeFunc

	pendingCap int
	pending    []pendingRequest

	pollInterval time.Duration
}

// New creates a Syncer for rank self, communicating over t and dispatching
// accepted syncs to serve. pendingCap bounds spec §4.4's "bounded_queue" —
// once full, further lower-ranked requests are rejected rather than
// queued.
func New(self int64, t transport.Transport, serve ServeFunc, pendingCap int) *Syncer {
	return &Syncer{
		self:         self,
		transport:    t,
		serve:        serve,
		pendingCap:   pendingCap,
		pollInterval: 2 * time.Millisecond,
	}
}

// PendingCount returns the number of lower-ranked requests currently
// deferred, for metrics collection (pkg/metrics PendingSyncRequests).
func (s *Syncer) PendingCount() int {
	return len(s.pending)
}

// ErrShutdown is returned by Initiate/ServeIncoming when a SHUTDOWN-SERVER
// message terminates the loop (spec §4.4 step 1c).
type shutdownErr struct{}

func (shutdownErr) Error() string { return "xsync: shutdown" }

// ErrShutdown is the sentinel value Initiate/ServeIncoming return on a
// SHUTDOWN-SERVER message.
var ErrShutdown error = shutdownErr{}

// Initiate runs spec §4.4 step 1 end to end: send a SYNC-REQUEST to peer
// and loop, probing for a response, an intruding incoming request, or
// shutdown, retrying on reject until accepted (or ctx is done). On
// success, any peers whose requests were queued while this sync was in
// progress are served before Initiate returns, per "Enqueued requests are
// served after the current sync completes."
func (s *Syncer) Initiate(ctx context.Context, peer int64, hdr transport.SyncHeader) error {
	for {
		if err := s.transport.Send(ctx, peer, transport.TagSyncRequest, transport.EncodeSyncHeader(hdr)); err != nil {
			return err
		}

		accepted, err := s.waitForOutcome(ctx, peer)
		if err != nil {
			return err
		}
		if accepted {
			return s.drainPending(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval * 5):
		}
	}
}

// waitForOutcome probes for the three events of spec §4.4 step 1 while a
// request to peer is outstanding: the matching SYNC-RESPONSE (returned),
// an intruding SYNC-REQUEST from another rank o (handled per the
// rank-order rule, then probing continues), or shutdown.
func (s *Syncer) waitForOutcome(ctx context.Context, peer int64) (accepted bool, err error) {
	for {
		if env, ok, rerr := s.transport.TryRecv(peer, transport.TagSyncResponse); rerr == nil && ok {
			return len(env.Payload) > 0 && env.Payload[0] == respAccept, nil
		}

		if env, ok, rerr := s.transport.TryRecv(transport.AnySource, transport.TagSyncRequest); rerr == nil && ok {
			if err := s.handleIncoming(ctx, env); err != nil {
				return false, err
			}
		}

		if _, ok, rerr := s.transport.TryRecv(transport.AnySource, transport.TagShutdownServer); rerr == nil && ok {
			return false, ErrShutdown
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// handleIncoming applies spec §4.4 step 1b's rank-order rule to an
// intruding SYNC-REQUEST received from env.Source while our own request is
// outstanding.
func (s *Syncer) handleIncoming(ctx context.Context, env transport.Envelope) error {
	hdr, err := transport.DecodeSyncHeader(env.Payload)
	if err != nil {
		return err
	}
	o := env.Source

	if o > s.self {
		if err := s.transport.Send(ctx, o, transport.TagSyncResponse, []byte{respAccept}); err != nil {
			return err
		}
		return s.serve(ctx, o, hdr)
	}

	if len(s.pending) < s.pendingCap {
		s.pending = append(s.pending, pendingRequest{peer: o, hdr: hdr})
		return nil
	}
	return s.transport.Send(ctx, o, transport.TagSyncResponse, []byte{respReject})
}

// drainPending serves every request queued while a sync was in progress,
// FIFO, accepting each just before serving it (spec §4.4: "Enqueued
// requests are served after the current sync completes").
func (s *Syncer) drainPending(ctx context.Context) error {
	pending := s.pending
	s.pending = nil
	for _, req := range pending {
		if err := s.transport.Send(ctx, req.peer, transport.TagSyncResponse, []byte{respAccept}); err != nil {
			return err
		}
		if err := s.serve(ctx, req.peer, req.hdr); err != nil {
			return err
		}
	}
	return nil
}

// ServeIncoming implements the "idle-polling" state's one-shot check: when
// this server has no sync of its own outstanding, any incoming
// SYNC-REQUEST is accepted unconditionally (there is no competing request
// to rank-order against) and served immediately. It returns (false, nil)
// if nothing was pending.
func (s *Syncer) ServeIncoming(ctx context.Context) (served bool, err error) {
	env, ok, err := s.transport.TryRecv(transport.AnySource, transport.TagSyncRequest)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	hdr, err := transport.DecodeSyncHeader(env.Payload)
	if err != nil {
		return false, err
	}
	if err := s.transport.Send(ctx, env.Source, transport.TagSyncResponse, []byte{respAccept}); err != nil {
		return false, err
	}
	return true, s.serve(ctx, env.Source, hdr)
}
