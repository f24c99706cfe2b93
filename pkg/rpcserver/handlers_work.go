package rpcserver

import (
	"context"
	"time"

	"github.com/cuemby/xlb/pkg/events"
	"github.com/cuemby/xlb/pkg/metrics"
	"github.com/cuemby/xlb/pkg/steal"
	"github.com/cuemby/xlb/pkg/transport"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/workqueue"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// handlePut implements spec §4.3 "PUT handling". Only inline payloads are
// supported: the putter must set HasInline regardless of size. Streaming a
// large payload in a follow-up message (as STORE does via STORE_PAYLOAD) is
// a documented gap — see DESIGN.md.
func (s *Server) handlePut(ctx context.Context, env transport.Envelope) error {
	hdr, err := transport.DecodePutHeader(env.Payload)
	if err != nil {
		return err
	}
	if !hdr.HasInline {
		err := xlberr.New("rpcserver.Put", xlberr.Error, xlberr.Invalid, "non-inline PUT payloads are not supported")
		s.respond(ctx, env.Source, int32(xlberr.Error), nil)
		return err
	}

	id, err := s.store.Unique()
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}

	w := &types.WorkUnit{
		ID:          id,
		WorkType:    hdr.Type,
		Putter:      int64(hdr.Putter),
		Answer:      int64(hdr.Answer),
		Target:      int64(hdr.Target),
		Priority:    hdr.Priority,
		Timestamp:   time.Now().UnixNano(),
		Parallelism: hdr.Parallelism,
		Payload:     hdr.Inline,
	}

	outcome, ranks, err := s.matcher.Put(w)
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	s.respond(ctx, env.Source, int32(xlberr.Success), nil)

	if outcome == workqueue.PutQueued {
		return nil
	}

	metrics.MatchesTotal.WithLabelValues(workTypeKey(w.WorkType), "redirect").Inc()
	s.idle.NoteWork()
	for _, rank := range ranks {
		if err := s.sendWorkUnit(ctx, rank, w); err != nil {
			return err
		}
	}
	return nil
}

// sendWorkUnit delivers w to dest as a WORKUNIT message, the common tail
// of a PUT redirect, a matched GET, and a steal transfer.
func (s *Server) sendWorkUnit(ctx context.Context, dest int64, w *types.WorkUnit) error {
	msg := transport.WorkUnitMessage{
		ID:          w.ID,
		WorkType:    w.WorkType,
		Putter:      int32(w.Putter),
		Answer:      int32(w.Answer),
		Parallelism: w.Parallelism,
		Payload:     w.Payload,
	}
	return s.tr.Send(ctx, dest, transport.TagWorkUnit, transport.EncodeWorkUnitMessage(msg))
}

// handleGet implements spec §4.3 "GET handling": Matcher.Get either
// matches a queued unit immediately (reply WORKUNIT) or parks the rank
// (reply a Nothing-coded Response acknowledging the park, then answer
// WORKUNIT later whenever a PUT or steal matches it). A miss also attempts
// a steal, per spec §4.5's "(a) triggered by a failed GET".
func (s *Server) handleGet(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeGetRequest(env.Payload)
	if err != nil {
		return err
	}

	if w, ok := s.matcher.Get(int64(req.Rank), req.WorkType); ok {
		metrics.MatchesTotal.WithLabelValues(workTypeKey(req.WorkType), "queued_then_matched").Inc()
		s.idle.NoteWork()
		return s.sendWorkUnit(ctx, env.Source, w)
	}

	s.respond(ctx, env.Source, int32(xlberr.Nothing), nil)
	if err := s.retryParallel(ctx, req.WorkType); err != nil {
		return err
	}
	if err := s.attemptSteal(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("rpcserver: steal attempt after failed get")
	}
	return nil
}

// retryParallel re-examines workType's parallel backlog after a GET or IGET
// miss (spec §4.3 scenario S4): Matcher.Put only matches a parallel task at
// submit time, so without this call a task enqueued before enough workers
// had parked (or issued IGET) would never release once the remaining ranks
// did show up.
func (s *Server) retryParallel(ctx context.Context, workType int32) error {
	w, ranks, matched := s.matcher.RetryParallel(workType)
	if !matched {
		return nil
	}
	metrics.MatchesTotal.WithLabelValues(workTypeKey(workType), "parallel_matched").Inc()
	s.idle.NoteWork()
	for _, rank := range ranks {
		if err := s.sendWorkUnit(ctx, rank, w); err != nil {
			return err
		}
	}
	return nil
}

// handleIGet implements spec §4.3's IGET: never parks, replying FAIL on a
// miss instead.
func (s *Server) handleIGet(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeGetRequest(env.Payload)
	if err != nil {
		return err
	}

	if w, ok := s.matcher.IGet(int64(req.Rank), req.WorkType); ok {
		metrics.MatchesTotal.WithLabelValues(workTypeKey(req.WorkType), "queued_then_matched").Inc()
		s.idle.NoteWork()
		return s.sendWorkUnit(ctx, env.Source, w)
	}
	if err := s.tr.Send(ctx, env.Source, transport.TagFail, transport.EncodeFailMessage(transport.FailMessage{Code: int32(xlberr.Nothing)})); err != nil {
		return err
	}
	return s.retryParallel(ctx, req.WorkType)
}

// handleWorkUnitIn receives a unit pushed by a peer server's steal
// transfer (handleSyncSteal, on that peer) and re-enqueues it locally,
// possibly matching an already-parked local request immediately.
func (s *Server) handleWorkUnitIn(ctx context.Context, env transport.Envelope) error {
	msg, err := transport.DecodeWorkUnitMessage(env.Payload)
	if err != nil {
		return err
	}
	w := &types.WorkUnit{
		ID:          msg.ID,
		WorkType:    msg.WorkType,
		Putter:      int64(msg.Putter),
		Answer:      int64(msg.Answer),
		Target:      workqueue.AnyTarget,
		Timestamp:   time.Now().UnixNano(),
		Parallelism: msg.Parallelism,
		Payload:     msg.Payload,
	}
	s.publish(events.EventWorkStolenIn, "received stolen work unit", map[string]string{
		"peer":      itoa(env.Source),
		"work_type": workTypeKey(w.WorkType),
	})

	outcome, ranks, err := s.matcher.Put(w)
	if err != nil {
		return err
	}
	if outcome == workqueue.PutQueued {
		return nil
	}
	s.idle.NoteWork()
	for _, rank := range ranks {
		if err := s.sendWorkUnit(ctx, rank, w); err != nil {
			return err
		}
	}
	return nil
}

// serveSync is the xsync.ServeFunc this server's Syncer dispatches an
// accepted sync to (spec §4.4 "Serving an accepted sync").
func (s *Server) serveSync(ctx context.Context, peer int64, hdr transport.SyncHeader) error {
	switch hdr.Mode {
	case transport.SyncModeSteal:
		return s.serveSteal(ctx, peer)
	default:
		return nil
	}
}

// serveSteal implements the serving side of spec §4.5: compute a transfer
// plan from this server's own untargeted backlog and push the chosen
// units to peer directly as WORKUNIT messages.
func (s *Server) serveSteal(ctx context.Context, peer int64) error {
	counts := s.matcher.Work.UntargetedCounts()
	if len(counts) == 0 {
		return nil
	}
	shares := steal.Plan(counts, s.cfg.StealBudgetBytes)
	for _, share := range shares {
		units := s.matcher.Work.StealableUntargeted(share.WorkType, share.Count)
		for _, w := range units {
			if err := s.sendWorkUnit(ctx, peer, w); err != nil {
				return err
			}
			metrics.StealUnitsTotal.WithLabelValues(workTypeKey(share.WorkType)).Inc()
		}
		metrics.StealsTotal.WithLabelValues(workTypeKey(share.WorkType)).Inc()
		s.publish(events.EventWorkStolenOut, "transferred stolen work to peer", map[string]string{
			"peer":      itoa(peer),
			"work_type": workTypeKey(share.WorkType),
			"count":     itoa(int64(len(units))),
		})
	}
	return nil
}

// attemptSteal initiates spec §4.4's sync protocol against a random peer
// server with mode STEAL; the peer computes and pushes its own transfer
// plan from inside serveSteal once the sync is accepted. It is a no-op in
// a single-server cluster.
func (s *Server) attemptSteal(ctx context.Context) error {
	peer, ok := s.peers.Pick()
	if !ok {
		return nil
	}
	peer += int64(s.cluster.Worker())
	timer := metrics.NewTimer()
	err := s.syncer.Initiate(ctx, peer, transport.SyncHeader{Mode: transport.SyncModeSteal})
	timer.ObserveDuration(metrics.StealLatency)
	if err != nil {
		metrics.SyncRoundTripsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.SyncRoundTripsTotal.WithLabelValues("accepted").Inc()
	return nil
}
