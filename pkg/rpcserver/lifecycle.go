package rpcserver

import (
	"context"

	"github.com/cuemby/xlb/pkg/events"
	"github.com/cuemby/xlb/pkg/transport"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// handleCheckIdle answers whether this server currently has no queued work
// and no parked requests, used by a worker-side idle detector
// (or an orchestrating client) to decide whether the cluster has drained
// (spec §4.5's idle-detection half, mirrored server-side).
func (s *Server) handleCheckIdle(ctx context.Context, env transport.Envelope) error {
	idle := s.matcher.Work.Empty() && s.matcher.Requests.Empty()
	code := int32(xlberr.Nothing)
	if idle {
		code = int32(xlberr.Done)
	}
	s.respond(ctx, env.Source, code, nil)
	return nil
}

// handleShutdownWorker acknowledges a worker's departure. It does no
// server-side cleanup: a GET the worker left parked stays in the matcher's
// request queue.
func (s *Server) handleShutdownWorker(ctx context.Context, env transport.Envelope) error {
	s.publish(events.EventServerShutdown, "worker shutdown acknowledged", map[string]string{"worker": itoa(env.Source)})
	s.respond(ctx, env.Source, int32(xlberr.Success), nil)
	return nil
}

// handleShutdownServer implements spec §5's orderly shutdown: flush and
// close the checkpoint log, report any leaked datums, and stop Run's loop
// after this tick.
func (s *Server) handleShutdownServer(ctx context.Context, env transport.Envelope) error {
	s.respond(ctx, env.Source, int32(xlberr.Success), nil)
	s.shutdown()
	return nil
}

// Shutdown tears down this server's owned resources from outside the event
// loop — a process-level SIGINT/SIGTERM handler's path, as opposed to
// handleShutdownServer's RPC-triggered one, which the two both funnel into.
func (s *Server) Shutdown() {
	s.shutdown()
}

// shutdown tears down this server's owned resources; Run observes stopCh
// closing and returns on its next iteration.
func (s *Server) shutdown() {
	leaks := s.store.Finalize()
	for _, leak := range leaks {
		s.logger.Warn().Int64("id", leak.ID).Str("symbol", leak.Symbol).Msg("rpcserver: leaked datum at shutdown")
	}
	if s.ckpt != nil {
		if err := s.ckpt.Close(); err != nil {
			s.logger.Error().Err(err).Msg("rpcserver: checkpoint close failed")
		}
	}
	s.publish(events.EventServerShutdown, "server shutting down", map[string]string{"rank": itoa(s.rank)})
	s.Stop()
}
