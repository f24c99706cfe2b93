// Package rpcserver implements Design Notes §9's server loop: the
// tag-dispatch state machine that wires pkg/datastore, pkg/workqueue,
// pkg/steal, pkg/xsync, pkg/checkpoint, pkg/metrics and pkg/events together
// behind pkg/transport.
//
// A Server owns exactly one rank's share of the cluster state and runs a
// single goroutine (Run): each tick it polls every incoming tag once with
// Transport.TryRecv, dispatches whatever arrived to the matching handler,
// lets the sync protocol's idle-polling state take its own one-shot check
// (xsync.Syncer.ServeIncoming), and triggers a steal attempt if the idle
// detector says it is time. Nothing here ever starts a second goroutine
// against the same state, matching the no-internal-locking convention
// every wired package already assumes (spec §5).
package rpcserver
