/*
Package log provides structured logging for the xlb runtime using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

xlb's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("datastore")                │          │
	│  │  - WithComponent("workqueue")                │          │
	│  │  - WithComponent("matcher")                  │          │
	│  │  - WithComponent("steal")                    │          │
	│  │  - WithComponent("sync")                     │          │
	│  │  - WithComponent("checkpoint")                │          │
	│  │  - WithComponent("server")                   │          │
	│  │  - WithComponent("transport")                │          │
	│  │  - WithRank(3)                               │          │
	│  │  - WithDatumID(101)                          │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "steal",                    │          │
	│  │    "time": "2026-01-13T10:30:00Z",         │          │
	│  │    "message": "steal completed"              │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF steal completed component=steal │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from every package in this module
  - Thread-safe concurrent writes

Log Levels:
  - Debug: routine RPC dispatch (one line per handled tag)
  - Info: lifecycle events — server start/stop, steal completed, sync accepted
  - Warn: recoverable rejects — double-write, refcount races, leak reports
  - Error: I/O failures on the checkpoint log
  - Fatal: unrecoverable startup failures (missing config, bind failure)

Configuration:
  - Level: filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: add a component name to all logs from that subsystem
  - WithRank: add this server or worker's rank (spec §2's fixed N ranks)
  - WithDatumID: add the datum id a data-store operation concerns

# Log Levels

Debug is reserved for per-RPC tracing (every tag dispatched by
pkg/rpcserver), since at cluster scale this is by far the highest-volume
level. Info marks state transitions an operator cares about across a run:
server start/stop, a steal completing, a sync being accepted. Warn marks
outcomes that are not bugs but are worth an operator's attention: a
double-write rejected, a refcount race resolved by Rejected, a leak
reported at Finalize. Error is reserved for I/O failures on the checkpoint
log's write path — the one place in this system where a failure is not a
normal application-level outcome spec §7 already has a taxonomy for.

# Component Naming

WithComponent tags a child logger with a "component" field, for filtering
with `jq 'select(.component == "steal")'`. No package in this module calls
it: pkg/rpcserver derives its server logger with WithRank.

# Usage

Initialize once at process start:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

Then derive a component logger per package:

	logger := log.WithComponent("steal").With().Int64("rank", int64(self)).Logger()
	logger.Info().Int32("work_type", wt).Int("count", n).Msg("steal completed")
*/
package log
