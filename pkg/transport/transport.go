package transport

import (
	"context"
	"time"
)

// Envelope is one framed message: a tag plus an opaque payload. Callers
// encode/decode the payload themselves (with the codecs in wire.go or
// pkg/codec for work payloads); Transport only moves tagged byte slices.
type Envelope struct {
	Tag     Tag
	Source  int64
	Payload []byte
}

// Transport is the wire transport contract of spec §6: typed point-to-point
// send and receive, probing, non-blocking receive, and synchronous send
// with a pre-posted matching receive. Implementations connect the fixed set
// of N ranks (spec §2); group-create-from-ranks for parallel-task
// communicators is optional and is not part of this minimal contract, since
// spec §6 marks it optional and no component in this repo forms ad hoc
// process groups (parallel tasks are matched by rank list and addressed
// individually, not via a sub-communicator).
type Transport interface {
	// Send delivers payload tagged as tag to dest, blocking until the
	// local send buffer accepts it (not until the peer receives it).
	Send(ctx context.Context, dest int64, tag Tag, payload []byte) error

	// Recv blocks until a message tagged tag arrives from source (or from
	// any rank, if source is AnySource), returning its envelope.
	Recv(ctx context.Context, source int64, tag Tag) (Envelope, error)

	// Probe blocks until a message tagged tag is pending from source (or
	// AnySource), without consuming it.
	Probe(ctx context.Context, source int64, tag Tag) error

	// TryProbe is Probe's non-blocking form: ok is false if no such
	// message is currently pending.
	TryProbe(source int64, tag Tag) (ok bool, err error)

	// TryRecv is Recv's non-blocking form.
	TryRecv(source int64, tag Tag) (env Envelope, ok bool, err error)

	// SyncSend blocks until dest acknowledges that the payload has been
	// handed off. No component of this module calls it: PUT's redirect
	// path in pkg/rpcserver delivers WORKUNIT messages with Send.
	SyncSend(ctx context.Context, dest int64, tag Tag, payload []byte) error

	// Close releases the transport's resources.
	Close() error
}

// AnySource matches a receive/probe against any peer rank (spec §6: "or
// any-source").
const AnySource int64 = -1

// ProbeTimeout is the pause between mailbox checks in the framed-TCP
// implementation's blocking Recv and Probe (tcp.go); TryRecv and TryProbe
// never wait. It is not part of the spec's contract itself, just the
// cooperative-scheduling granularity used by tcp.go.
const ProbeTimeout = 20 * time.Millisecond
