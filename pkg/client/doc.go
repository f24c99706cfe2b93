// Package client is a thin worker-facing wrapper over pkg/transport: the
// synchronous request/response calls a worker process issues against its
// home server (spec §6's message bodies, §4.1/§4.3's operations), without
// any of the event-loop machinery pkg/rpcserver needs on the server side.
//
// Grounded on the teacher's pkg/client (_examples/cuemby-warren/pkg/client):
// a small struct wrapping one connection, one constructor, and a method per
// RPC that builds a request, sends it, and decodes the matching reply. The
// teacher dials gRPC; this package instead drives pkg/transport.Transport
// directly, since the wire protocol here is spec §6's own framed tags
// rather than protobuf.
package client
