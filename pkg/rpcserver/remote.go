package rpcserver

import (
	"context"

	"github.com/cuemby/xlb/pkg/transport"
)

// forwardStore sends a remote datum's owning server a STORE_HEADER/
// STORE_PAYLOAD pair on this server's behalf, used when a notification
// (e.g. a resolved container reference) targets a datum id this server
// does not itself shard (spec §4.1 "Container reference": the referand id
// may belong to any server, per its own home-server formula).
func (s *Server) forwardStore(ctx context.Context, home int64, id int64, typ int32, raw []byte) error {
	hdr := transport.StoreHeader{ID: id, Type: typ, SubLen: 0}
	if err := s.tr.Send(ctx, home, transport.TagStoreHeader, transport.EncodeStoreHeader(hdr)); err != nil {
		return err
	}
	return s.tr.Send(ctx, home, transport.TagStorePayload, raw)
}

// forwardRefcountIncr sends a REFCOUNT_INCR request to a remote datum's
// home server, used for the referand-decrement cascade of a local Store or
// RefcountIncr mutation (spec §4.1 step 4, "destroy frees ... cascades a
// -1 read-refcount notification to every referand it held").
func (s *Server) forwardRefcountIncr(ctx context.Context, home int64, id int64, deltaRead, deltaWrite int32, scavenge bool) error {
	req := transport.RefcountIncrRequest{ID: id, ReadDelta: deltaRead, WriteDelta: deltaWrite, Scavenge: scavenge}
	return s.tr.Send(ctx, home, transport.TagRefcountIncr, transport.EncodeRefcountIncrRequest(req))
}
