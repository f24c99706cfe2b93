package rpcserver

import (
	"context"

	"github.com/cuemby/xlb/pkg/codec"
	"github.com/cuemby/xlb/pkg/datastore"
	"github.com/cuemby/xlb/pkg/events"
	"github.com/cuemby/xlb/pkg/transport"
	"github.com/cuemby/xlb/pkg/types"
)

// deliverNotifications processes the side effects of a data store mutation
// (spec §4.2 "Notifications"), delivering each to its destination rank over
// the wire and recursively handling any further notification a resolution
// produces (a reference write may itself close a datum, for instance). It
// uses a worklist rather than direct recursion so a long reference chain
// cannot grow the call stack unbounded.
func (s *Server) deliverNotifications(ctx context.Context, notifs []types.Notification) error {
	pending := append([]types.Notification(nil), notifs...)
	for len(pending) > 0 {
		n := pending[0]
		pending = pending[1:]

		more, err := s.deliverOne(ctx, n)
		if err != nil {
			return err
		}
		pending = append(pending, more...)
	}
	return nil
}

func (s *Server) deliverOne(ctx context.Context, n types.Notification) ([]types.Notification, error) {
	switch n.Kind {
	case types.KindClose:
		s.publish(events.EventDatumClosed, "datum closed", map[string]string{"datum_id": itoa(n.DatumID)})
		return nil, s.tr.Send(ctx, n.Rank, transport.TagResponse,
			transport.EncodeResponse(transport.Response{Code: 0, Payload: encodeDatumID(n.DatumID)}))

	case types.KindSubscript:
		s.publish(events.EventDatumSubscript, "container subscript filled", map[string]string{
			"datum_id":  itoa(n.DatumID),
			"subscript": string(n.Subscript),
		})
		payload := transport.EncodeSubscriptNotification(transport.SubscriptNotification{ID: n.DatumID, Sub: n.Subscript})
		return nil, s.tr.Send(ctx, n.Rank, transport.TagResponse,
			transport.EncodeResponse(transport.Response{Code: 0, Payload: payload}))

	case types.KindReferenceWrite:
		raw, err := codec.Pack(n.Value.Type, n.Value)
		if err != nil {
			return nil, err
		}
		s.publish(events.EventContainerResolved, "container reference resolved", map[string]string{
			"container_id": itoa(n.DatumID),
			"subscript":    string(n.Subscript),
			"referand_id":  itoa(n.ReferenceWrite.RefID),
		})
		if home := int64(s.cluster.HomeServerForID(n.ReferenceWrite.RefID)); home != s.rank {
			return nil, s.forwardStore(ctx, home, n.ReferenceWrite.RefID, int32(n.Value.Type), raw)
		}
		more, err := s.store.Store(n.ReferenceWrite.RefID, nil, n.Value.Type, raw, datastore.RefcountDelta{})
		if err != nil {
			return nil, err
		}
		return more, nil

	case types.KindReferandDecr:
		if home := int64(s.cluster.HomeServerForID(n.Referand)); home != s.rank {
			return nil, s.forwardRefcountIncr(ctx, home, n.Referand, -1, 0, true)
		}
		more, err := s.store.RefcountIncr(n.Referand, -1, 0, true)
		if err != nil {
			return nil, err
		}
		return more, nil

	default:
		return nil, nil
	}
}

func encodeDatumID(id int64) []byte {
	return transport.EncodeCreateResponse(transport.CreateResponse{ID: id})
}
