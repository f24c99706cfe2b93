package rpcserver

import (
	"context"

	"github.com/cuemby/xlb/pkg/datastore"
	"github.com/cuemby/xlb/pkg/transport"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/xlberr"
	"github.com/google/uuid"
)

// handleCreate implements spec §4.1 "Create". A blank Symbol is replaced
// with a freshly generated one, matching ADLB's convention that every
// datum is nameable for debugging even when the caller didn't ask for it.
func (s *Server) handleCreate(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeCreateRequest(env.Payload)
	if err != nil {
		return err
	}
	symbol := string(req.Symbol)
	if symbol == "" {
		symbol = uuid.NewString()
	}
	id, err := s.store.Create(req.IDHint, types.ValueType(req.Type), types.ValueType(req.KeyType), types.ValueType(req.ValType), symbol, req.ReadRefcount, req.WriteRefcount, req.Permanent)
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	return s.tr.Send(ctx, env.Source, transport.TagResponse,
		transport.EncodeResponse(transport.Response{Code: int32(xlberr.Success), Payload: transport.EncodeCreateResponse(transport.CreateResponse{ID: id})}))
}

// handleStoreSub buffers the subscript half of a STORE_SUB/STORE_HEADER/
// STORE_PAYLOAD sequence (spec §6), keyed by source rank since a server
// only ever has one in-flight STORE from a given peer at a time (the
// putter blocks for the ack before issuing another).
func (s *Server) handleStoreSub(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeStoreSubRequest(env.Payload)
	if err != nil {
		return err
	}
	st := s.stagingFor(env.Source)
	st.sub = req.Sub
	return nil
}

func (s *Server) handleStoreHeader(ctx context.Context, env transport.Envelope) error {
	hdr, err := transport.DecodeStoreHeader(env.Payload)
	if err != nil {
		return err
	}
	st := s.stagingFor(env.Source)
	st.hdr = &hdr
	return nil
}

// handleStorePayload completes the sequence: applies the mutation with the
// sub staged by an earlier STORE_SUB (if any) and the header staged by
// STORE_HEADER, then delivers any resulting notifications.
func (s *Server) handleStorePayload(ctx context.Context, env transport.Envelope) error {
	st, ok := s.storeStaging[env.Source]
	if !ok || st.hdr == nil {
		err := xlberr.New("rpcserver.Store", xlberr.Error, xlberr.Invalid, "store payload with no preceding header")
		s.respond(ctx, env.Source, int32(xlberr.Error), nil)
		return err
	}
	hdr := st.hdr
	sub := noSub(st.sub)
	delete(s.storeStaging, env.Source)

	notifs, err := s.store.Store(hdr.ID, sub, types.ValueType(hdr.Type), env.Payload, datastore.RefcountDelta{DeltaRead: hdr.ReadDecr, DeltaWrite: hdr.WriteDecr})
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	s.logMutation(itoa(hdr.ID), env.Payload)
	s.respond(ctx, env.Source, int32(xlberr.Success), nil)
	return s.deliverNotifications(ctx, notifs)
}

// stagingFor returns (creating if needed) the in-flight store buffer for
// source, used by handleStoreSub/handleStoreHeader/handleStorePayload.
func (s *Server) stagingFor(source int64) *storeStaging {
	st, ok := s.storeStaging[source]
	if !ok {
		st = &storeStaging{}
		s.storeStaging[source] = st
	}
	return st
}

// handleRetrieve implements spec §4.1 "Retrieve".
func (s *Server) handleRetrieve(ctx context.Context, env transport.Envelope) error {
	hdr, err := transport.DecodeRetrieveHeader(env.Payload)
	if err != nil {
		return err
	}
	plan := datastore.RetrievePlan{
		DecrSelfRead:      hdr.Refc.DecrSelfRead,
		DecrSelfWrite:     hdr.Refc.DecrSelfWrite,
		IncrReferandsRead: hdr.Refc.IncrReferandsRead,
	}
	typ, raw, err := s.store.Retrieve(hdr.ID, noSub(hdr.Sub), plan)
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	payload := append([]byte{byte(typ), byte(typ >> 8), byte(typ >> 16), byte(typ >> 24)}, raw...)
	s.respond(ctx, env.Source, int32(xlberr.Success), payload)
	return nil
}

// handleEnumerate implements spec §4.1 "Enumerate".
func (s *Server) handleEnumerate(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeEnumerateRequest(env.Payload)
	if err != nil {
		return err
	}
	raw, err := s.store.Enumerate(req.ID, int(req.Offset), int(req.Count))
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	s.respond(ctx, env.Source, int32(xlberr.Success), raw)
	return nil
}

// handleSubscribe implements spec §4.1 "Subscribe".
func (s *Server) handleSubscribe(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeSubscribeRequest(env.Payload)
	if err != nil {
		return err
	}
	closed, err := s.store.Subscribe(req.ID, noSub(req.Sub), int32(req.Rank))
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	return s.tr.Send(ctx, env.Source, transport.TagResponse,
		transport.EncodeResponse(transport.Response{Code: int32(xlberr.Success), Payload: transport.EncodeSubscribeResponse(transport.SubscribeResponse{AlreadyClosed: closed})}))
}

// handleRefcountIncr implements spec §4.1 "Refcount change", including the
// cross-server case where a cascading KindReferandDecr notification
// (routed here by notify.go's forwardRefcountIncr) lands at this datum's
// home server rather than originating from a client RPC.
func (s *Server) handleRefcountIncr(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeRefcountIncrRequest(env.Payload)
	if err != nil {
		return err
	}
	notifs, err := s.store.RefcountIncr(req.ID, req.ReadDelta, req.WriteDelta, req.Scavenge)
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	s.respond(ctx, env.Source, int32(xlberr.Success), nil)
	return s.deliverNotifications(ctx, notifs)
}

// handleInsertAtomic implements spec §4.1 "Insert-atomic".
func (s *Server) handleInsertAtomic(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeInsertAtomicRequest(env.Payload)
	if err != nil {
		return err
	}
	created, present, err := s.store.InsertAtomic(req.ID, req.Sub)
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	return s.tr.Send(ctx, env.Source, transport.TagResponse,
		transport.EncodeResponse(transport.Response{Code: int32(xlberr.Success), Payload: transport.EncodeInsertAtomicResponse(transport.InsertAtomicResponse{Created: created, Present: present})}))
}

// handleUnique implements spec §4.1's `unique` id-reservation operation.
func (s *Server) handleUnique(ctx context.Context, env transport.Envelope) error {
	id, err := s.store.Unique()
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	return s.tr.Send(ctx, env.Source, transport.TagResponse,
		transport.EncodeResponse(transport.Response{Code: int32(xlberr.Success), Payload: transport.EncodeUniqueResponse(transport.UniqueResponse{ID: id})}))
}

func (s *Server) handleTypeOf(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeTypeOfRequest(env.Payload)
	if err != nil {
		return err
	}
	typ, err := s.store.TypeOf(req.ID)
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	return s.tr.Send(ctx, env.Source, transport.TagResponse,
		transport.EncodeResponse(transport.Response{Code: int32(xlberr.Success), Payload: transport.EncodeTypeOfResponse(transport.TypeOfResponse{Type: int32(typ)})}))
}

func (s *Server) handleContainerTypeOf(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeContainerTypeOfRequest(env.Payload)
	if err != nil {
		return err
	}
	keyType, valType, err := s.store.ContainerTypeOf(req.ID)
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	return s.tr.Send(ctx, env.Source, transport.TagResponse,
		transport.EncodeResponse(transport.Response{Code: int32(xlberr.Success), Payload: transport.EncodeContainerTypeOfResponse(transport.ContainerTypeOfResponse{KeyType: int32(keyType), ValType: int32(valType)})}))
}

func (s *Server) handleContainerSize(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeContainerSizeRequest(env.Payload)
	if err != nil {
		return err
	}
	size, err := s.store.Size(req.ID)
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	return s.tr.Send(ctx, env.Source, transport.TagResponse,
		transport.EncodeResponse(transport.Response{Code: int32(xlberr.Success), Payload: transport.EncodeContainerSizeResponse(transport.ContainerSizeResponse{Size: int32(size)})}))
}

// handleContainerReference implements spec §4.1 "Container reference". If
// the subscript is already filled, the caller resolves immediately: bump
// the container's read refcount by one (mirroring resolveContainerReferences'
// per-reference bump) and write the value straight to the referand,
// forwarding it on if the referand isn't sharded here. Otherwise it
// registers a promise that Store's write path resolves later.
func (s *Server) handleContainerReference(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeContainerReferenceRequest(env.Payload)
	if err != nil {
		return err
	}

	typ, raw, retrieveErr := s.store.Retrieve(req.ContainerID, req.Sub, datastore.RetrievePlan{})
	if retrieveErr == nil {
		if _, err := s.store.RefcountIncr(req.ContainerID, 1, 0, false); err != nil {
			s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
			return err
		}
		s.respond(ctx, env.Source, int32(xlberr.Success), nil)
		if home := int64(s.cluster.HomeServerForID(req.ReferandID)); home != s.rank {
			return s.forwardStore(ctx, home, req.ReferandID, int32(typ), raw)
		}
		notifs, err := s.store.Store(req.ReferandID, nil, typ, raw, datastore.RefcountDelta{})
		if err != nil {
			return err
		}
		return s.deliverNotifications(ctx, notifs)
	}

	if err := s.store.ContainerReference(req.ContainerID, req.Sub, req.ReferandID, types.ValueType(req.ReferandType)); err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	s.respond(ctx, env.Source, int32(xlberr.Success), nil)
	return nil
}

func (s *Server) handleLock(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeLockRequest(env.Payload)
	if err != nil {
		return err
	}
	acquired, err := s.store.Lock(req.ID, int32(req.Rank))
	if err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	return s.tr.Send(ctx, env.Source, transport.TagResponse,
		transport.EncodeResponse(transport.Response{Code: int32(xlberr.Success), Payload: transport.EncodeLockResponse(transport.LockResponse{Acquired: acquired})}))
}

func (s *Server) handleUnlock(ctx context.Context, env transport.Envelope) error {
	req, err := transport.DecodeUnlockRequest(env.Payload)
	if err != nil {
		return err
	}
	if err := s.store.Unlock(req.ID, int32(req.Rank)); err != nil {
		s.respond(ctx, env.Source, int32(xlberr.KindOf(err)), nil)
		return err
	}
	s.respond(ctx, env.Source, int32(xlberr.Success), nil)
	return nil
}
