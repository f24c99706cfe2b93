package client

import (
	"context"
	"time"

	"github.com/cuemby/xlb/pkg/codec"
	"github.com/cuemby/xlb/pkg/transport"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// Client issues spec §6 RPCs against one rank's home server over an
// already-connected Transport. It holds no queueing or retry state of its
// own: every call here is a single blocking request/response round trip,
// mirroring how a worker process actually drives the store and work queue
// (spec §5's "workers ... issue blocking calls and otherwise just run
// tasks").
type Client struct {
	tr   transport.Transport
	self int64
	home int64
}

// New wraps tr for a worker at rank self whose requests are routed to home
// (spec §2's HomeServer mapping — the caller, not this package, decides
// which server that is, since Client has no cluster topology of its own).
func New(tr transport.Transport, self, home int64) *Client {
	return &Client{tr: tr, self: self, home: home}
}

// Close releases the underlying transport.
func (c *Client) Close() error { return c.tr.Close() }

func (c *Client) recvResponse(ctx context.Context) (transport.Response, error) {
	env, err := c.tr.Recv(ctx, c.home, transport.TagResponse)
	if err != nil {
		return transport.Response{}, err
	}
	return transport.DecodeResponse(env.Payload)
}

func asError(op string, resp transport.Response) error {
	kind := xlberr.Kind(resp.Code)
	if kind == xlberr.Success {
		return nil
	}
	return xlberr.New(op, kind, xlberr.None, "server rejected request")
}

// PutOptions carries the optional fields of spec §6's put_hdr beyond the
// work type and payload every PUT needs.
type PutOptions struct {
	Priority    int32
	Target      int64 // workqueue.AnyTarget unless explicitly targeted
	Parallelism int32
}

// Put implements spec §4.3 PUT: enqueue payload as a unit of workType,
// inline (this client never streams a follow-up payload message, matching
// pkg/rpcserver's documented inline-only PUT support).
func (c *Client) Put(ctx context.Context, workType int32, answer int64, payload []byte, opts PutOptions) error {
	hdr := transport.PutHeader{
		Type:        workType,
		Priority:    opts.Priority,
		Putter:      int32(c.self),
		Answer:      int32(answer),
		Target:      int32(opts.Target),
		Length:      int32(len(payload)),
		Parallelism: opts.Parallelism,
		HasInline:   true,
		Inline:      payload,
	}
	if err := c.tr.Send(ctx, c.home, transport.TagPut, transport.EncodePutHeader(hdr)); err != nil {
		return err
	}
	resp, err := c.recvResponse(ctx)
	if err != nil {
		return err
	}
	return asError("client.Put", resp)
}

// Get implements spec §4.3 GET: blocks until a unit of workType is
// assigned to this rank, whether matched immediately or after parking. The
// server's Nothing-coded acknowledgment of a park (sent over TagResponse)
// is not consumed here — Get only waits on the WORKUNIT that eventually
// answers it, since the two outcomes share no correlation id to
// distinguish an unrelated Response from this call's own park ack.
func (c *Client) Get(ctx context.Context, workType int32) (*types.WorkUnit, error) {
	req := transport.GetRequest{Rank: int32(c.self), WorkType: workType}
	if err := c.tr.Send(ctx, c.home, transport.TagGet, transport.EncodeGetRequest(req)); err != nil {
		return nil, err
	}
	env, err := c.tr.Recv(ctx, c.home, transport.TagWorkUnit)
	if err != nil {
		return nil, err
	}
	msg, err := transport.DecodeWorkUnitMessage(env.Payload)
	if err != nil {
		return nil, err
	}
	return workUnitFromMessage(msg), nil
}

// IGet implements spec §4.3 IGET: never parks, racing the two possible
// terminal replies (a matched WORKUNIT or a FAIL) since nothing on the
// wire distinguishes them in advance.
func (c *Client) IGet(ctx context.Context, workType int32) (*types.WorkUnit, error) {
	req := transport.GetRequest{Rank: int32(c.self), WorkType: workType}
	if err := c.tr.Send(ctx, c.home, transport.TagIGet, transport.EncodeGetRequest(req)); err != nil {
		return nil, err
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	type result struct {
		work *types.WorkUnit
		err  error
	}
	winner := make(chan result, 2)
	go func() {
		env, err := c.tr.Recv(raceCtx, c.home, transport.TagWorkUnit)
		if err != nil {
			winner <- result{err: err}
			return
		}
		msg, err := transport.DecodeWorkUnitMessage(env.Payload)
		if err != nil {
			winner <- result{err: err}
			return
		}
		winner <- result{work: workUnitFromMessage(msg)}
	}()
	go func() {
		env, err := c.tr.Recv(raceCtx, c.home, transport.TagFail)
		if err != nil {
			winner <- result{err: err}
			return
		}
		fail, err := transport.DecodeFailMessage(env.Payload)
		if err != nil {
			winner <- result{err: err}
			return
		}
		winner <- result{err: xlberr.New("client.IGet", xlberr.Kind(fail.Code), xlberr.None, "no matching work")}
	}()
	r := <-winner
	return r.work, r.err
}

func workUnitFromMessage(msg transport.WorkUnitMessage) *types.WorkUnit {
	return &types.WorkUnit{
		ID:          msg.ID,
		WorkType:    msg.WorkType,
		Putter:      int64(msg.Putter),
		Answer:      int64(msg.Answer),
		Timestamp:   time.Now().UnixNano(),
		Parallelism: msg.Parallelism,
		Payload:     msg.Payload,
	}
}

// Create implements spec §4.1 Create. A zero idHint lets the server assign
// the id.
func (c *Client) Create(ctx context.Context, idHint int64, typ, keyType, valType types.ValueType, symbol string, readRefcount, writeRefcount int32, permanent bool) (int64, error) {
	req := transport.CreateRequest{
		IDHint:        idHint,
		Type:          int32(typ),
		KeyType:       int32(keyType),
		ValType:       int32(valType),
		ReadRefcount:  readRefcount,
		WriteRefcount: writeRefcount,
		Permanent:     permanent,
		Symbol:        []byte(symbol),
	}
	if err := c.tr.Send(ctx, c.home, transport.TagCreate, transport.EncodeCreateRequest(req)); err != nil {
		return 0, err
	}
	resp, err := c.recvResponse(ctx)
	if err != nil {
		return 0, err
	}
	if err := asError("client.Create", resp); err != nil {
		return 0, err
	}
	created, err := transport.DecodeCreateResponse(resp.Payload)
	return created.ID, err
}

// Store implements spec §4.1 Store for a whole datum (sub == nil) or a
// container subscript (sub != nil), packing val per its declared type with
// pkg/codec.
func (c *Client) Store(ctx context.Context, id int64, sub []byte, typ types.ValueType, val types.Value, decr transport.RetrievePlan) error {
	raw, err := codec.Pack(typ, val)
	if err != nil {
		return err
	}
	if sub != nil {
		if err := c.tr.Send(ctx, c.home, transport.TagStoreSub, transport.EncodeStoreSubRequest(transport.StoreSubRequest{Sub: sub})); err != nil {
			return err
		}
	}
	hdr := transport.StoreHeader{ID: id, Type: int32(typ), ReadDecr: decr.DecrSelfRead, WriteDecr: decr.DecrSelfWrite, SubLen: int32(len(sub))}
	if err := c.tr.Send(ctx, c.home, transport.TagStoreHeader, transport.EncodeStoreHeader(hdr)); err != nil {
		return err
	}
	if err := c.tr.Send(ctx, c.home, transport.TagStorePayload, raw); err != nil {
		return err
	}
	resp, err := c.recvResponse(ctx)
	if err != nil {
		return err
	}
	return asError("client.Store", resp)
}

// Retrieve implements spec §4.1 Retrieve, unpacking the reply with
// pkg/codec using the type tag the server prefixes to the payload.
func (c *Client) Retrieve(ctx context.Context, id int64, sub []byte, plan transport.RetrievePlan) (types.Value, error) {
	hdr := transport.RetrieveHeader{ID: id, Refc: plan, Sub: sub}
	if err := c.tr.Send(ctx, c.home, transport.TagRetrieve, transport.EncodeRetrieveHeader(hdr)); err != nil {
		return types.Value{}, err
	}
	resp, err := c.recvResponse(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if err := asError("client.Retrieve", resp); err != nil {
		return types.Value{}, err
	}
	if len(resp.Payload) < 4 {
		return types.Value{}, xlberr.New("client.Retrieve", xlberr.Error, xlberr.Invalid, "short retrieve reply")
	}
	typ := types.ValueType(int32(resp.Payload[0]) | int32(resp.Payload[1])<<8 | int32(resp.Payload[2])<<16 | int32(resp.Payload[3])<<24)
	return codec.Unpack(typ, resp.Payload[4:])
}

// Unique implements spec §4.1's id-reservation helper.
func (c *Client) Unique(ctx context.Context) (int64, error) {
	if err := c.tr.Send(ctx, c.home, transport.TagUnique, nil); err != nil {
		return 0, err
	}
	resp, err := c.recvResponse(ctx)
	if err != nil {
		return 0, err
	}
	if err := asError("client.Unique", resp); err != nil {
		return 0, err
	}
	u, err := transport.DecodeUniqueResponse(resp.Payload)
	return u.ID, err
}

// ShutdownWorker notifies the home server that this rank is leaving the
// cluster (spec §5's orderly shutdown, worker half).
func (c *Client) ShutdownWorker(ctx context.Context) error {
	if err := c.tr.Send(ctx, c.home, transport.TagShutdownWorker, nil); err != nil {
		return err
	}
	resp, err := c.recvResponse(ctx)
	if err != nil {
		return err
	}
	return asError("client.ShutdownWorker", resp)
}
