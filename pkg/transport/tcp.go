package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cuemby/xlb/pkg/xlberr"
)

// frame is the on-wire envelope: 1 byte tag, 1 byte flags (bit0 = this is a
// synchronous send awaiting an ack), 8 bytes source rank (big-endian per
// spec §6's "32-bit integers appear big-endian" rule, extended here to the
// 64-bit rank field since the spec's own fixed structs are all declared
// big-endian on the wire), 4 bytes payload length, then the payload.
const (
	frameHeaderLen = 1 + 1 + 8 + 4
	flagSync       = byte(1)
	ackByte        = byte(0x06)
)

// TCPTransport is the framed-TCP realization of the Transport contract. One
// long-lived connection is held per peer rank, established once at
// Connect and multiplexed for every tag exchanged with that peer —
// mirroring the teacher's one-gRPC-channel-per-peer model in
// _examples/cuemby-warren/pkg/api/server.go, minus TLS (dropped per
// spec.md §1 Non-goals "encryption", see DESIGN.md).
//
// SyncSend is approximated with an explicit one-byte ack written by the
// peer's reader goroutine as soon as the message is enqueued for delivery,
// rather than a true pre-posted-receive rendezvous (TCP has no such
// primitive); this is documented here rather than silently assumed.
type TCPTransport struct {
	self int64

	mu    sync.Mutex
	conns map[int64]*peerConn
	box   *mailbox

	listener net.Listener
}

type peerConn struct {
	conn net.Conn
	wmu  sync.Mutex
	bw   *bufio.Writer
}

// NewTCPTransport starts listening on listenAddr and returns a transport
// for rank self. Call Connect to establish the peer mesh before using Send
// family methods.
func NewTCPTransport(self int64, listenAddr string) (*TCPTransport, error) {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", listenAddr, err)
	}
	t := &TCPTransport{
		self:     self,
		conns:    make(map[int64]*peerConn),
		box:      newMailbox(),
		listener: ln,
	}
	go t.acceptLoop()
	return t, nil
}

// Addr returns the transport's bound listen address, for peers constructing
// their address tables.
func (t *TCPTransport) Addr() string {
	return t.listener.Addr().String()
}

// Connect establishes outbound connections to every peer whose rank is
// greater than self (the lower rank dials, the higher rank accepts,
// avoiding duplicate connections for the same pair) and blocks until every
// peer in peers has a connection in either direction or ctx is done.
func (t *TCPTransport) Connect(ctx context.Context, peers map[int64]string) error {
	for rank, addr := range peers {
		if rank <= t.self {
			continue
		}
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return fmt.Errorf("transport: dial rank %d at %s: %w", rank, addr, err)
		}
		if err := t.handshakeOutbound(conn); err != nil {
			return err
		}
		t.registerConn(rank, conn)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		if t.connectedTo(peers) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("transport: timed out waiting for %d peers", len(peers))
		}
	}
}

func (t *TCPTransport) connectedTo(peers map[int64]string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for rank := range peers {
		if _, ok := t.conns[rank]; !ok {
			return false
		}
	}
	return true
}

func (t *TCPTransport) handshakeOutbound(conn net.Conn) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(t.self))
	_, err := conn.Write(buf[:])
	return err
}

func (t *TCPTransport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		go t.acceptOne(conn)
	}
}

func (t *TCPTransport) acceptOne(conn net.Conn) {
	var buf [8]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		conn.Close()
		return
	}
	peer := int64(binary.BigEndian.Uint64(buf[:]))
	t.registerConn(peer, conn)
}

func (t *TCPTransport) registerConn(rank int64, conn net.Conn) {
	pc := &peerConn{conn: conn, bw: bufio.NewWriter(conn)}
	t.mu.Lock()
	t.conns[rank] = pc
	t.mu.Unlock()
	go t.readLoop(pc)
}

func (t *TCPTransport) readLoop(pc *peerConn) {
	r := bufio.NewReader(pc.conn)
	for {
		var hdr [frameHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return
		}
		tag := Tag(hdr[0])
		flags := hdr[1]
		source := int64(binary.BigEndian.Uint64(hdr[2:10]))
		length := binary.BigEndian.Uint32(hdr[10:14])
		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				return
			}
		}
		if flags&flagSync != 0 {
			pc.wmu.Lock()
			pc.conn.Write([]byte{ackByte})
			pc.wmu.Unlock()
		}
		t.box.push(Envelope{Tag: tag, Source: source, Payload: payload})
	}
}

func (t *TCPTransport) peer(dest int64) (*peerConn, error) {
	t.mu.Lock()
	pc, ok := t.conns[dest]
	t.mu.Unlock()
	if !ok {
		return nil, xlberr.New("transport.Send", xlberr.Error, xlberr.NotFound, fmt.Sprintf("no connection to rank %d", dest))
	}
	return pc, nil
}

func (t *TCPTransport) writeFrame(pc *peerConn, tag Tag, sync bool, payload []byte) error {
	var hdr [frameHeaderLen]byte
	hdr[0] = byte(tag)
	if sync {
		hdr[1] = flagSync
	}
	binary.BigEndian.PutUint64(hdr[2:10], uint64(t.self))
	binary.BigEndian.PutUint32(hdr[10:14], uint32(len(payload)))

	pc.wmu.Lock()
	defer pc.wmu.Unlock()
	if _, err := pc.bw.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := pc.bw.Write(payload); err != nil {
			return err
		}
	}
	return pc.bw.Flush()
}

// Send implements Transport.
func (t *TCPTransport) Send(ctx context.Context, dest int64, tag Tag, payload []byte) error {
	pc, err := t.peer(dest)
	if err != nil {
		return err
	}
	return t.writeFrame(pc, tag, false, payload)
}

// SyncSend implements Transport; see the TCPTransport doc's note on the ack
// approximation of a true rendezvous send.
func (t *TCPTransport) SyncSend(ctx context.Context, dest int64, tag Tag, payload []byte) error {
	pc, err := t.peer(dest)
	if err != nil {
		return err
	}
	if err := t.writeFrame(pc, tag, true, payload); err != nil {
		return err
	}
	ackCh := make(chan error, 1)
	go func() {
		var b [1]byte
		if _, err := io.ReadFull(pc.conn, b[:]); err != nil {
			ackCh <- err
			return
		}
		if b[0] != ackByte {
			ackCh <- fmt.Errorf("transport: expected ack, got %#x", b[0])
			return
		}
		ackCh <- nil
	}()
	select {
	case err := <-ackCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv implements Transport.
func (t *TCPTransport) Recv(ctx context.Context, source int64, tag Tag) (Envelope, error) {
	for {
		if env, ok := t.box.tryPop(source, tag); ok {
			return env, nil
		}
		select {
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		case <-time.After(ProbeTimeout):
		}
	}
}

// TryRecv implements Transport.
func (t *TCPTransport) TryRecv(source int64, tag Tag) (Envelope, bool, error) {
	env, ok := t.box.tryPop(source, tag)
	return env, ok, nil
}

// Probe implements Transport.
func (t *TCPTransport) Probe(ctx context.Context, source int64, tag Tag) error {
	for {
		if t.box.peek(source, tag) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ProbeTimeout):
		}
	}
}

// TryProbe implements Transport.
func (t *TCPTransport) TryProbe(source int64, tag Tag) (bool, error) {
	return t.box.peek(source, tag), nil
}

// Close implements Transport.
func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pc := range t.conns {
		pc.conn.Close()
	}
	return t.listener.Close()
}

// mailbox is the tag/source-indexed pending-message queue shared by every
// reader goroutine and consulted by Recv/Probe/TryRecv/TryProbe. A plain
// mutex-guarded slice-per-tag is sufficient at this scale; see DESIGN.md.
type mailbox struct {
	mu     sync.Mutex
	queues map[Tag][]Envelope
}

func newMailbox() *mailbox {
	return &mailbox{queues: make(map[Tag][]Envelope)}
}

func (m *mailbox) push(env Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[env.Tag] = append(m.queues[env.Tag], env)
}

func (m *mailbox) tryPop(source int64, tag Tag) (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[tag]
	for i, env := range q {
		if source == AnySource || env.Source == source {
			m.queues[tag] = append(q[:i], q[i+1:]...)
			return env, true
		}
	}
	return Envelope{}, false
}

func (m *mailbox) peek(source int64, tag Tag) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, env := range m.queues[tag] {
		if source == AnySource || env.Source == source {
			return true
		}
	}
	return false
}
