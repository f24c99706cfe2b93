// Package datastore implements the typed data store of spec §4.1: create,
// store, retrieve, enumerate, insert-atomic, container-reference,
// subscribe, refcount changes, advisory lock and finalize. Every exported
// method assumes it runs to completion on a single server's event loop
// (spec §5): there is no internal locking, matching the teacher's
// single-goroutine-per-shard convention in
// _examples/cuemby-warren/pkg/manager/fsm.go, where Raft apply handlers run
// serially with no mutex either.
package datastore

import (
	"math"

	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// NullID is the id_hint sentinel meaning "allocate a fresh id" (spec §4.1
// "Create").
const NullID int64 = 0

// Store is one server's shard of the shared data store, identified by its
// rank among the S servers and used to derive this server's strictly
// increasing id sequence.
type Store struct {
	rank        int32
	numServers  int32
	reportLeaks bool

	datums map[int64]*types.Datum
	locks  map[int64]int32
	nextID int64
}

// New creates an empty Store for a server at the given rank among
// numServers total servers. reportLeaks mirrors ADLB_REPORT_LEAKS: when
// true, Finalize lists datums still present at shutdown.
func New(rank, numServers int32, reportLeaks bool) *Store {
	return &Store{
		rank:        rank,
		numServers:  numServers,
		reportLeaks: reportLeaks,
		datums:      make(map[int64]*types.Datum),
		locks:       make(map[int64]int32),
		nextID:      int64(rank) + 1,
	}
}

// maxID is the highest id Create will allocate before failing with Limit
// (spec §4.1: "capped at i64::MAX − S − 1").
func (s *Store) maxID() int64 {
	return math.MaxInt64 - int64(s.numServers) - 1
}

// Create allocates or declares a datum. If idHint is NullID a fresh id is
// drawn from this server's sequence (step numServers). keyType/valType are
// only meaningful when typ is TypeContainer or TypeMultiset. If both
// refcounts are zero the call is a no-op and returns the id with no datum
// created.
func (s *Store) Create(idHint int64, typ, keyType, valType types.ValueType, symbol string, readRefcount, writeRefcount int32, permanent bool) (int64, error) {
	id := idHint
	if id == NullID {
		if s.nextID > s.maxID() {
			return 0, xlberr.New("datastore.Create", xlberr.Rejected, xlberr.Limit, "id sequence exhausted")
		}
		id = s.nextID
		s.nextID += int64(s.numServers)
	}

	if readRefcount == 0 && writeRefcount == 0 {
		return id, nil
	}

	if _, exists := s.datums[id]; exists {
		return 0, xlberr.New("datastore.Create", xlberr.Rejected, xlberr.DoubleDeclare, "id already exists")
	}

	d := types.NewDatum(id, typ, symbol, permanent)
	d.ReadRefcount = readRefcount
	d.WriteRefcount = writeRefcount
	switch typ {
	case types.TypeContainer:
		d.Value = types.Value{Type: types.TypeContainer, Container: types.NewContainer(keyType, valType)}
		d.Set = true
	case types.TypeMultiset:
		d.Value = types.Value{Type: types.TypeMultiset, Multiset: types.NewMultiset(valType)}
		d.Set = true
	}
	s.datums[id] = d
	return id, nil
}

// Len returns the number of datums currently resident, for metrics
// collection (pkg/metrics DatumsLive).
func (s *Store) Len() int {
	return len(s.datums)
}

// Exists reports whether id currently has a live datum.
func (s *Store) Exists(id int64) bool {
	_, ok := s.datums[id]
	return ok
}

// TypeOf returns id's declared type.
func (s *Store) TypeOf(id int64) (types.ValueType, error) {
	d, ok := s.datums[id]
	if !ok {
		return types.TypeNone, xlberr.New("datastore.TypeOf", xlberr.Error, xlberr.NotFound, "no such datum")
	}
	return d.Type, nil
}

// ContainerTypeOf returns the key/value types of a container datum.
func (s *Store) ContainerTypeOf(id int64) (keyType, valType types.ValueType, err error) {
	d, ok := s.datums[id]
	if !ok {
		return types.TypeNone, types.TypeNone, xlberr.New("datastore.ContainerTypeOf", xlberr.Error, xlberr.NotFound, "no such datum")
	}
	if d.Type != types.TypeContainer || d.Value.Container == nil {
		return types.TypeNone, types.TypeNone, xlberr.New("datastore.ContainerTypeOf", xlberr.Error, xlberr.Type, "not a container")
	}
	return d.Value.Container.KeyType, d.Value.Container.ValType, nil
}

// Size returns the element count of a container or multiset datum (spec
// §4.1 "Container size").
func (s *Store) Size(id int64) (int, error) {
	d, err := s.lookup("datastore.Size", id)
	if err != nil {
		return 0, err
	}
	switch d.Type {
	case types.TypeContainer:
		if d.Value.Container == nil {
			return 0, nil
		}
		return d.Value.Container.Len(), nil
	case types.TypeMultiset:
		if d.Value.Multiset == nil {
			return 0, nil
		}
		return len(d.Value.Multiset.Elems), nil
	default:
		return 0, xlberr.New("datastore.Size", xlberr.Error, xlberr.Type, "not a container or multiset")
	}
}

// lookup fetches a datum or a NotFound error, for internal reuse across the
// other operation files in this package.
func (s *Store) lookup(op string, id int64) (*types.Datum, error) {
	d, ok := s.datums[id]
	if !ok {
		return nil, xlberr.New(op, xlberr.Error, xlberr.NotFound, "no such datum")
	}
	return d, nil
}

// LeakReport lists (id, symbol) of every datum still present, for
// ADLB_REPORT_LEAKS diagnostics at Finalize.
func (s *Store) LeakReport() []LeakEntry {
	var out []LeakEntry
	for id, d := range s.datums {
		out = append(out, LeakEntry{
			ID:            id,
			Symbol:        d.Symbol,
			Type:          d.Type,
			ReadRefcount:  d.ReadRefcount,
			WriteRefcount: d.WriteRefcount,
		})
	}
	return out
}

// LeakEntry describes one datum still live at Finalize (ADLB_REPORT_LEAKS,
// spec §6).
type LeakEntry struct {
	ID            int64
	Symbol        string
	Type          types.ValueType
	ReadRefcount  int32
	WriteRefcount int32
}

// Finalize tears down the store, returning a leak report when reportLeaks
// is set (spec §6 ADLB_REPORT_LEAKS).
func (s *Store) Finalize() []LeakEntry {
	var leaks []LeakEntry
	if s.reportLeaks {
		leaks = s.LeakReport()
	}
	s.datums = make(map[int64]*types.Datum)
	return leaks
}
