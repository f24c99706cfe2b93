package datastore

import (
	"github.com/cuemby/xlb/pkg/codec"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/varint"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// RefcountDelta bundles the Δread/Δwrite applied atomically with a Store
// call (spec §4.1 "Store": "applies decr_refs to the datum's counts
// atomically with the insertion").
type RefcountDelta struct {
	DeltaRead  int32
	DeltaWrite int32
}

// Store writes raw (encoded per typ, see pkg/codec) into id, optionally at
// a container subscript, then atomically applies decr. It returns the
// notifications the caller must deliver (spec §4.2): ranks to notify of
// closure or subscript insertion, and reference writes to perform.
func (s *Store) Store(id int64, sub []byte, typ types.ValueType, raw []byte, decr RefcountDelta) ([]types.Notification, error) {
	d, err := s.lookup("datastore.Store", id)
	if err != nil {
		return nil, err
	}
	val, err := codec.Unpack(typ, raw)
	if err != nil {
		return nil, err
	}

	var notifs []types.Notification

	switch {
	case d.Type == types.TypeMultiset && sub == nil:
		if d.Value.Multiset == nil {
			d.Value.Multiset = types.NewMultiset(typ)
		}
		if typ != d.Value.Multiset.ElemType {
			return nil, xlberr.New("datastore.Store", xlberr.Error, xlberr.Type, "element type mismatch")
		}
		d.Value.Multiset.Append(val)
		d.Set = true

	case sub == nil:
		if typ != d.Type {
			return nil, xlberr.New("datastore.Store", xlberr.Error, xlberr.Type, "type mismatch")
		}
		if d.Set {
			return nil, xlberr.New("datastore.Store", xlberr.Rejected, xlberr.DoubleWrite, "datum already set")
		}
		d.Value = val
		d.Set = true
		notifs = append(notifs, drainCloseListeners(d)...)

	default:
		if d.Type != types.TypeContainer || d.Value.Container == nil {
			return nil, xlberr.New("datastore.Store", xlberr.Error, xlberr.Type, "not a container")
		}
		if typ != d.Value.Container.ValType {
			return nil, xlberr.New("datastore.Store", xlberr.Error, xlberr.Type, "value type mismatch")
		}
		entry, _ := d.Value.Container.Reserve(sub)
		if entry.Filled {
			return nil, xlberr.New("datastore.Store", xlberr.Rejected, xlberr.DoubleWrite, "subscript already written")
		}
		entry.Value = val
		entry.Filled = true
		notifs = append(notifs, drainSubscriptListeners(d, sub)...)
		notifs = append(notifs, s.resolveContainerReferences(d, sub, val)...)
	}

	deltaNotifs, err := s.applyRefcountDelta(d, -decr.DeltaRead, -decr.DeltaWrite)
	if err != nil {
		return nil, err
	}
	notifs = append(notifs, deltaNotifs...)
	return notifs, nil
}

func drainCloseListeners(d *types.Datum) []types.Notification {
	var notifs []types.Notification
	for _, rank := range d.Listeners {
		notifs = append(notifs, types.Notification{Kind: types.KindClose, Rank: rank, DatumID: d.ID})
	}
	d.Listeners = nil
	return notifs
}

func drainSubscriptListeners(d *types.Datum, sub []byte) []types.Notification {
	if d.SubscriptListeners == nil {
		return nil
	}
	key := string(sub)
	ranks := d.SubscriptListeners[key]
	if len(ranks) == 0 {
		return nil
	}
	var notifs []types.Notification
	for _, rank := range ranks {
		notifs = append(notifs, types.Notification{Kind: types.KindSubscript, Rank: rank, DatumID: d.ID, Subscript: sub})
	}
	delete(d.SubscriptListeners, key)
	return notifs
}

// resolveContainerReferences implements the Store-side half of spec §4.1
// "Container reference": when a value is inserted at (container, sub), any
// bound ref ids receive that value, the container's read refcount is bumped
// once per bound reference, and the subscription bucket is cleared.
func (s *Store) resolveContainerReferences(d *types.Datum, sub []byte, val types.Value) []types.Notification {
	if d.ReferenceWriters == nil {
		return nil
	}
	key := string(sub)
	refs := d.ReferenceWriters[key]
	if len(refs) == 0 {
		return nil
	}
	delete(d.ReferenceWriters, key)

	d.ReadRefcount += int32(len(refs))

	var notifs []types.Notification
	for _, ref := range refs {
		notifs = append(notifs, types.Notification{
			Kind:           types.KindReferenceWrite,
			DatumID:        d.ID,
			Subscript:      sub,
			ReferenceWrite: ref,
			Value:          val,
		})
	}
	return notifs
}

// Retrieve reads id (optionally at a subscript) and applies refc to its
// refcounts, per spec §4.1 "Retrieve".
func (s *Store) Retrieve(id int64, sub []byte, refc RetrievePlan) (types.ValueType, []byte, error) {
	d, err := s.lookup("datastore.Retrieve", id)
	if err != nil {
		return types.TypeNone, nil, err
	}

	var val types.Value
	var typ types.ValueType

	switch {
	case sub == nil:
		if !d.Set {
			return types.TypeNone, nil, xlberr.New("datastore.Retrieve", xlberr.Error, xlberr.Unset, "datum not yet set")
		}
		val, typ = d.Value, d.Type

	case d.Type == types.TypeStruct:
		idx, k, err := varint.Uvarint(sub)
		if err != nil || k != len(sub) {
			return types.TypeNone, nil, xlberr.New("datastore.Retrieve", xlberr.Error, xlberr.Invalid, "malformed field index")
		}
		if d.Value.Struct == nil || idx >= uint64(len(d.Value.Struct.Fields)) {
			return types.TypeNone, nil, xlberr.New("datastore.Retrieve", xlberr.Error, xlberr.SubscriptNotFound, "field index out of range")
		}
		field := d.Value.Struct.Fields[idx]
		val, typ = field.Value, field.Type

	default:
		if d.Type != types.TypeContainer || d.Value.Container == nil {
			return types.TypeNone, nil, xlberr.New("datastore.Retrieve", xlberr.Error, xlberr.Type, "not a container")
		}
		entry, ok := d.Value.Container.Lookup(sub)
		if !ok || !entry.Filled {
			return types.TypeNone, nil, xlberr.New("datastore.Retrieve", xlberr.Error, xlberr.SubscriptNotFound, "subscript not found")
		}
		val, typ = entry.Value, d.Value.Container.ValType
	}

	raw, err := codec.Pack(typ, val)
	if err != nil {
		return types.TypeNone, nil, err
	}

	if refc.DecrSelfRead != 0 || refc.DecrSelfWrite != 0 {
		if _, err := s.applyRefcountDelta(d, -refc.DecrSelfRead, -refc.DecrSelfWrite); err != nil {
			return types.TypeNone, nil, err
		}
	}
	if refc.IncrReferandsRead != 0 {
		for _, refID := range val.Referands() {
			if rd, ok := s.datums[refID]; ok {
				rd.ReadRefcount += refc.IncrReferandsRead
			}
		}
	}
	return typ, raw, nil
}

// RetrievePlan is the refcount plan applied after a successful Retrieve
// (spec §4.1 "Retrieve": "optionally decrements self read/write, optionally
// increments referands' read counts").
type RetrievePlan struct {
	DecrSelfRead      int32
	DecrSelfWrite     int32
	IncrReferandsRead int32
}

// Enumerate returns a contiguous slice of a container or multiset's
// entries in packed form (spec §4.1 "Enumerate"): for each entry,
// `varint key_len, key_bytes, varint val_len, val_bytes` (key part omitted
// for multisets). count = -1 means "to the end".
func (s *Store) Enumerate(id int64, offset, count int) ([]byte, error) {
	d, err := s.lookup("datastore.Enumerate", id)
	if err != nil {
		return nil, err
	}
	switch d.Type {
	case types.TypeContainer:
		return enumerateContainer(d.Value.Container, offset, count)
	case types.TypeMultiset:
		return enumerateMultiset(d.Value.Multiset, offset, count)
	default:
		return nil, xlberr.New("datastore.Enumerate", xlberr.Error, xlberr.Type, "not a container or multiset")
	}
}
