package datastore

import (
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// InsertAtomic reserves container[sub] with a NULL marker, implementing the
// check-or-place idiom of spec §4.1 "Insert-atomic". created reports
// whether this call made the reservation; present reports whether a real
// (filled) value is already there.
func (s *Store) InsertAtomic(id int64, sub []byte) (created, present bool, err error) {
	d, err := s.lookup("datastore.InsertAtomic", id)
	if err != nil {
		return false, false, err
	}
	if d.Type != types.TypeContainer || d.Value.Container == nil {
		return false, false, xlberr.New("datastore.InsertAtomic", xlberr.Error, xlberr.Type, "not a container")
	}
	entry, created := d.Value.Container.Reserve(sub)
	return created, entry.Filled, nil
}

// Subscribe parks rank on id (spec §4.1 "Subscribe"). Without a subscript:
// if the datum is already closed (write_refcount == 0) this returns
// notSubscribed=true immediately; otherwise rank is appended to the
// datum's listener set (duplicates rejected). With a subscript on a
// container, rank is appended to that subscript's listener list instead.
func (s *Store) Subscribe(id int64, sub []byte, rank int32) (notSubscribed bool, err error) {
	d, err := s.lookup("datastore.Subscribe", id)
	if err != nil {
		return false, err
	}

	if sub == nil {
		if d.WriteRefcount == 0 {
			return true, nil
		}
		if containsRank(d.Listeners, rank) {
			return false, nil
		}
		d.Listeners = append(d.Listeners, rank)
		return false, nil
	}

	if d.Type != types.TypeContainer || d.Value.Container == nil {
		return false, xlberr.New("datastore.Subscribe", xlberr.Error, xlberr.Type, "not a container")
	}
	if entry, ok := d.Value.Container.Lookup(sub); ok && entry.Filled {
		return true, nil
	}
	if d.SubscriptListeners == nil {
		d.SubscriptListeners = make(map[string][]int32)
	}
	key := string(sub)
	if containsRank(d.SubscriptListeners[key], rank) {
		return false, nil
	}
	d.SubscriptListeners[key] = append(d.SubscriptListeners[key], rank)
	return false, nil
}

func containsRank(ranks []int32, rank int32) bool {
	for _, r := range ranks {
		if r == rank {
			return true
		}
	}
	return false
}
