package datastore

import (
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// ContainerReference binds a promise (spec §4.1 "Container reference"):
// when container[sub] is filled, write that value into refID. It consumes
// one read refcount on the container unless the subscription bucket for
// sub was newly created by this call, in which case the caller retains
// that refcount for the bucket itself — a distinct invariant from the
// plain close/subscript listeners in subscribe.go, since here the bucket
// itself owns a refcount that transfers to whichever caller created it.
func (s *Store) ContainerReference(containerID int64, sub []byte, refID int64, refType types.ValueType) error {
	d, err := s.lookup("datastore.ContainerReference", containerID)
	if err != nil {
		return err
	}
	if d.Type != types.TypeContainer || d.Value.Container == nil {
		return xlberr.New("datastore.ContainerReference", xlberr.Error, xlberr.Type, "not a container")
	}

	if entry, ok := d.Value.Container.Lookup(sub); ok && entry.Filled {
		// Already resolvable: the caller can Store directly; record no
		// pending promise. Refcount bookkeeping is the caller's via a
		// direct Store call in this case.
		return nil
	}

	if d.ReferenceWriters == nil {
		d.ReferenceWriters = make(map[string][]types.ContainerReference)
	}
	key := string(sub)
	bucketExisted := len(d.ReferenceWriters[key]) > 0
	d.ReferenceWriters[key] = append(d.ReferenceWriters[key], types.ContainerReference{
		RefID:   refID,
		RefType: refType,
	})
	if bucketExisted {
		if _, err := s.applyRefcountDelta(d, -1, 0); err != nil {
			return err
		}
	}
	return nil
}
