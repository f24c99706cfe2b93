package datastore

import (
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// RefcountIncr applies a refcount change to id and returns any resulting
// notifications (spec §4.1 "Refcount change"). deltaRead/deltaWrite may be
// negative. scavenge requests that referand refcounts only be decremented
// if this change would destroy the datum; if the datum would survive,
// RefcountIncr is a no-op reporting zero scavenged, to avoid a race where a
// referand could be freed before its refcount is bumped by a concurrent
// caller (spec step 1).
func (s *Store) RefcountIncr(id int64, deltaRead, deltaWrite int32, scavenge bool) ([]types.Notification, error) {
	d, err := s.lookup("datastore.RefcountIncr", id)
	if err != nil {
		return nil, err
	}

	wouldDestroy := !d.Permanent &&
		d.ReadRefcount+deltaRead <= 0 &&
		d.WriteRefcount+deltaWrite <= 0

	if scavenge && !wouldDestroy {
		return nil, nil
	}

	return s.applyRefcountDelta(d, deltaRead, deltaWrite)
}

// applyRefcountDelta implements steps 2-4 of spec §4.1 "Refcount change":
// apply deltaRead (clamp-checked), apply deltaWrite (draining listeners on
// transition to zero), then destroy-and-cascade if both counts are <= 0.
func (s *Store) applyRefcountDelta(d *types.Datum, deltaRead, deltaWrite int32) ([]types.Notification, error) {
	var notifs []types.Notification

	if !d.Permanent {
		next := d.ReadRefcount + deltaRead
		if next < 0 {
			return nil, xlberr.New("datastore.RefcountIncr", xlberr.Rejected, xlberr.RefcountNegative, "read refcount would go negative")
		}
		d.ReadRefcount = next
	}

	prevWrite := d.WriteRefcount
	d.WriteRefcount += deltaWrite
	if d.WriteRefcount < 0 {
		return nil, xlberr.New("datastore.RefcountIncr", xlberr.Rejected, xlberr.RefcountNegative, "write refcount would go negative")
	}
	if prevWrite > 0 && d.WriteRefcount == 0 {
		for _, rank := range d.Listeners {
			notifs = append(notifs, types.Notification{Kind: types.KindClose, Rank: rank, DatumID: d.ID})
		}
		d.Listeners = nil
	}

	if d.Freeable() {
		notifs = append(notifs, s.destroy(d)...)
	}
	return notifs, nil
}

// destroy frees d's stored value and cascades a -1 read-refcount
// notification to every referand it held (spec §4.1 step 4). The
// notification only names the referand id; routing it to the referand's
// home server (possibly this one) is the caller's responsibility
// (pkg/rpcserver uses config.Cluster.HomeServerForID).
func (s *Store) destroy(d *types.Datum) []types.Notification {
	var notifs []types.Notification
	if d.Set {
		for _, ref := range d.Value.Referands() {
			notifs = append(notifs, types.Notification{Kind: types.KindReferandDecr, Referand: ref})
		}
	}
	delete(s.datums, d.ID)
	return notifs
}
