package datastore

import "github.com/cuemby/xlb/pkg/xlberr"

// Lock attempts to acquire the advisory per-datum mutex of spec §4.1
// "Lock/unlock" on behalf of rank, returning whether it was acquired.
func (s *Store) Lock(id int64, rank int32) (acquired bool, err error) {
	if _, err := s.lookup("datastore.Lock", id); err != nil {
		return false, err
	}
	if holder, locked := s.locks[id]; locked {
		return holder == rank, nil
	}
	s.locks[id] = rank
	return true, nil
}

// Unlock releases the advisory lock on id if rank holds it.
func (s *Store) Unlock(id int64, rank int32) error {
	if _, err := s.lookup("datastore.Unlock", id); err != nil {
		return err
	}
	if holder, locked := s.locks[id]; !locked || holder != rank {
		return xlberr.New("datastore.Unlock", xlberr.Rejected, xlberr.Invalid, "rank does not hold the lock")
	}
	delete(s.locks, id)
	return nil
}

// Unique allocates and returns a fresh id from this server's sequence,
// without declaring a datum for it (spec §4.1's `unique` operation, used by
// callers that want an id reservation ahead of Create).
func (s *Store) Unique() (int64, error) {
	if s.nextID > s.maxID() {
		return 0, xlberr.New("datastore.Unique", xlberr.Rejected, xlberr.Limit, "id sequence exhausted")
	}
	id := s.nextID
	s.nextID += int64(s.numServers)
	return id, nil
}
