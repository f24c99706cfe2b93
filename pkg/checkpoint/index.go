package checkpoint

import "sync"

// IndexEntry is one lookup slot: either the value bytes held inline, or a
// pointer into a rank's log stream (spec §4.6 "Index", §9's tagged-variant
// translation of the C index entry's trailing in_file flag byte).
type IndexEntry struct {
	Inline []byte
	InFile bool
	Loc    RecordLocation
}

// Index is the in-memory key → location map maintained alongside a
// checkpoint log. Entries pointing into the file are only ever inserted
// after the referenced bytes have been flushed (spec §4.6: "Any record
// that is itself referenced by the in-memory index must be flushed before
// the referencing index entry is committed").
type Index struct {
	mu        sync.RWMutex
	maxInline int
	entries   map[string]IndexEntry
}

// NewIndex creates an Index that stores values up to maxInline bytes
// inline and everything larger as a file pointer.
func NewIndex(maxInline int) *Index {
	return &Index{maxInline: maxInline, entries: make(map[string]IndexEntry)}
}

// Insert records key → value, choosing inline or file-pointer storage by
// size. For out-of-line entries the caller must have already flushed the
// writer (see Writer.Flush) so a concurrent reader never observes a
// dangling offset.
func (ix *Index) Insert(key string, value []byte, loc RecordLocation) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(value) <= ix.maxInline {
		cp := append([]byte(nil), value...)
		ix.entries[key] = IndexEntry{Inline: cp}
		return
	}
	ix.entries[key] = IndexEntry{InFile: true, Loc: loc}
}

// Lookup returns the entry for key.
func (ix *Index) Lookup(key string) (IndexEntry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[key]
	return e, ok
}

// Delete removes key from the index.
func (ix *Index) Delete(key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, key)
}

// Len returns the number of indexed keys.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Resolve returns the value bytes for e, reading from backend via a fresh
// Reader positioned at e.Loc when the entry is out-of-line. The fast path
// here deliberately does not re-verify the enclosing record's CRC — it
// trusts the index and reads the raw value bytes directly, matching
// `xlb_xpt_read_val`'s original behavior (spec §9, first Open question).
// Call ReadRecord via the full Reader path instead when CRC re-validation
// on every read is required.
func Resolve(backend Backend, blockSize int64, ranks int32, e IndexEntry) ([]byte, error) {
	if !e.InFile {
		return e.Inline, nil
	}
	r := OpenReader(backend, blockSize, ranks, e.Loc.Rank)
	return r.readLogicalAt(e.Loc.Offset, int(e.Loc.Length))
}
