package checkpoint

// Log is a convenience wrapper tying one rank's Writer to the shared Index,
// for callers that want simple key/value checkpoint semantics (spec §4.6
// used as a write-behind log for data store state) rather than driving
// Writer/Reader directly.
type Log struct {
	writer *Writer
	index  *Index
}

// NewLog creates a Log for rank, writing through w and indexing via ix.
func NewLog(w *Writer, ix *Index) *Log {
	return &Log{writer: w, index: ix}
}

// Put appends value as a record and indexes it under key.
func (l *Log) Put(key string, value []byte, persist bool) error {
	loc, err := l.writer.WriteRecord(value, persist)
	if err != nil {
		return err
	}
	if loc.Length > int64(l.index.maxInline) {
		// Out-of-line entry: the flush-before-index rule requires the
		// bytes be durable to this process's view before the index is
		// visible to readers of the same backend.
		if err := l.writer.Flush(); err != nil {
			return err
		}
	}
	l.index.Insert(key, value, loc)
	return nil
}

// Get resolves key via the index.
func (l *Log) Get(backend Backend, blockSize int64, ranks int32, key string) ([]byte, bool, error) {
	e, ok := l.index.Lookup(key)
	if !ok {
		return nil, false, nil
	}
	v, err := Resolve(backend, blockSize, ranks, e)
	return v, true, err
}

// Close finalizes the underlying writer.
func (l *Log) Close() error { return l.writer.Close() }
