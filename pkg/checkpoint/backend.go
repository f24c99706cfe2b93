package checkpoint

import (
	"io"
	"sync"
)

// Backend is the storage underlying the checkpoint log: a single shared
// file in production, or an in-memory buffer in tests. *os.File satisfies
// this directly.
type Backend interface {
	WriteAt(p []byte, off int64) (int, error)
	ReadAt(p []byte, off int64) (int, error)
	Sync() error
}

// MemBackend is a Backend over an in-memory byte slice, used by tests that
// exercise the log's framing and resync logic without touching disk.
type MemBackend struct {
	mu   sync.Mutex
	data []byte
}

// NewMemBackend returns an empty in-memory Backend.
func NewMemBackend() *MemBackend { return &MemBackend{} }

func (m *MemBackend) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:end], p)
	return len(p), nil
}

func (m *MemBackend) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemBackend) Sync() error { return nil }

// Corrupt XORs count bytes starting at off, for fault-injection tests.
func (m *MemBackend) Corrupt(off int64, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < count && int(off)+i < len(m.data); i++ {
		m.data[int(off)+i] ^= 0xFF
	}
}
