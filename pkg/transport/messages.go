package transport

// Message bodies per spec §6 "Message bodies". Field order matches the
// spec's struct literals so wire encoding (wire.go's Encode/Decode
// pairs) reads naturally alongside the spec text; Go's lack of C's implicit
// struct packing means these are never cast onto the wire directly — each
// has an explicit binary.Write-based codec instead (see wire.go).

// PutHeader is spec §6's put_hdr.
type PutHeader struct {
	Type        int32
	Priority    int32
	Putter      int32
	Answer      int32
	Target      int32
	Length      int32
	Parallelism int32
	HasInline   bool
	Inline      []byte // present iff HasInline, length == Length
}

// GetResponse is spec §6's get_response.
type GetResponse struct {
	Code          int32
	Length        int32
	AnswerRank    int32
	Type          int32
	PayloadSource int32
	Parallelism   int32
}

// StoreHeader is spec §6's store_hdr.
type StoreHeader struct {
	ID        int64
	Type      int32
	ReadDecr  int32
	WriteDecr int32
	SubLen    int32
}

// RetrievePlan mirrors spec §6's retrieve_hdr's refc sub-structure: the
// refcount changes to apply to self and to any referands on retrieve.
type RetrievePlan struct {
	DecrSelfRead      int32
	DecrSelfWrite     int32
	IncrReferandsRead int32
}

// RetrieveHeader is spec §6's retrieve_hdr.
type RetrieveHeader struct {
	ID   int64
	Refc RetrievePlan
	Sub  []byte
}

// SyncMode distinguishes the two sync.go "mode"s of spec §4.4/§6.
type SyncMode int32

const (
	SyncModeRequest SyncMode = iota
	SyncModeSteal
)

// StealCount is one entry of sync_hdr's steal_counts array.
type StealCount struct {
	WorkType int32
	Count    int32
}

// SyncHeader is spec §6's sync_hdr.
type SyncHeader struct {
	Mode        SyncMode
	StealCounts []StealCount // only meaningful when Mode == SyncModeSteal
}
