package rpcserver

import "strconv"

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// noSub normalizes a decoded zero-length subscript to nil: the wire codec
// (pkg/transport's readBlob/DecodeRetrieveHeader) always allocates a
// length-prefixed slice, even for length zero, but pkg/datastore uses a nil
// sub specifically to mean "the whole datum, not a container subscript".
func noSub(sub []byte) []byte {
	if len(sub) == 0 {
		return nil
	}
	return sub
}
