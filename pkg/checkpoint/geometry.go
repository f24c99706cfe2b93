package checkpoint

// geometry computes the physical file layout for a given block size and
// rank count: block 0 is the header block; data block d (0-based, relative
// to a rank's own stripe) for rank r lives at physical block
// `1 + d*ranks + r`, matching spec §4.6's "block b owned by rank b mod N"
// once b is read as the post-header, rank-relative data block index.
type geometry struct {
	blockSize int64
	ranks     int32
}

// contentPerBlock is the usable payload per block once the one-byte magic
// is subtracted.
func (g geometry) contentPerBlock() int64 { return g.blockSize - 1 }

// physicalBlock returns the absolute block index for rank r's data block d.
func (g geometry) physicalBlock(rank int32, dataBlock int64) int64 {
	return 1 + dataBlock*int64(g.ranks) + int64(rank)
}

// offsetOf translates a rank-relative logical stream offset into the
// absolute file offset of that byte, skipping the one magic byte at the
// start of whichever data block contains it.
func (g geometry) offsetOf(rank int32, logical int64) int64 {
	cpb := g.contentPerBlock()
	db := logical / cpb
	intra := logical % cpb
	return g.physicalBlock(rank, db)*g.blockSize + 1 + intra
}

// blockStartOffset returns the file offset of the magic byte for rank r's
// data block d.
func (g geometry) blockStartOffset(rank int32, dataBlock int64) int64 {
	return g.physicalBlock(rank, dataBlock) * g.blockSize
}
