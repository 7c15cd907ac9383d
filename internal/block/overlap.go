package block

// Range is a half-open [Start, End) index range relative to a block start.
type Range struct {
	Start int
	End   int
}

// Len returns the number of samples covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Overlap intersects the absolute span [spanStart, spanEnd) with the block
// [blockStart, blockStart+blockSize). The returned range is block-relative.
// ok is false when the two do not share a sample.
func Overlap(blockStart int64, blockSize int, spanStart, spanEnd int64) (r Range, ok bool) {
	if blockSize <= 0 || spanEnd <= spanStart {
		return Range{}, false
	}
	blockEnd := blockStart + int64(blockSize)
	lo := max(spanStart, blockStart)
	hi := min(spanEnd, blockEnd)
	if lo >= hi {
		return Range{}, false
	}
	return Range{Start: int(lo - blockStart), End: int(hi - blockStart)}, true
}

// Contains reports whether the absolute sample t falls inside the block.
func Contains(blockStart int64, blockSize int, t int64) bool {
	return t >= blockStart && t < blockStart+int64(blockSize)
}
