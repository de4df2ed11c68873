package bitmap

// PageFor returns the page holding index and the bit offset within it.
func PageFor(index uint32) (pageIndex uint32, offset uint32) {
	return index / PageBitCapacity, index % PageBitCapacity
}

// Locate returns the page, byte and bit addressing the claim bit for index.
func Locate(index uint32) Location {
	pageIndex, offset := PageFor(index)
	return Location{
		PageIndex: pageIndex,
		Offset:    offset,
		ByteIndex: offset >> 3,
		BitIndex:  uint8(offset & 7),
	}
}

// LocationAt builds a Location from explicit byte and bit positions. It is the
// form used by callers that received the coordinates from elsewhere, an event
// for example, and so it is checked.
func LocationAt(pageIndex uint32, byteIndex uint32, bitIndex uint8) (Location, error) {
	if byteIndex >= PageBytes || bitIndex > 7 {
		return Location{}, ErrIndexOutOfRange
	}
	return Location{
		PageIndex: pageIndex,
		Offset:    byteIndex<<3 | uint32(bitIndex),
		ByteIndex: byteIndex,
		BitIndex:  bitIndex,
	}, nil
}

// Index returns the leaf index addressed by loc
func (loc Location) Index() uint32 {
	return loc.PageIndex*PageBitCapacity + loc.Offset
}
