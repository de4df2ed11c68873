package bitmap

// PagesForLeafCount returns the number of pages needed to hold leafCount
// claim bits. A distribution larger than the u32 index space is capped at
// MaxPageIndex+1 pages.
func PagesForLeafCount(leafCount uint64) uint32 {
	if leafCount == 0 {
		return 0
	}
	n := (leafCount + PageBitCapacity - 1) / PageBitCapacity
	if n > uint64(MaxPageIndex)+1 {
		return MaxPageIndex + 1
	}
	return uint32(n)
}

// PageFirstIndex returns the leaf index of the first bit on pageIndex.
func PageFirstIndex(pageIndex uint32) uint32 {
	return pageIndex * PageBitCapacity
}
