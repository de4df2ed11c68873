package bitmap

import "errors"

const (
	// PageBytes is the size of the bitmap carried by a single page.
	PageBytes = 4096

	// PageBitCapacity is the number of claim bits per page.
	PageBitCapacity = PageBytes * 8

	// AddressBytes is the width of the epoch address a page is bound to.
	AddressBytes = 32

	// PageHeaderBytes is the size of the fields preceding the bitmap.
	PageHeaderBytes = AddressBytes + 4 + 1 + 3

	// PageRecordBytes is the full size of a marshaled page.
	PageRecordBytes = PageHeaderBytes + PageBytes

	// MaxPageIndex is the page holding the largest u32 leaf index.
	MaxPageIndex = uint32(^uint32(0) / PageBitCapacity)
)

const (
	offEpoch     = 0
	offPageIndex = offEpoch + AddressBytes
	offBump      = offPageIndex + 4
	offPad       = offBump + 1
	offBitmap    = PageHeaderBytes
)

var (
	ErrIndexOutOfRange = errors.New("bitmap: byte index outside of page")
	ErrBadRecordSize   = errors.New("bitmap: page record has the wrong size")
)

// Location identifies the claim bit for a single leaf index.
type Location struct {
	PageIndex uint32
	// Offset is the bit position within the page, ByteIndex*8 + BitIndex.
	Offset    uint32
	ByteIndex uint32
	BitIndex  uint8
}

// Page is a single claim bitmap page.
type Page struct {
	Epoch     [AddressBytes]byte
	PageIndex uint32
	Bump      uint8
	Bitmap    [PageBytes]byte
}
