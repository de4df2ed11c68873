package bitmap

import (
	"math/bits"

	"github.com/jrick/bitset"
)

// NewPage returns an all clear page bound to epoch.
func NewPage(epoch [AddressBytes]byte, pageIndex uint32, bump uint8) *Page {
	return &Page{Epoch: epoch, PageIndex: pageIndex, Bump: bump}
}

func (p *Page) bitset() bitset.Bytes {
	return bitset.Bytes(p.Bitmap[:])
}

func checkLocation(loc Location) error {
	if loc.ByteIndex >= PageBytes || loc.BitIndex > 7 {
		return ErrIndexOutOfRange
	}
	return nil
}

func bitOf(loc Location) int {
	return int(loc.ByteIndex)<<3 | int(loc.BitIndex)
}

// IsSet reports whether the claim bit at loc is set.
func (p *Page) IsSet(loc Location) (bool, error) {
	if err := checkLocation(loc); err != nil {
		return false, err
	}
	return p.bitset().Get(bitOf(loc)), nil
}

// TestAndSet sets the bit at loc. It returns false, and leaves the page
// unchanged, if the bit was already set.
//
// The page itself carries no lock, callers needing atomicity across
// processes make the update conditional on the version they read the page at.
func (p *Page) TestAndSet(loc Location) (bool, error) {
	if err := checkLocation(loc); err != nil {
		return false, err
	}
	bs := p.bitset()
	i := bitOf(loc)
	if bs.Get(i) {
		return false, nil
	}
	bs.Set(i)
	return true, nil
}

// Clear unsets the bit at loc. Clearing an unset bit is not an error.
func (p *Page) Clear(loc Location) error {
	if err := checkLocation(loc); err != nil {
		return err
	}
	p.bitset().Unset(bitOf(loc))
	return nil
}

// Count returns the number of set bits
func (p *Page) Count() int {
	n := 0
	for _, b := range p.Bitmap {
		n += bits.OnesCount8(b)
	}
	return n
}
