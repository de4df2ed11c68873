package bitmap

import "fmt"

// MarshalBinary encodes the page in its persisted layout.
func (p *Page) MarshalBinary() ([]byte, error) {
	b := make([]byte, PageRecordBytes)
	copy(b[offEpoch:offPageIndex], p.Epoch[:])
	writeU32LE(b[offPageIndex:offBump], p.PageIndex)
	b[offBump] = p.Bump
	// pad bytes stay zero
	copy(b[offBitmap:], p.Bitmap[:])
	return b, nil
}

// UnmarshalBinary decodes a page from its persisted layout. The pad bytes are
// ignored.
func (p *Page) UnmarshalBinary(b []byte) error {
	if len(b) != PageRecordBytes {
		return fmt.Errorf("%w: got %d, want %d", ErrBadRecordSize, len(b), PageRecordBytes)
	}
	copy(p.Epoch[:], b[offEpoch:offPageIndex])
	p.PageIndex = readU32LE(b[offPageIndex:offBump])
	p.Bump = b[offBump]
	copy(p.Bitmap[:], b[offBitmap:])
	return nil
}

// DecodePage is a convenience wrapper for UnmarshalBinary
func DecodePage(b []byte) (*Page, error) {
	p := &Page{}
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return p, nil
}
