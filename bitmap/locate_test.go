package bitmap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		index uint32
		want  Location
	}{
		{0, Location{PageIndex: 0, Offset: 0, ByteIndex: 0, BitIndex: 0}},
		{7, Location{PageIndex: 0, Offset: 7, ByteIndex: 0, BitIndex: 7}},
		{8, Location{PageIndex: 0, Offset: 8, ByteIndex: 1, BitIndex: 0}},
		{32767, Location{PageIndex: 0, Offset: 32767, ByteIndex: 4095, BitIndex: 7}},
		{32768, Location{PageIndex: 1, Offset: 0, ByteIndex: 0, BitIndex: 0}},
		{65537, Location{PageIndex: 2, Offset: 1, ByteIndex: 0, BitIndex: 1}},
		{^uint32(0), Location{PageIndex: MaxPageIndex, Offset: 32767, ByteIndex: 4095, BitIndex: 7}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.index), func(t *testing.T) {
			got := Locate(tt.index)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.index, got.Index())

			page, off := PageFor(tt.index)
			assert.Equal(t, tt.want.PageIndex, page)
			assert.Equal(t, tt.want.Offset, off)
		})
	}
}

func TestLocationAt(t *testing.T) {
	loc, err := LocationAt(3, 4095, 7)
	require.NoError(t, err)
	assert.Equal(t, Locate(3*PageBitCapacity+32767), loc)

	_, err = LocationAt(0, PageBytes, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = LocationAt(0, 0, 8)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestPagesForLeafCount(t *testing.T) {
	assert.Equal(t, uint32(0), PagesForLeafCount(0))
	assert.Equal(t, uint32(1), PagesForLeafCount(1))
	assert.Equal(t, uint32(1), PagesForLeafCount(32768))
	assert.Equal(t, uint32(2), PagesForLeafCount(32769))
	assert.Equal(t, MaxPageIndex+1, PagesForLeafCount(1<<40))
	assert.Equal(t, uint32(65536), PageFirstIndex(2))
}
