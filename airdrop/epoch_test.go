package airdrop

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/forestrie/go-merkledrop/bitmap"
	"github.com/forestrie/go-merkledrop/droptesting"
	"github.com/forestrie/go-merkledrop/merkle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEpoch() *Epoch {
	return &Epoch{
		Authority:    droptesting.Key("authority"),
		Mint:         droptesting.Key("mint"),
		MerkleRoot:   merkle.Digest(sha256.Sum256([]byte("root"))),
		TotalAmount:  0x0102030405060708,
		TotalClaimed: 0x1112131415161718,
		Paused:       true,
		Bump:         253,
	}
}

func TestEpochLayout(t *testing.T) {
	e := testEpoch()
	b, err := e.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 114)

	assert.Equal(t, e.Authority[:], b[0:32])
	assert.Equal(t, e.Mint[:], b[32:64])
	assert.Equal(t, e.MerkleRoot[:], b[64:96])
	assert.Equal(t, e.TotalAmount, binary.LittleEndian.Uint64(b[96:104]))
	assert.Equal(t, e.TotalClaimed, binary.LittleEndian.Uint64(b[104:112]))
	assert.Equal(t, byte(1), b[112])
	assert.Equal(t, byte(253), b[113])

	var decoded Epoch
	require.NoError(t, decoded.UnmarshalBinary(b))
	assert.Equal(t, *e, decoded)
}

func TestEpochUnmarshalRejects(t *testing.T) {
	b, err := testEpoch().MarshalBinary()
	require.NoError(t, err)

	var e Epoch
	assert.ErrorIs(t, e.UnmarshalBinary(b[:113]), ErrCorruptRecord)
	assert.ErrorIs(t, e.UnmarshalBinary(append(b, 0)), ErrCorruptRecord)
	b[112] = 2
	assert.ErrorIs(t, e.UnmarshalBinary(b), ErrCorruptRecord)
}

func TestEpochRemaining(t *testing.T) {
	assert.Equal(t, uint64(70), (&Epoch{TotalAmount: 100, TotalClaimed: 30}).Remaining())
	assert.Equal(t, uint64(0), (&Epoch{TotalAmount: 100, TotalClaimed: 130}).Remaining())
}

func TestAccountFraming(t *testing.T) {
	epochDisc := sha256.Sum256([]byte("account:Epoch"))
	pageDisc := sha256.Sum256([]byte("account:ClaimedBitmapPage"))

	e := testEpoch()
	data, err := EncodeEpochAccount(e)
	require.NoError(t, err)
	require.Len(t, data, 8+EpochRecordBytes)
	assert.Equal(t, epochDisc[:8], data[:8])

	// deployed accounts carry reserved space after the record
	decoded, err := DecodeEpochAccount(append(data, make([]byte, 64)...))
	require.NoError(t, err)
	assert.Equal(t, e, decoded)

	_, err = DecodeEpochAccount(data[:8+EpochRecordBytes-1])
	assert.ErrorIs(t, err, ErrCorruptRecord)

	p := bitmap.NewPage(droptesting.Key("epoch"), 4, 250)
	p.Bitmap[7] = 0x81
	pageData, err := EncodePageAccount(p)
	require.NoError(t, err)
	require.Len(t, pageData, 8+bitmap.PageRecordBytes)
	assert.Equal(t, pageDisc[:8], pageData[:8])

	decodedPage, err := DecodePageAccount(pageData)
	require.NoError(t, err)
	assert.Equal(t, p, decodedPage)

	// an epoch is not a page, and the reverse
	_, err = DecodePageAccount(data)
	assert.ErrorIs(t, err, ErrCorruptRecord)
	_, err = DecodeEpochAccount(pageData)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
