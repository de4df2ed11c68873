package merkle

import (
	"encoding/binary"
	"hash"
)

// HashWriteUint32 writes a uint32 to a hasher in little endian layout - least
// significant byte at lowest address/storage location
func HashWriteUint32(hasher hash.Hash, value uint32) {
	b := [4]byte{}
	binary.LittleEndian.PutUint32(b[:], value)
	hasher.Write(b[:])
}

// HashWriteUint64 writes a uint64 to a hasher in little endian layout
func HashWriteUint64(hasher hash.Hash, value uint64) {
	b := [8]byte{}
	binary.LittleEndian.PutUint64(b[:], value)
	hasher.Write(b[:])
}
