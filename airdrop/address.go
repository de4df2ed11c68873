package airdrop

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	EpochSeed = "airdrop_epoch"
	PageSeed  = "airdrop_bitmap_page"
)

// EpochKey identifies an epoch by the token it distributes and a caller
// chosen number. The same mint may run many epochs.
type EpochKey struct {
	Mint solana.PublicKey
	ID   uint64
}

func (k EpochKey) String() string {
	return fmt.Sprintf("%s/%d", k.Mint, k.ID)
}

func epochSeeds(key EpochKey) [][]byte {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], key.ID)
	return [][]byte{[]byte(EpochSeed), key.Mint[:], id[:]}
}

func pageSeeds(epoch solana.PublicKey, pageIndex uint32) [][]byte {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], pageIndex)
	return [][]byte{[]byte(PageSeed), epoch[:], idx[:]}
}

// DeriveEpochAddress returns the address of the epoch record and the bump
// that binds it to (mint, id).
func DeriveEpochAddress(programID solana.PublicKey, key EpochKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(epochSeeds(key), programID)
}

// DerivePageAddress returns the address of a claim bitmap page and the bump
// that binds it to (epoch, pageIndex).
func DerivePageAddress(programID solana.PublicKey, epoch solana.PublicKey, pageIndex uint32) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(pageSeeds(epoch, pageIndex), programID)
}

// bindingAddress recomputes the address from the seeds and a recorded bump.
// The recorded bump must also be the canonical one, otherwise two records
// could claim the same coordinates.
func bindingAddress(programID solana.PublicKey, seeds [][]byte, bump uint8) (solana.PublicKey, error) {
	withBump := append(append([][]byte{}, seeds...), []byte{bump})
	addr, err := solana.CreateProgramAddress(withBump, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: bump %d: %v", ErrBindingMismatch, bump, err)
	}
	canonical, canonicalBump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if canonical != addr || canonicalBump != bump {
		return solana.PublicKey{}, fmt.Errorf("%w: bump %d is not canonical (%d)", ErrBindingMismatch, bump, canonicalBump)
	}
	return addr, nil
}

// VerifyEpochBinding checks that an epoch record stored at address, carrying
// bump, really is the record for key.
func VerifyEpochBinding(programID solana.PublicKey, key EpochKey, address solana.PublicKey, bump uint8) error {
	addr, err := bindingAddress(programID, epochSeeds(key), bump)
	if err != nil {
		return err
	}
	if addr != address {
		return fmt.Errorf("%w: recomputed %s, expected %s", ErrBindingMismatch, addr, address)
	}
	return nil
}

// VerifyPageBinding checks that a page record carrying bump really is the page
// for (epoch, pageIndex) and returns its address.
func VerifyPageBinding(programID solana.PublicKey, epoch solana.PublicKey, pageIndex uint32, bump uint8) (solana.PublicKey, error) {
	return bindingAddress(programID, pageSeeds(epoch, pageIndex), bump)
}
