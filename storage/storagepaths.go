package storage

import (
	"fmt"
)

const (
	V1AirdropPrefix = "v1/airdrops"

	V1PathSep      = "/"
	V1ExtSep       = "."
	V1PageExt      = "page"
	V1PageNameFmt  = "%010d.page"
	V1EpochObjName = "epoch"
)

// EpochPrefix returns the prefix under which all objects for the epoch are
// stored. It is the callers responsibility to provide the canonical text form
// of the epoch address.
func EpochPrefix(epochAddress string) string {
	return fmt.Sprintf("%s/%s/", V1AirdropPrefix, epochAddress)
}

// EpochPath returns the path of the epoch record
func EpochPath(epochAddress string) string {
	return EpochPrefix(epochAddress) + V1EpochObjName
}

// PagePrefix returns the prefix for the claim bitmap pages of an epoch
func PagePrefix(epochAddress string) string {
	return EpochPrefix(epochAddress) + "pages/"
}

// PagePath returns the path of a single claim bitmap page.
//
// Blob names sort lexically, so the page index is zero padded to the full
// width of a u32.
func PagePath(epochAddress string, pageIndex uint32) string {
	return PagePrefix(epochAddress) + fmt.Sprintf(V1PageNameFmt, pageIndex)
}
