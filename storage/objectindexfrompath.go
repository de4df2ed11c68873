package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// PageIndexFromPath returns the page index encoded in a page path
func PageIndexFromPath(storagePath string) (uint32, error) {
	// ensure it doesn't end with a slash
	storagePath = strings.TrimSuffix(storagePath, "/")
	i := strings.LastIndex(storagePath, "/")
	baseName := storagePath[i+1:]

	suffix := V1ExtSep + V1PageExt
	if !strings.HasSuffix(baseName, suffix) {
		return ^uint32(0), fmt.Errorf("%w: %s has no page suffix", ErrBadPath, storagePath)
	}
	n, err := strconv.ParseUint(baseName[:len(baseName)-len(suffix)], 10, 32)
	if err != nil {
		return ^uint32(0), fmt.Errorf("%w: %s: %v", ErrBadPath, storagePath, err)
	}
	return uint32(n), nil
}
