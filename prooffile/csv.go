package prooffile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ReadAllocationsCSV reads index,recipient,amount records. Recipients are
// base58. A first line whose index field is not a number is taken to be a
// header and skipped.
func ReadAllocationsCSV(r io.Reader) ([]Allocation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var allocs []Allocation
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return allocs, nil
		}
		if err != nil {
			return nil, err
		}

		index, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 32)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: index: %w", line, err)
		}
		recipient, err := solana.PublicKeyFromBase58(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: recipient: %w", line, err)
		}
		amount, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: amount: %w", line, err)
		}
		allocs = append(allocs, Allocation{Index: uint32(index), Recipient: recipient, Amount: amount})
	}
}
