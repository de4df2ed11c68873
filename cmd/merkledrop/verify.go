package main

import (
	"fmt"
	"os"

	"github.com/forestrie/go-merkledrop/prooffile"
	"github.com/gagliardetto/solana-go"
)

type verifyCommand struct {
	Proofs string `long:"proofs" short:"p" required:"true" description:"proof file"`
	Index  uint32 `long:"index" required:"true" description:"leaf index to verify"`
}

func (c *verifyCommand) Execute(args []string) error {
	data, err := os.ReadFile(c.Proofs)
	if err != nil {
		return err
	}
	codec, err := prooffile.NewCodec()
	if err != nil {
		return err
	}
	f, err := prooffile.Decode(codec, data)
	if err != nil {
		return err
	}
	e, err := f.Lookup(c.Index)
	if err != nil {
		return err
	}
	if err := f.Verify(e); err != nil {
		return err
	}

	fmt.Printf("index:     %d\n", e.Index)
	fmt.Printf("recipient: %s\n", solana.PublicKeyFromBytes(e.Recipient))
	fmt.Printf("amount:    %d\n", e.Amount)
	fmt.Printf("proof:     %d nodes, ok\n", len(e.Proof))
	return nil
}
