package main

import (
	"context"
	"fmt"

	"github.com/forestrie/go-merkledrop/airdrop"
	"github.com/forestrie/go-merkledrop/storage/leveldbstore"
	"github.com/gagliardetto/solana-go"
)

type statusCommand struct {
	DB       string  `long:"db" required:"true" description:"claim database directory"`
	Program  string  `long:"program" required:"true" description:"program id, base58"`
	Mint     string  `long:"mint" required:"true" description:"token mint, base58"`
	Epoch    uint64  `long:"epoch" required:"true" description:"epoch id"`
	Index    *uint32 `long:"index" description:"also report whether this index is claimed"`
	Framing  bool    `long:"account-framing" description:"records are stored with account discriminators"`
	ShowPage bool    `long:"pages" description:"list the claim pages and their counts"`
}

func (c *statusCommand) Execute(args []string) error {
	ctx := context.Background()
	log := serviceLog()

	program, err := solana.PublicKeyFromBase58(c.Program)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(c.Mint)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	store, err := leveldbstore.Open(log, leveldbstore.Config{Path: c.DB})
	if err != nil {
		return err
	}
	defer store.Close()

	// status never pays out, so there is no transferer
	d := airdrop.NewDistributor(log, store, nil, airdrop.Config{ProgramID: program, AccountFraming: c.Framing})
	key := airdrop.EpochKey{Mint: mint, ID: c.Epoch}

	addr, e, err := d.GetEpoch(ctx, key)
	if err != nil {
		return err
	}
	fmt.Printf("epoch:         %s\n", addr)
	fmt.Printf("authority:     %s\n", e.Authority)
	fmt.Printf("mint:          %s\n", e.Mint)
	fmt.Printf("root:          %s\n", e.MerkleRoot)
	fmt.Printf("total amount:  %d\n", e.TotalAmount)
	fmt.Printf("total claimed: %d\n", e.TotalClaimed)
	fmt.Printf("remaining:     %d\n", e.Remaining())
	fmt.Printf("paused:        %v\n", e.Paused)

	if c.Index != nil {
		claimed, err := d.IsClaimed(ctx, key, *c.Index)
		if err != nil {
			return err
		}
		fmt.Printf("index %d claimed: %v\n", *c.Index, claimed)
	}

	if c.ShowPage {
		stats, err := d.Index().Pages(ctx, addr)
		if err != nil {
			return err
		}
		for _, s := range stats {
			fmt.Printf("page %6d: %d claimed\n", s.PageIndex, s.Claimed)
		}
	}
	return nil
}
