package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/forestrie/go-merkledrop/airdrop"
	"github.com/forestrie/go-merkledrop/prooffile"
	"github.com/gagliardetto/solana-go"
)

type buildCommand struct {
	Input     string `long:"input" short:"i" required:"true" description:"allocations csv"`
	Mint      string `long:"mint" required:"true" description:"token mint, base58"`
	Epoch     uint64 `long:"epoch" required:"true" description:"epoch id"`
	Out       string `long:"out" short:"o" required:"true" description:"proof file to write"`
	Program   string `long:"program" description:"program id, base58. When set the manifest is also written"`
	Authority string `long:"authority" description:"epoch authority, base58. Required with --program"`
	Manifest  string `long:"manifest" description:"manifest file, defaults to the proof file with .manifest appended"`
}

func (c *buildCommand) Execute(args []string) error {
	log := serviceLog()

	mint, err := solana.PublicKeyFromBase58(c.Mint)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	in, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	allocs, err := prooffile.ReadAllocationsCSV(in)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Input, err)
	}
	f, err := prooffile.Build(mint, c.Epoch, allocs)
	if err != nil {
		return err
	}

	codec, err := prooffile.NewCodec()
	if err != nil {
		return err
	}
	data, err := prooffile.Encode(codec, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		return err
	}
	log.Infof("wrote %d entries to %s", len(f.Entries), c.Out)

	root, err := f.RootDigest()
	if err != nil {
		return err
	}
	fmt.Printf("root:  %s\n", root)
	fmt.Printf("total: %d\n", f.TotalAmount)
	fmt.Printf("count: %d\n", len(f.Entries))

	if c.Program == "" {
		return nil
	}
	program, err := solana.PublicKeyFromBase58(c.Program)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	if c.Authority == "" {
		return errors.New("--authority is required with --program")
	}
	authority, err := solana.PublicKeyFromBase58(c.Authority)
	if err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	addr, _, err := airdrop.DeriveEpochAddress(program, airdrop.EpochKey{Mint: mint, ID: c.Epoch})
	if err != nil {
		return err
	}
	fmt.Printf("epoch: %s\n", addr)

	manifestCodec, err := airdrop.NewManifestCodec()
	if err != nil {
		return err
	}
	manifest, err := manifestCodec.MarshalCBOR(f.Manifest(program, authority, time.Now().UnixMilli()))
	if err != nil {
		return err
	}
	path := c.Manifest
	if path == "" {
		path = c.Out + ".manifest"
	}
	if err := os.WriteFile(path, manifest, 0o644); err != nil {
		return err
	}
	log.Infof("wrote unsigned manifest to %s, sign it with the sign command", path)
	return nil
}
