package main

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/forestrie/go-merkledrop/airdrop"
	"github.com/veraison/go-cose"
)

type signCommand struct {
	Manifest string `long:"manifest" short:"m" required:"true" description:"unsigned manifest written by build"`
	Key      string `long:"key" short:"k" required:"true" description:"P-256 private key, PEM (SEC 1 or PKCS #8)"`
	Out      string `long:"out" short:"o" description:"signed manifest, defaults to the manifest with .cose appended"`
	Issuer   string `long:"issuer" default:"merkledrop" description:"CWT issuer"`
	Subject  string `long:"subject" default:"airdrop" description:"CWT subject"`
	KeyID    string `long:"kid" default:"manifest" description:"key identifier"`
}

func readECPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block", path)
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("manifest keys must be ECDSA P-256")
	}
	return key, nil
}

func (c *signCommand) Execute(args []string) error {
	log := serviceLog()

	codec, err := airdrop.NewManifestCodec()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.Manifest)
	if err != nil {
		return err
	}
	var m airdrop.Manifest
	if err := codec.UnmarshalInto(data, &m); err != nil {
		return fmt.Errorf("%s: %w", c.Manifest, err)
	}
	if _, err := m.Params(); err != nil {
		return err
	}

	key, err := readECPrivateKey(c.Key)
	if err != nil {
		return err
	}
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return err
	}
	signed, err := airdrop.NewManifestSigner(c.Issuer, codec).Sign1(signer, c.KeyID, &key.PublicKey, c.Subject, m, nil)
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = c.Manifest + ".cose"
	}
	if err := os.WriteFile(out, signed, 0o644); err != nil {
		return err
	}
	log.Infof("wrote signed manifest to %s", out)
	return nil
}
