package airdrop

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/forestrie/go-merkledrop/merkle"
	"github.com/gagliardetto/solana-go"
	"github.com/veraison/go-cose"
)

// Manifest is the publishers signed statement of a distribution. Everything
// needed to initialize the epoch is committed to, including the authority
// that will control it, so the caller initializing the epoch must be that
// authority but needs no other trust.
type Manifest struct {
	ProgramID   []byte `cbor:"1,keyasint"`
	Mint        []byte `cbor:"2,keyasint"`
	EpochID     uint64 `cbor:"3,keyasint"`
	Root        []byte `cbor:"4,keyasint"`
	TotalAmount uint64 `cbor:"5,keyasint"`
	// LeafCount is informational, it sizes the claim bitmap.
	LeafCount uint64 `cbor:"6,keyasint"`
	// Timestamp is the unix time (milliseconds) read at the time the manifest
	// was signed.
	Timestamp int64  `cbor:"7,keyasint"`
	Authority []byte `cbor:"8,keyasint"`
}

// Params returns the epoch parameters committed to by the manifest
func (m Manifest) Params() (EpochParams, error) {
	if len(m.Mint) != solana.PublicKeyLength {
		return EpochParams{}, fmt.Errorf("%w: mint is %d bytes", ErrManifestInvalid, len(m.Mint))
	}
	root, err := merkle.DigestFromBytes(m.Root)
	if err != nil {
		return EpochParams{}, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}
	return EpochParams{
		Key:         EpochKey{Mint: solana.PublicKeyFromBytes(m.Mint), ID: m.EpochID},
		MerkleRoot:  root,
		TotalAmount: m.TotalAmount,
	}, nil
}

// PublicKeyProvider supplies the key a signed manifest must verify against
type PublicKeyProvider interface {
	PublicKey() (crypto.PublicKey, cose.Algorithm, error)
}

// ManifestKey is a fixed, trusted, manifest verification key
type ManifestKey struct {
	Key       crypto.PublicKey
	Algorithm cose.Algorithm
}

func (k ManifestKey) PublicKey() (crypto.PublicKey, cose.Algorithm, error) {
	return k.Key, k.Algorithm, nil
}

// ManifestSigner produces COSE_Sign1 signatures over manifests
type ManifestSigner struct {
	issuer    string
	cborCodec dtcbor.CBORCodec
}

func NewManifestSigner(issuer string, cborCodec dtcbor.CBORCodec) ManifestSigner {
	return ManifestSigner{
		issuer:    issuer,
		cborCodec: cborCodec,
	}
}

// Sign1 signs the manifest. The signers public key is included as a CWT
// confirmation claim, verifiers must still decide independently whether they
// trust it.
func (ms ManifestSigner) Sign1(
	coseSigner cose.Signer, keyIdentifier string, publicKey *ecdsa.PublicKey, subject string,
	m Manifest, external []byte) ([]byte, error) {

	payload, err := ms.cborCodec.MarshalCBOR(m)
	if err != nil {
		return nil, err
	}

	coseHeaders := cose.Headers{
		Protected: cose.ProtectedHeader{
			dtcose.HeaderLabelCWTClaims: dtcose.NewCNFClaim(
				ms.issuer, subject, keyIdentifier, coseSigner.Algorithm(), *publicKey),
		},
	}

	msg := cose.Sign1Message{
		Headers: coseHeaders,
		Payload: payload,
	}
	if err = msg.Sign(rand.Reader, external, coseSigner); err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}

func NewManifestCodec() (dtcbor.CBORCodec, error) {
	codec, err := dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(), // unsigned int decodes to uint64
	)
	if err != nil {
		return dtcbor.CBORCodec{}, err
	}
	return codec, nil
}

// DecodeSignedManifest decodes the manifest without verifying it
func DecodeSignedManifest(
	codec dtcbor.CBORCodec, msg []byte,
) (*dtcose.CoseSign1Message, Manifest, error) {
	signed, err := dtcose.NewCoseSign1MessageFromCBOR(
		msg, dtcose.WithDecOptions(dtcbor.NewDeterministicDecOpts()))
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	var unverified Manifest
	if err = codec.UnmarshalInto(signed.Payload, &unverified); err != nil {
		return nil, Manifest{}, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}
	return signed, unverified, nil
}

// VerifySignedManifest decodes msg and verifies it with the key from
// keyProvider. The manifest is only returned if the signature verifies.
func VerifySignedManifest(
	codec dtcbor.CBORCodec, keyProvider PublicKeyProvider, msg []byte, external []byte) (Manifest, error) {

	signed, m, err := DecodeSignedManifest(codec, msg)
	if err != nil {
		return Manifest{}, err
	}
	if err = signed.VerifyWithProvider(keyProvider, external); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}
	return m, nil
}
