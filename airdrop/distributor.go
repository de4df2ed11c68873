package airdrop

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkledrop/bitmap"
	"github.com/forestrie/go-merkledrop/merkle"
	"github.com/forestrie/go-merkledrop/storage"
	"github.com/forestrie/go-merkledrop/vault"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// EpochParams are the values an authority commits to when it starts an epoch
type EpochParams struct {
	Key         EpochKey
	MerkleRoot  merkle.Digest
	TotalAmount uint64
}

// ClaimRequest is a single claim as submitted by the recipient. The caller is
// responsible for authenticating Recipient.
type ClaimRequest struct {
	Key       EpochKey
	Index     uint32
	Recipient solana.PublicKey
	Amount    uint64
	Proof     []merkle.Digest
}

// Receipt confirms a completed claim
type Receipt struct {
	ID           uuid.UUID
	Epoch        solana.PublicKey
	Index        uint32
	Recipient    solana.PublicKey
	Amount       uint64
	Location     bitmap.Location
	TotalClaimed uint64
}

// Distributor runs epochs: their lifecycle, and the claims made against them.
//
// A claim is made atomic with a compare-and-swap on the claim bit, a
// reservation of the amount against the epoch, and then the payout. If a
// later step fails the earlier ones are compensated in reverse order, so a
// failed claim leaves neither the bit set nor the amount counted.
//
// Until the payout completes the claim is in flight. A claim for the same
// index made through the same Distributor in that window gets
// ErrClaimPending, and IsClaimed reports false.
type Distributor struct {
	cfg   Config
	log   logger.Logger
	store storage.ObjectStore
	index *ClaimIndex
	payer vault.Transferer
	codec recordCodec
	opts  Options

	inflight sync.Map // claimKey -> struct{}
}

type claimKey struct {
	epoch solana.PublicKey
	index uint32
}

func NewDistributor(
	log logger.Logger, store storage.ObjectStore, payer vault.Transferer, cfg Config,
	opts ...Option) *Distributor {

	d := &Distributor{
		cfg:   cfg,
		log:   log,
		store: store,
		index: NewClaimIndex(log, store, cfg),
		payer: payer,
		codec: recordCodec{framed: cfg.AccountFraming},
		opts:  defaultOptions(),
	}
	for _, o := range opts {
		o(&d.opts)
	}
	return d
}

// Index exposes the claim registry the distributor uses
func (d *Distributor) Index() *ClaimIndex { return d.index }

func (d *Distributor) emit(ctx context.Context, ev Event) {
	if err := d.opts.Events.Emit(ctx, ev); err != nil {
		d.log.Infof("failed to emit %s: %v", ev.Kind(), err)
	}
}

// InitializeEpoch creates the epoch record for p.Key, owned by authority.
func (d *Distributor) InitializeEpoch(
	ctx context.Context, authority solana.PublicKey, p EpochParams) (solana.PublicKey, error) {

	if p.TotalAmount == 0 {
		return solana.PublicKey{}, ErrInvalidAmount
	}
	if authority == (solana.PublicKey{}) {
		return solana.PublicKey{}, ErrInvalidAuthority
	}
	addr, bump, err := DeriveEpochAddress(d.cfg.ProgramID, p.Key)
	if err != nil {
		return solana.PublicKey{}, err
	}

	e := &Epoch{
		Authority:   authority,
		Mint:        p.Key.Mint,
		MerkleRoot:  p.MerkleRoot,
		TotalAmount: p.TotalAmount,
		Bump:        bump,
	}
	data, err := d.codec.encodeEpoch(e)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, err = d.store.Create(ctx, storage.EpochPath(addr.String()), data); err != nil {
		if errors.Is(err, storage.ErrExistsOC) {
			return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrEpochExists, p.Key)
		}
		return solana.PublicKey{}, err
	}

	d.log.Infof("epoch %s initialized at %s, root %s, total %d", p.Key, addr, p.MerkleRoot, p.TotalAmount)
	d.emit(ctx, EpochInitialized{
		Epoch:       addr,
		Authority:   authority,
		Mint:        p.Key.Mint,
		TotalAmount: p.TotalAmount,
		MerkleRoot:  p.MerkleRoot,
		EpochID:     p.Key.ID,
	})
	return addr, nil
}

// InitializeEpochFromManifest verifies a signed distribution manifest against
// the configured manifest key and initializes the epoch it describes. Only the
// authority named in the manifest may do this.
func (d *Distributor) InitializeEpochFromManifest(
	ctx context.Context, authority solana.PublicKey, signed []byte) (solana.PublicKey, error) {

	if d.opts.ManifestKey == nil {
		return solana.PublicKey{}, ErrManifestKeyMissing
	}
	codec, err := NewManifestCodec()
	if err != nil {
		return solana.PublicKey{}, err
	}
	m, err := VerifySignedManifest(codec, d.opts.ManifestKey, signed, nil)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if len(m.ProgramID) != solana.PublicKeyLength || solana.PublicKeyFromBytes(m.ProgramID) != d.cfg.ProgramID {
		return solana.PublicKey{}, fmt.Errorf("%w: manifest is for program %x", ErrManifestInvalid, m.ProgramID)
	}
	if len(m.Authority) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%w: authority is %d bytes", ErrManifestInvalid, len(m.Authority))
	}
	if solana.PublicKeyFromBytes(m.Authority) != authority {
		return solana.PublicKey{}, fmt.Errorf("%w: manifest names authority %s", ErrUnauthorized, solana.PublicKeyFromBytes(m.Authority))
	}
	p, err := m.Params()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return d.InitializeEpoch(ctx, authority, p)
}

// loadEpoch reads the epoch for key and checks it is bound to key
func (d *Distributor) loadEpoch(ctx context.Context, key EpochKey) (solana.PublicKey, *Epoch, error) {
	addr, _, err := DeriveEpochAddress(d.cfg.ProgramID, key)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	data, _, err := d.store.Get(ctx, storage.EpochPath(addr.String()))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return solana.PublicKey{}, nil, fmt.Errorf("%w: %s", ErrEpochNotFound, key)
		}
		return solana.PublicKey{}, nil, err
	}
	e, err := d.codec.decodeEpoch(data)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if err := d.checkEpoch(e, key, addr); err != nil {
		return solana.PublicKey{}, nil, err
	}
	return addr, e, nil
}

func (d *Distributor) checkEpoch(e *Epoch, key EpochKey, addr solana.PublicKey) error {
	if e.Mint != key.Mint {
		return fmt.Errorf("%w: epoch mint %s, requested %s", ErrWrongMint, e.Mint, key.Mint)
	}
	return VerifyEpochBinding(d.cfg.ProgramID, key, addr, e.Bump)
}

// updateEpoch applies fn to the current epoch record with compare-and-swap
// retries. fn may run more than once.
func (d *Distributor) updateEpoch(
	ctx context.Context, key EpochKey, addr solana.PublicKey, fn func(e *Epoch) error) (*Epoch, error) {

	var updated *Epoch
	_, err := storage.Update(ctx, d.store, storage.EpochPath(addr.String()), func(current []byte) ([]byte, error) {
		e, err := d.codec.decodeEpoch(current)
		if err != nil {
			return nil, err
		}
		if err := d.checkEpoch(e, key, addr); err != nil {
			return nil, err
		}
		if err := fn(e); err != nil {
			return nil, err
		}
		updated = e
		return d.codec.encodeEpoch(e)
	}, storage.WithMaxAttempts(d.cfg.maxRetries()), storage.WithLogger(d.log))

	if errors.Is(err, storage.ErrRetries) {
		return nil, fmt.Errorf("%w: %v", ErrContention, err)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrEpochNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func requireAuthority(e *Epoch, authority solana.PublicKey) error {
	if e.Authority != authority {
		return ErrUnauthorized
	}
	return nil
}

// EnsurePage makes sure the claim page exists for an initialized epoch
func (d *Distributor) EnsurePage(ctx context.Context, key EpochKey, pageIndex uint32) (PageHandle, error) {
	addr, _, err := d.loadEpoch(ctx, key)
	if err != nil {
		return PageHandle{}, err
	}
	return d.index.EnsurePage(ctx, addr, pageIndex)
}

func (d *Distributor) checkClaimRequest(req ClaimRequest) error {
	if req.Amount == 0 {
		return ErrInvalidAmount
	}
	if err := merkle.CheckProofLen(req.Proof); err != nil {
		return fmt.Errorf("%w: %v", ErrProofTooLarge, err)
	}
	return nil
}

// Claim pays out the amount committed to for req.Index, exactly once.
func (d *Distributor) Claim(ctx context.Context, req ClaimRequest) (*Receipt, error) {
	// Cheap validation first, no hashing happens before the proof bound is
	// checked.
	if err := d.checkClaimRequest(req); err != nil {
		return nil, err
	}

	addr, e, err := d.loadEpoch(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if e.Paused {
		return nil, ErrEpochPaused
	}

	hasher := d.opts.NewHasher()
	leaf := merkle.LeafHashWith(hasher, req.Index, req.Recipient, req.Amount)
	if !merkle.VerifyWith(hasher, leaf, req.Proof, e.MerkleRoot) {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidProof, req.Index)
	}

	ck := claimKey{epoch: addr, index: req.Index}
	if _, busy := d.inflight.LoadOrStore(ck, struct{}{}); busy {
		return nil, fmt.Errorf("%w: index %d", ErrClaimPending, req.Index)
	}
	// released after any compensation has completed
	defer d.inflight.Delete(ck)

	loc := bitmap.Locate(req.Index)
	h, err := d.index.EnsurePage(ctx, addr, loc.PageIndex)
	if err != nil {
		return nil, err
	}
	if err := d.index.TryClaim(ctx, h, loc); err != nil {
		return nil, err
	}

	// The bit is ours. Everything from here on must release it on failure.
	updated, err := d.reserve(ctx, req.Key, addr, req.Amount)
	if err != nil {
		d.compensate(ctx, req, addr, h, loc, false)
		return nil, err
	}

	grant := vault.Grant{Epoch: addr, Mint: req.Key.Mint}
	if err := d.payer.Transfer(ctx, grant, req.Recipient, req.Amount); err != nil {
		d.compensate(ctx, req, addr, h, loc, true)
		if errors.Is(err, vault.ErrInsufficientBalance) {
			return nil, fmt.Errorf("%w: %w: %v", ErrPayoutFailed, ErrInsufficientVaultBalance, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrPayoutFailed, err)
	}

	d.emit(ctx, AirdropClaimed{
		Epoch:     addr,
		Recipient: req.Recipient,
		Index:     req.Index,
		Amount:    req.Amount,
		PageIndex: loc.PageIndex,
		ByteIndex: loc.ByteIndex,
		BitIndex:  loc.BitIndex,
	})
	return &Receipt{
		ID:           uuid.New(),
		Epoch:        addr,
		Index:        req.Index,
		Recipient:    req.Recipient,
		Amount:       req.Amount,
		Location:     loc,
		TotalClaimed: updated.TotalClaimed,
	}, nil
}

// reserve counts amount against the epoch total before the payout is made
func (d *Distributor) reserve(
	ctx context.Context, key EpochKey, addr solana.PublicKey, amount uint64) (*Epoch, error) {

	return d.updateEpoch(ctx, key, addr, func(e *Epoch) error {
		// the epoch may have been paused since it was first read
		if e.Paused {
			return ErrEpochPaused
		}
		total, carry := bits.Add64(e.TotalClaimed, amount, 0)
		if carry != 0 {
			return fmt.Errorf("%w: total claimed %d + %d", ErrMathOverflow, e.TotalClaimed, amount)
		}
		if !d.cfg.AllowOverClaim && total > e.TotalAmount {
			return fmt.Errorf("%w: %d of %d claimed, requested %d",
				ErrClaimExceedsTotal, e.TotalClaimed, e.TotalAmount, amount)
		}
		e.TotalClaimed = total
		return nil
	})
}

func (d *Distributor) unreserve(
	ctx context.Context, key EpochKey, addr solana.PublicKey, amount uint64) error {

	_, err := d.updateEpoch(ctx, key, addr, func(e *Epoch) error {
		total, borrow := bits.Sub64(e.TotalClaimed, amount, 0)
		if borrow != 0 {
			return fmt.Errorf("%w: total claimed %d - %d", ErrMathOverflow, e.TotalClaimed, amount)
		}
		e.TotalClaimed = total
		return nil
	})
	return err
}

// compensate undoes the completed steps of a failed claim in reverse order.
// A compensation failure leaves the claim recorded without a payout, which is
// the safe direction, so it is logged for an operator rather than returned.
func (d *Distributor) compensate(
	ctx context.Context, req ClaimRequest, addr solana.PublicKey, h PageHandle, loc bitmap.Location,
	reserved bool) {

	// compensation must run even if the claim context was cancelled
	ctx = context.WithoutCancel(ctx)

	if reserved {
		if err := d.unreserve(ctx, req.Key, addr, req.Amount); err != nil {
			d.log.Infof("epoch %s: failed to reverse reservation of %d for index %d: %v",
				addr, req.Amount, req.Index, err)
			return
		}
	}
	if err := d.index.Release(ctx, h, loc); err != nil {
		d.log.Infof("epoch %s: failed to release claim bit for index %d: %v", addr, req.Index, err)
	}
}

// SetPaused stops or resumes claims against the epoch
func (d *Distributor) SetPaused(ctx context.Context, authority solana.PublicKey, key EpochKey, paused bool) error {
	addr, _, err := DeriveEpochAddress(d.cfg.ProgramID, key)
	if err != nil {
		return err
	}
	if _, err = d.updateEpoch(ctx, key, addr, func(e *Epoch) error {
		if err := requireAuthority(e, authority); err != nil {
			return err
		}
		e.Paused = paused
		return nil
	}); err != nil {
		return err
	}

	d.log.Infof("epoch %s paused=%v", key, paused)
	d.emit(ctx, EpochPaused{Epoch: addr, Paused: paused})
	return nil
}

// SetAuthority hands control of the epoch to newAuthority
func (d *Distributor) SetAuthority(
	ctx context.Context, authority solana.PublicKey, key EpochKey, newAuthority solana.PublicKey) error {

	if newAuthority == (solana.PublicKey{}) {
		return ErrInvalidAuthority
	}
	addr, _, err := DeriveEpochAddress(d.cfg.ProgramID, key)
	if err != nil {
		return err
	}
	if _, err = d.updateEpoch(ctx, key, addr, func(e *Epoch) error {
		if err := requireAuthority(e, authority); err != nil {
			return err
		}
		e.Authority = newAuthority
		return nil
	}); err != nil {
		return err
	}

	d.log.Infof("epoch %s authority changed to %s", key, newAuthority)
	d.emit(ctx, EpochAuthorityChanged{Epoch: addr, NewAuthority: newAuthority})
	return nil
}

// SweepRemaining moves whatever is left in the epoch vault to treasury and
// returns the amount moved.
func (d *Distributor) SweepRemaining(
	ctx context.Context, authority solana.PublicKey, key EpochKey, treasury solana.PublicKey) (uint64, error) {

	addr, e, err := d.loadEpoch(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := requireAuthority(e, authority); err != nil {
		return 0, err
	}

	grant := vault.Grant{Epoch: addr, Mint: key.Mint}
	amount, err := d.payer.Balance(ctx, grant)
	if err != nil {
		return 0, err
	}
	if amount > 0 {
		if err := d.payer.Transfer(ctx, grant, treasury, amount); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrPayoutFailed, err)
		}
	}

	d.log.Infof("epoch %s swept %d to %s", key, amount, treasury)
	d.emit(ctx, EpochSwept{Epoch: addr, To: treasury, Amount: amount})
	return amount, nil
}

// GetEpoch returns the epoch address and record for key
func (d *Distributor) GetEpoch(ctx context.Context, key EpochKey) (solana.PublicKey, *Epoch, error) {
	return d.loadEpoch(ctx, key)
}

// IsClaimed reports whether index has been claimed in the epoch for key. A
// claim whose payout has not completed is not yet claimed.
func (d *Distributor) IsClaimed(ctx context.Context, key EpochKey, index uint32) (bool, error) {
	addr, _, err := d.loadEpoch(ctx, key)
	if err != nil {
		return false, err
	}
	if _, pending := d.inflight.Load(claimKey{epoch: addr, index: index}); pending {
		return false, nil
	}
	return d.index.IsClaimed(ctx, addr, index)
}
