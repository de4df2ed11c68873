package airdrop

import (
	"context"
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkledrop/bitmap"
	"github.com/forestrie/go-merkledrop/storage"
	"github.com/gagliardetto/solana-go"
)

// errBitClear ends a Release early when there is nothing to undo
var errBitClear = errors.New("bit already clear")

// PageHandle refers to a claim bitmap page that is known to exist and to be
// bound to (Epoch, PageIndex).
type PageHandle struct {
	Epoch     solana.PublicKey
	PageIndex uint32
	Address   solana.PublicKey
	Bump      uint8
	Path      string
}

// ClaimIndex is the paged claim registry for all epochs in one store.
//
// It holds no locks. Page creation is create-if-absent and every bit change
// is a compare-and-swap against the version of the page that was read, so
// claims only contend when they land on the same page.
type ClaimIndex struct {
	cfg   Config
	log   logger.Logger
	store storage.ObjectStore
	codec recordCodec
}

func NewClaimIndex(log logger.Logger, store storage.ObjectStore, cfg Config) *ClaimIndex {
	return &ClaimIndex{
		cfg:   cfg,
		log:   log,
		store: store,
		codec: recordCodec{framed: cfg.AccountFraming},
	}
}

// checkPage validates that a stored page is the one at (epoch, pageIndex)
func (c *ClaimIndex) checkPage(p *bitmap.Page, epoch solana.PublicKey, pageIndex uint32) (solana.PublicKey, error) {
	if solana.PublicKeyFromBytes(p.Epoch[:]) != epoch {
		return solana.PublicKey{}, fmt.Errorf("%w: page bound to %s", ErrWrongBitmapEpoch, solana.PublicKeyFromBytes(p.Epoch[:]))
	}
	if p.PageIndex != pageIndex {
		return solana.PublicKey{}, fmt.Errorf("%w: stored %d, computed %d", ErrWrongBitmapPage, p.PageIndex, pageIndex)
	}
	return VerifyPageBinding(c.cfg.ProgramID, epoch, pageIndex, p.Bump)
}

func (c *ClaimIndex) readPage(ctx context.Context, path string) (*bitmap.Page, storage.Version, error) {
	data, version, err := c.store.Get(ctx, path)
	if err != nil {
		return nil, storage.NoVersion, err
	}
	p, err := c.codec.decodePage(data)
	if err != nil {
		return nil, storage.NoVersion, err
	}
	return p, version, nil
}

// EnsurePage returns the handle for the page at (epoch, pageIndex), creating
// a zero page if it does not exist. It is idempotent and safe to call
// concurrently: when several callers race to create the page exactly one
// create succeeds and every caller gets a handle to that page.
func (c *ClaimIndex) EnsurePage(ctx context.Context, epoch solana.PublicKey, pageIndex uint32) (PageHandle, error) {
	if pageIndex > bitmap.MaxPageIndex {
		return PageHandle{}, fmt.Errorf("%w: page %d", ErrIndexOutOfRange, pageIndex)
	}
	path := storage.PagePath(epoch.String(), pageIndex)

	p, _, err := c.readPage(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		p, err = c.createPage(ctx, path, epoch, pageIndex)
	}
	if err != nil {
		return PageHandle{}, err
	}

	addr, err := c.checkPage(p, epoch, pageIndex)
	if err != nil {
		return PageHandle{}, err
	}
	return PageHandle{
		Epoch:     epoch,
		PageIndex: pageIndex,
		Address:   addr,
		Bump:      p.Bump,
		Path:      path,
	}, nil
}

func (c *ClaimIndex) createPage(
	ctx context.Context, path string, epoch solana.PublicKey, pageIndex uint32) (*bitmap.Page, error) {

	_, bump, err := DerivePageAddress(c.cfg.ProgramID, epoch, pageIndex)
	if err != nil {
		return nil, err
	}
	p := bitmap.NewPage(epoch, pageIndex, bump)
	data, err := c.codec.encodePage(p)
	if err != nil {
		return nil, err
	}

	_, err = c.store.Create(ctx, path, data)
	if err == nil {
		c.log.Debugf("created claim page %d for epoch %s", pageIndex, epoch)
		return p, nil
	}
	if !errors.Is(err, storage.ErrExistsOC) {
		return nil, err
	}

	// Lost the race, the winners page is the page.
	p, _, err = c.readPage(ctx, path)
	return p, err
}

func checkLocation(h PageHandle, loc bitmap.Location) error {
	if loc.PageIndex != h.PageIndex {
		return fmt.Errorf("%w: location is on page %d, handle is page %d", ErrWrongBitmapPage, loc.PageIndex, h.PageIndex)
	}
	if loc.ByteIndex >= bitmap.PageBytes || loc.BitIndex > 7 {
		return fmt.Errorf("%w: byte %d bit %d", ErrIndexOutOfRange, loc.ByteIndex, loc.BitIndex)
	}
	return nil
}

func (c *ClaimIndex) updatePage(ctx context.Context, h PageHandle, fn func(p *bitmap.Page) error) error {
	_, err := storage.Update(ctx, c.store, h.Path, func(current []byte) ([]byte, error) {
		p, err := c.codec.decodePage(current)
		if err != nil {
			return nil, err
		}
		// The page was validated by EnsurePage, but the stored content is
		// what the change is applied to.
		if solana.PublicKeyFromBytes(p.Epoch[:]) != h.Epoch {
			return nil, ErrWrongBitmapEpoch
		}
		if p.PageIndex != h.PageIndex || p.Bump != h.Bump {
			return nil, ErrWrongBitmapPage
		}
		if err := fn(p); err != nil {
			return nil, err
		}
		return c.codec.encodePage(p)
	}, storage.WithMaxAttempts(c.cfg.maxRetries()), storage.WithLogger(c.log))

	if errors.Is(err, storage.ErrRetries) {
		return fmt.Errorf("%w: %v", ErrContention, err)
	}
	return err
}

// TryClaim atomically tests and sets the claim bit at loc. If the bit is
// already set ErrAlreadyClaimed is returned and nothing is written.
func (c *ClaimIndex) TryClaim(ctx context.Context, h PageHandle, loc bitmap.Location) error {
	if err := checkLocation(h, loc); err != nil {
		return err
	}
	return c.updatePage(ctx, h, func(p *bitmap.Page) error {
		ok, err := p.TestAndSet(loc)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: index %d", ErrAlreadyClaimed, loc.Index())
		}
		return nil
	})
}

// Release clears the claim bit at loc. It undoes a TryClaim whose claim could
// not be completed. Releasing a clear bit is not an error.
func (c *ClaimIndex) Release(ctx context.Context, h PageHandle, loc bitmap.Location) error {
	if err := checkLocation(h, loc); err != nil {
		return err
	}
	err := c.updatePage(ctx, h, func(p *bitmap.Page) error {
		set, err := p.IsSet(loc)
		if err != nil {
			return err
		}
		if !set {
			return errBitClear
		}
		return p.Clear(loc)
	})
	if errors.Is(err, errBitClear) {
		return nil
	}
	return err
}

// IsClaimed reports whether index has been claimed in epoch. A page that
// does not exist has no claims.
func (c *ClaimIndex) IsClaimed(ctx context.Context, epoch solana.PublicKey, index uint32) (bool, error) {
	loc := bitmap.Locate(index)
	p, _, err := c.readPage(ctx, storage.PagePath(epoch.String(), loc.PageIndex))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := c.checkPage(p, epoch, loc.PageIndex); err != nil {
		return false, err
	}
	return p.IsSet(loc)
}

// PageStat summarises one existing page
type PageStat struct {
	PageIndex uint32
	Claimed   int
}

// Pages lists the pages that exist for epoch and how many claims each
// holds. The store must support listing.
func (c *ClaimIndex) Pages(ctx context.Context, epoch solana.PublicKey) ([]PageStat, error) {
	lister, ok := c.store.(storage.ObjectLister)
	if !ok {
		return nil, errors.New("the claim store does not support listing")
	}
	paths, err := lister.List(ctx, storage.PagePrefix(epoch.String()))
	if err != nil {
		return nil, err
	}
	stats := make([]PageStat, 0, len(paths))
	for _, path := range paths {
		pageIndex, err := storage.PageIndexFromPath(path)
		if err != nil {
			return nil, err
		}
		p, _, err := c.readPage(ctx, path)
		if err != nil {
			return nil, err
		}
		if _, err := c.checkPage(p, epoch, pageIndex); err != nil {
			return nil, err
		}
		stats = append(stats, PageStat{PageIndex: pageIndex, Claimed: p.Count()})
	}
	return stats, nil
}
