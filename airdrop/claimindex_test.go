package airdrop

import (
	"context"
	"sync"
	"testing"

	"github.com/forestrie/go-merkledrop/bitmap"
	"github.com/forestrie/go-merkledrop/droptesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClaimIndex(t *testing.T, kind droptesting.StoreKind) *ClaimIndex {
	tc := droptesting.NewTestContext(t, droptesting.TestConfig{TestLabelPrefix: "claimindex"})
	return NewClaimIndex(tc.Log, tc.NewStore(kind), Config{ProgramID: testProgramID})
}

func TestEnsurePageConcurrent(t *testing.T) {
	for _, kind := range []droptesting.StoreKind{droptesting.StoreMemory, droptesting.StoreLevelDB} {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			c := newTestClaimIndex(t, kind)
			epoch := droptesting.Key("epoch")

			const callers = 32
			var wg sync.WaitGroup
			handles := make([]PageHandle, callers)
			errs := make([]error, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					handles[i], errs[i] = c.EnsurePage(ctx, epoch, 3)
				}(i)
			}
			wg.Wait()

			addr, bump, err := DerivePageAddress(testProgramID, epoch, 3)
			require.NoError(t, err)
			for i := range handles {
				require.NoError(t, errs[i])
				assert.Equal(t, handles[0], handles[i])
			}
			assert.Equal(t, addr, handles[0].Address)
			assert.Equal(t, bump, handles[0].Bump)

			stats, err := c.Pages(ctx, epoch)
			require.NoError(t, err)
			assert.Equal(t, []PageStat{{PageIndex: 3, Claimed: 0}}, stats)
		})
	}
}

func TestEnsurePagePreservesClaims(t *testing.T) {
	ctx := context.Background()
	c := newTestClaimIndex(t, droptesting.StoreMemory)
	epoch := droptesting.Key("epoch")

	h, err := c.EnsurePage(ctx, epoch, 0)
	require.NoError(t, err)
	require.NoError(t, c.TryClaim(ctx, h, bitmap.Locate(9)))

	again, err := c.EnsurePage(ctx, epoch, 0)
	require.NoError(t, err)
	assert.Equal(t, h, again)
	claimed, err := c.IsClaimed(ctx, epoch, 9)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestEnsurePageRange(t *testing.T) {
	ctx := context.Background()
	c := newTestClaimIndex(t, droptesting.StoreMemory)
	epoch := droptesting.Key("epoch")

	_, err := c.EnsurePage(ctx, epoch, bitmap.MaxPageIndex+1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	h, err := c.EnsurePage(ctx, epoch, bitmap.MaxPageIndex)
	require.NoError(t, err)
	require.NoError(t, c.TryClaim(ctx, h, bitmap.Locate(^uint32(0))))
	claimed, err := c.IsClaimed(ctx, epoch, ^uint32(0))
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestTryClaimConcurrent(t *testing.T) {
	ctx := context.Background()
	c := newTestClaimIndex(t, droptesting.StoreMemory)
	epoch := droptesting.Key("epoch")
	h, err := c.EnsurePage(ctx, epoch, 1)
	require.NoError(t, err)

	// every bit of a byte contended by several claimers
	const claimers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := map[uint32]int{}
	for bit := uint32(0); bit < 8; bit++ {
		for i := 0; i < claimers; i++ {
			wg.Add(1)
			go func(index uint32) {
				defer wg.Done()
				err := c.TryClaim(ctx, h, bitmap.Locate(index))
				if err == nil {
					mu.Lock()
					won[index]++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, ErrAlreadyClaimed)
			}(bitmap.PageBitCapacity + 16 + bit)
		}
	}
	wg.Wait()

	require.Len(t, won, 8)
	for index, n := range won {
		assert.Equal(t, 1, n, "index %d", index)
	}
	stats, err := c.Pages(ctx, epoch)
	require.NoError(t, err)
	assert.Equal(t, []PageStat{{PageIndex: 1, Claimed: 8}}, stats)
}

func TestTryClaimWrongPage(t *testing.T) {
	ctx := context.Background()
	c := newTestClaimIndex(t, droptesting.StoreMemory)
	h, err := c.EnsurePage(ctx, droptesting.Key("epoch"), 0)
	require.NoError(t, err)

	err = c.TryClaim(ctx, h, bitmap.Locate(bitmap.PageBitCapacity))
	assert.ErrorIs(t, err, ErrWrongBitmapPage)

	loc := bitmap.Location{PageIndex: 0, ByteIndex: bitmap.PageBytes}
	assert.ErrorIs(t, c.TryClaim(ctx, h, loc), ErrIndexOutOfRange)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	c := newTestClaimIndex(t, droptesting.StoreMemory)
	epoch := droptesting.Key("epoch")
	h, err := c.EnsurePage(ctx, epoch, 0)
	require.NoError(t, err)
	loc := bitmap.Locate(42)

	// releasing a clear bit is a no-op
	require.NoError(t, c.Release(ctx, h, loc))

	require.NoError(t, c.TryClaim(ctx, h, loc))
	assert.ErrorIs(t, c.TryClaim(ctx, h, loc), ErrAlreadyClaimed)
	require.NoError(t, c.Release(ctx, h, loc))
	claimed, err := c.IsClaimed(ctx, epoch, 42)
	require.NoError(t, err)
	assert.False(t, claimed)
	require.NoError(t, c.TryClaim(ctx, h, loc))
}

func TestIsClaimedMissingPage(t *testing.T) {
	c := newTestClaimIndex(t, droptesting.StoreMemory)
	claimed, err := c.IsClaimed(context.Background(), droptesting.Key("epoch"), 100000)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestPagesPerEpoch(t *testing.T) {
	ctx := context.Background()
	c := newTestClaimIndex(t, droptesting.StoreMemory)
	a, b := droptesting.Key("epoch a"), droptesting.Key("epoch b")

	for _, p := range []uint32{0, 2} {
		_, err := c.EnsurePage(ctx, a, p)
		require.NoError(t, err)
	}
	_, err := c.EnsurePage(ctx, b, 1)
	require.NoError(t, err)

	stats, err := c.Pages(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []PageStat{{PageIndex: 0}, {PageIndex: 2}}, stats)
	stats, err = c.Pages(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []PageStat{{PageIndex: 1}}, stats)
}
