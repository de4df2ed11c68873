package leveldbstore

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkledrop/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	logger.New("NOOP")
	t.Cleanup(logger.OnExit)

	dir := filepath.Join(t.TempDir(), "claims")
	s, err := Open(logger.Sugar, Config{Path: dir})
	require.NoError(t, err)
	return s, dir
}

func TestStoreCreateGetReplace(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	_, _, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	v1, err := s.Create(ctx, "a", []byte("one"))
	require.NoError(t, err)
	_, err = s.Create(ctx, "a", []byte("again"))
	assert.ErrorIs(t, err, storage.ErrExistsOC)

	data, v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
	assert.Equal(t, v1, v)

	v2, err := s.Replace(ctx, "a", []byte("two"), v1)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	_, err = s.Replace(ctx, "a", []byte("stale"), v1)
	assert.ErrorIs(t, err, storage.ErrContentOC)
	_, err = s.Replace(ctx, "missing", []byte("x"), v1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreEmptyValue(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	_, err := s.Create(ctx, "empty", nil)
	require.NoError(t, err)
	data, _, err := s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, dir := openTestStore(t)

	_, err := s.Create(ctx, storage.PagePath("e", 1), []byte{0xff})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(logger.Sugar, Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	data, v, err := s.Get(ctx, storage.PagePath("e", 1))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, data)
	assert.Equal(t, storage.Version("1"), v)
}

func TestStoreConcurrentCreateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(ctx, "page", []byte{1}); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, storage.ErrExistsOC)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestStoreConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	_, err := s.Create(ctx, "counter", []byte{0})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := storage.Update(ctx, s, "counter", func(cur []byte) ([]byte, error) {
				return []byte{cur[0] + 1}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, _, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, byte(20), data[0])
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	defer s.Close()

	for _, p := range []string{storage.EpochPath("e"), storage.PagePath("e", 3), storage.PagePath("e", 1)} {
		_, err := s.Create(ctx, p, nil)
		require.NoError(t, err)
	}
	paths, err := s.List(ctx, storage.PagePrefix("e"))
	require.NoError(t, err)
	assert.Equal(t, []string{storage.PagePath("e", 1), storage.PagePath("e", 3)}, paths)
}
