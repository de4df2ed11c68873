// Package leveldbstore provides a durable storage.ObjectStore on goleveldb.
//
// leveldb has no conditional put, so the version check and the write are made
// atomic with a lock striped over the object path. Unrelated objects rarely
// share a stripe and never wait on each other for long.
package leveldbstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"sync"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkledrop/storage"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	lockStripes  = 256
	versionBytes = 8
)

var (
	ErrCorrupt = errors.New("leveldbstore: database is corrupt")
	ErrClosed  = errors.New("leveldbstore: database is closed")
	ErrFraming = errors.New("leveldbstore: stored value is missing its version")
)

type Config struct {
	// Path is the directory holding the database, it is created if needed.
	Path string
	// Sync forces an fsync for every write.
	Sync bool
}

type Store struct {
	log   logger.Logger
	db    *leveldb.DB
	wo    *opt.WriteOptions
	locks [lockStripes]sync.Mutex
}

var (
	_ storage.ObjectStore  = (*Store)(nil)
	_ storage.ObjectLister = (*Store)(nil)
)

func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// convertLdbErr maps leveldb failures onto this packages errors, keeping the
// original in the message.
func convertLdbErr(ldbErr error, desc string) error {
	switch {
	case ldberrors.IsCorrupted(ldbErr):
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, desc, ldbErr)
	case errors.Is(ldbErr, leveldb.ErrClosed):
		return fmt.Errorf("%w: %s: %v", ErrClosed, desc, ldbErr)
	}
	return fmt.Errorf("%s: %w", desc, ldbErr)
}

// Open loads, or creates when needed, the database at cfg.Path.
func Open(log logger.Logger, cfg Config) (*Store, error) {
	dbExists := fileExists(cfg.Path)
	if !dbExists {
		// leveldb.OpenFile will fail if the directory couldn't be created.
		_ = os.MkdirAll(cfg.Path, 0700)
	}

	log.Infof("opening claim store at '%s'", cfg.Path)
	opts := opt.Options{
		ErrorIfExist: !dbExists,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(cfg.Path, &opts)
	if err != nil {
		return nil, convertLdbErr(err, "failed to open claim store")
	}
	return New(log, db, cfg.Sync), nil
}

// New wraps an already open database
func New(log logger.Logger, db *leveldb.DB, sync bool) *Store {
	return &Store{
		log: log,
		db:  db,
		wo:  &opt.WriteOptions{Sync: sync},
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lockFor(path string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(path))
	return &s.locks[h.Sum32()%lockStripes]
}

// values are framed as big endian u64 version || data

func frame(version uint64, data []byte) []byte {
	b := make([]byte, versionBytes+len(data))
	binary.BigEndian.PutUint64(b, version)
	copy(b[versionBytes:], data)
	return b
}

func unframe(value []byte) (uint64, []byte, error) {
	if len(value) < versionBytes {
		return 0, nil, ErrFraming
	}
	return binary.BigEndian.Uint64(value), value[versionBytes:], nil
}

func fmtVersion(v uint64) storage.Version {
	return storage.Version(strconv.FormatUint(v, 10))
}

func (s *Store) read(path string) (uint64, []byte, error) {
	value, err := s.db.Get([]byte(path), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil, storage.ErrNotFound
		}
		return 0, nil, convertLdbErr(err, fmt.Sprintf("failed to get %s", path))
	}
	return unframe(value)
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, storage.Version, error) {
	version, data, err := s.read(path)
	if err != nil {
		return nil, storage.NoVersion, err
	}
	return data, fmtVersion(version), nil
}

func (s *Store) Create(ctx context.Context, path string, data []byte) (storage.Version, error) {
	mu := s.lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	_, _, err := s.read(path)
	if err == nil {
		return storage.NoVersion, storage.ErrExistsOC
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.NoVersion, err
	}

	const first = 1
	if err := s.db.Put([]byte(path), frame(first, data), s.wo); err != nil {
		return storage.NoVersion, convertLdbErr(err, fmt.Sprintf("failed to create %s", path))
	}
	return fmtVersion(first), nil
}

func (s *Store) Replace(
	ctx context.Context, path string, data []byte, expect storage.Version) (storage.Version, error) {

	mu := s.lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	current, _, err := s.read(path)
	if err != nil {
		return storage.NoVersion, err
	}
	if fmtVersion(current) != expect {
		return storage.NoVersion, storage.ErrContentOC
	}
	next := current + 1
	if err := s.db.Put([]byte(path), frame(next, data), s.wo); err != nil {
		return storage.NoVersion, convertLdbErr(err, fmt.Sprintf("failed to replace %s", path))
	}
	return fmtVersion(next), nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var paths []string
	for iter.Next() {
		paths = append(paths, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, convertLdbErr(err, fmt.Sprintf("failed to list %s", prefix))
	}
	return paths, nil
}
