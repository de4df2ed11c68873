// Package memstore provides an in process storage.ObjectStore.
//
// Each object carries its own lock, there is no store wide lock on the read
// or write paths. It is suitable for tests and for single process deployments
// that do not need durability.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/forestrie/go-merkledrop/storage"
)

type object struct {
	mu      sync.Mutex
	exists  bool
	data    []byte
	version storage.Version
}

type Store struct {
	objects sync.Map // path -> *object
	// versions are drawn from a single counter so a version is never reused,
	// even across different paths.
	nextVersion atomic.Uint64
}

var (
	_ storage.ObjectStore  = (*Store)(nil)
	_ storage.ObjectLister = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

func (s *Store) newVersion() storage.Version {
	return storage.Version(strconv.FormatUint(s.nextVersion.Add(1), 10))
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, storage.Version, error) {
	v, ok := s.objects.Load(path)
	if !ok {
		return nil, storage.NoVersion, storage.ErrNotFound
	}
	o := v.(*object)
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.exists {
		return nil, storage.NoVersion, storage.ErrNotFound
	}
	return append([]byte(nil), o.data...), o.version, nil
}

func (s *Store) Create(ctx context.Context, path string, data []byte) (storage.Version, error) {
	v, _ := s.objects.LoadOrStore(path, &object{})
	o := v.(*object)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.exists {
		return storage.NoVersion, storage.ErrExistsOC
	}
	o.exists = true
	o.data = append([]byte(nil), data...)
	o.version = s.newVersion()
	return o.version, nil
}

func (s *Store) Replace(
	ctx context.Context, path string, data []byte, expect storage.Version) (storage.Version, error) {

	v, ok := s.objects.Load(path)
	if !ok {
		return storage.NoVersion, storage.ErrNotFound
	}
	o := v.(*object)
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.exists {
		return storage.NoVersion, storage.ErrNotFound
	}
	if o.version != expect {
		return storage.NoVersion, storage.ErrContentOC
	}
	o.data = append([]byte(nil), data...)
	o.version = s.newVersion()
	return o.version, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	s.objects.Range(func(k, v any) bool {
		path := k.(string)
		if !strings.HasPrefix(path, prefix) {
			return true
		}
		o := v.(*object)
		o.mu.Lock()
		exists := o.exists
		o.mu.Unlock()
		if exists {
			paths = append(paths, path)
		}
		return true
	})
	sort.Strings(paths)
	return paths, nil
}
