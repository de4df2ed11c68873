// Package azblobstore provides a storage.ObjectStore on Azure blob storage.
//
// Versions are blob etags. Create puts with If-None-Match: * and Replace puts
// with If-Match: etag, so the blob service itself arbitrates between
// concurrent writers.
package azblobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkledrop/storage"
)

var ErrMissingETag = errors.New("azblobstore: blob service response carried no etag")

// blobStore is the subset of *azblob.Storer used here
type blobStore interface {
	Put(ctx context.Context, identity string, source io.ReadSeekCloser, opts ...azblob.Option) (*azblob.WriteResponse, error)
	Reader(ctx context.Context, identity string, opts ...azblob.Option) (*azblob.ReaderResponse, error)
	List(ctx context.Context, opts ...azblob.Option) (*azblob.ListerResponse, error)
}

type Store struct {
	log   logger.Logger
	store blobStore
}

var (
	_ storage.ObjectStore  = (*Store)(nil)
	_ storage.ObjectLister = (*Store)(nil)
)

func New(log logger.Logger, store blobStore) *Store {
	return &Store{log: log, store: store}
}

// BlobRead reads the blob at blobPath in its entirety. On return the reader
// in the response has been exhausted and closed.
func BlobRead(
	ctx context.Context, blobPath string, store blobStore,
	opts ...azblob.Option) (*azblob.ReaderResponse, []byte, error) {

	rr, err := store.Reader(ctx, blobPath, opts...)
	if err != nil {
		return nil, nil, wrapCode(err, ErrorCode(err), false)
	}
	defer rr.Reader.Close()

	data, err := io.ReadAll(rr.Reader)
	if err != nil {
		return nil, nil, err
	}
	return rr, data, nil
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, storage.Version, error) {
	rr, data, err := BlobRead(ctx, path, s.store)
	if err != nil {
		return nil, storage.NoVersion, err
	}
	if rr.ETag == nil {
		return nil, storage.NoVersion, fmt.Errorf("%w: reading %s", ErrMissingETag, path)
	}
	return data, storage.Version(*rr.ETag), nil
}

func (s *Store) put(
	ctx context.Context, path string, data []byte, creating bool, opts ...azblob.Option) (storage.Version, error) {

	wr, err := s.store.Put(ctx, path, azblob.NewBytesReaderCloser(data), opts...)
	if err != nil {
		return storage.NoVersion, wrapCode(err, ErrorCode(err), creating)
	}
	if wr == nil || wr.ETag == nil {
		return storage.NoVersion, fmt.Errorf("%w: writing %s", ErrMissingETag, path)
	}
	return storage.Version(*wr.ETag), nil
}

func (s *Store) Create(ctx context.Context, path string, data []byte) (storage.Version, error) {
	// The way to spell 'fail without modifying if the blob exists' is to
	// require that no blob matches *any* etag.
	return s.put(ctx, path, data, true, azblob.WithEtagNoneMatch("*"))
}

func (s *Store) Replace(
	ctx context.Context, path string, data []byte, expect storage.Version) (storage.Version, error) {

	if expect == storage.NoVersion {
		return storage.NoVersion, errors.New("azblobstore: an etag is required when replacing a blob")
	}
	v, err := s.put(ctx, path, data, false, azblob.WithEtagMatch(string(expect)))
	if err != nil && s.log != nil && errors.Is(err, storage.ErrContentOC) {
		s.log.Debugf("replace %s: etag %s no longer current", path, expect)
	}
	return v, err
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	var marker azblob.ListMarker
	for {
		r, err := s.store.List(ctx, azblob.WithListPrefix(prefix), azblob.WithListMarker(marker))
		if err != nil {
			return nil, err
		}
		for _, it := range r.Items {
			paths = append(paths, *it.Name)
		}
		if len(r.Items) == 0 || r.Marker == nil {
			break
		}
		marker = r.Marker
	}
	sort.Strings(paths)
	return paths, nil
}
