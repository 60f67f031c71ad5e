package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/filesystem"
)

// Bucket adapts an objstore.Bucket to the Storage contract. The "bucket"
// config type constructs it over objstore's filesystem provider; any other
// objstore provider (S3, GCS, ...) can be wired in through NewBucket.
//
// objstore has no native rename, so Rename is get+put+delete. That is not
// atomic; the pipeline only renames within single-writer directories.
type Bucket struct {
	bkt objstore.Bucket
}

// NewBucket wraps an existing objstore bucket.
func NewBucket(bkt objstore.Bucket) *Bucket {
	return &Bucket{bkt: bkt}
}

// NewBucketFromDir creates a bucket over objstore's filesystem provider
// rooted at dir.
func NewBucketFromDir(dir string) (*Bucket, error) {
	bkt, err := filesystem.NewBucket(dir)
	if err != nil {
		return nil, &OpError{Op: "init", Path: dir, Err: err}
	}

	return NewBucket(bkt), nil
}

func (b *Bucket) Put(ctx context.Context, p string, data []byte) (string, error) {
	if err := b.bkt.Upload(ctx, p, bytes.NewReader(data)); err != nil {
		return "", &OpError{Op: "put", Path: p, Err: err}
	}

	return p, nil
}

func (b *Bucket) Get(ctx context.Context, p string) ([]byte, error) {
	rc, err := b.bkt.Get(ctx, p)
	if err != nil {
		if b.bkt.IsObjNotFoundErr(err) {
			return nil, &OpError{Op: "get", Path: p, Err: ErrNotFound}
		}

		return nil, &OpError{Op: "get", Path: p, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &OpError{Op: "get", Path: p, Err: err}
	}

	return data, nil
}

func (b *Bucket) List(ctx context.Context, dir, pattern string) ([]string, error) {
	// objstore iterates directory-style; it expects a "/"-terminated prefix.
	prefix := dir
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var out []string

	err := b.bkt.Iter(ctx, prefix, func(name string) error {
		ok, matchErr := matchBasename(name, pattern)
		if matchErr != nil {
			return matchErr
		}

		if ok {
			out = append(out, name)
		}

		return nil
	}, objstore.WithRecursiveIter())
	if err != nil {
		return nil, &OpError{Op: "list", Path: dir, Err: err}
	}

	return out, nil
}

func (b *Bucket) Exists(ctx context.Context, p string) (bool, error) {
	ok, err := b.bkt.Exists(ctx, p)
	if err != nil {
		return false, &OpError{Op: "exists", Path: p, Err: err}
	}

	return ok, nil
}

func (b *Bucket) Delete(ctx context.Context, p string) (bool, error) {
	ok, err := b.bkt.Exists(ctx, p)
	if err != nil {
		return false, &OpError{Op: "delete", Path: p, Err: err}
	}

	if !ok {
		return false, nil
	}

	if err := b.bkt.Delete(ctx, p); err != nil {
		return false, &OpError{Op: "delete", Path: p, Err: err}
	}

	return true, nil
}

func (b *Bucket) Rename(ctx context.Context, src, dst string) (bool, error) {
	data, err := b.Get(ctx, src)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	if _, err := b.Put(ctx, dst, data); err != nil {
		return false, err
	}

	if _, err := b.Delete(ctx, src); err != nil {
		return false, err
	}

	return true, nil
}
