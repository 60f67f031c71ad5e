// Package storage defines the object-addressed byte store contract the
// pipeline persists through, and its concrete backends: a local filesystem
// store, an objstore bucket adapter, and an in-memory store. Paths are
// hierarchical strings joined with "/" regardless of backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrNotFound indicates the requested path does not exist.
// Use errors.Is(err, storage.ErrNotFound) to check.
var ErrNotFound = errors.New("storage: not found")

// OpError wraps a backend failure with the operation and path for logging.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Storage is the six-operation object store contract. Put makes the full
// path atomically visible; concurrent operations on distinct paths must not
// corrupt either. List order is unspecified.
type Storage interface {
	// Put writes data at path and returns the path on success.
	Put(ctx context.Context, p string, data []byte) (string, error)
	// Get returns the payload at path, or ErrNotFound.
	Get(ctx context.Context, p string) ([]byte, error)
	// List returns all paths under the dir prefix whose basename matches
	// pattern. An empty pattern matches everything; a pattern containing
	// glob metacharacters is matched with path.Match, anything else is
	// treated as a regular expression.
	List(ctx context.Context, dir, pattern string) ([]string, error)
	// Exists reports whether path is present.
	Exists(ctx context.Context, p string) (bool, error)
	// Delete removes path, returning true if something was removed.
	Delete(ctx context.Context, p string) (bool, error)
	// Rename moves src to dst, returning false if src does not exist.
	Rename(ctx context.Context, src, dst string) (bool, error)
}

// Registry maps provider names to their storage handles. The "global" key
// is the fallback for providers without a dedicated entry. Read-only after
// construction.
type Registry map[string]Storage

// GlobalKey is the registry's fallback entry.
const GlobalKey = "global"

// For returns the provider's storage, falling back to the global entry.
func (r Registry) For(provider string) (Storage, error) {
	if st, ok := r[provider]; ok {
		return st, nil
	}

	if st, ok := r[GlobalKey]; ok {
		return st, nil
	}

	return nil, fmt.Errorf("storage: no storage for provider %q and no global fallback", provider)
}

// New constructs a backend from a config type and its params.
// Known types: "filesystem" (params: directory), "bucket" (params:
// directory), "memory".
func New(typ string, params map[string]string) (Storage, error) {
	switch typ {
	case "filesystem":
		dir := params["directory"]
		if dir == "" {
			return nil, errors.New(`storage: filesystem backend requires params.directory`)
		}

		return NewFilesystem(dir)
	case "bucket":
		dir := params["directory"]
		if dir == "" {
			return nil, errors.New(`storage: bucket backend requires params.directory`)
		}

		return NewBucketFromDir(dir)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown storage type %q", typ)
	}
}

// matchBasename implements the List pattern contract shared by all
// backends: empty matches all, glob metacharacters select path.Match,
// anything else is a regexp.
func matchBasename(p, pattern string) (bool, error) {
	if pattern == "" {
		return true, nil
	}

	base := path.Base(p)

	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(pattern, base)
		if err != nil {
			return false, fmt.Errorf("storage: bad glob pattern %q: %w", pattern, err)
		}

		return ok, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("storage: bad pattern %q: %w", pattern, err)
	}

	return re.MatchString(base), nil
}
