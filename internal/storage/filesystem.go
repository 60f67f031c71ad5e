package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Filesystem stores objects as files under a root directory. Keys use "/"
// separators and are translated to the platform separator internally. Put
// is atomic: data lands in a temp file first and is renamed into place.
type Filesystem struct {
	root string
}

// NewFilesystem creates the root directory if needed and returns the store.
func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &OpError{Op: "init", Path: root, Err: err}
	}

	return &Filesystem{root: root}, nil
}

// abs translates a "/"-separated key to an absolute filesystem path.
func (f *Filesystem) abs(p string) string {
	return filepath.Join(f.root, filepath.FromSlash(p))
}

func (f *Filesystem) Put(_ context.Context, p string, data []byte) (string, error) {
	dst := f.abs(p)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", &OpError{Op: "put", Path: p, Err: err}
	}

	// Write-temp-then-rename keeps partially written files invisible to
	// concurrent List/Get callers.
	tmp := dst + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", &OpError{Op: "put", Path: p, Err: err}
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)

		return "", &OpError{Op: "put", Path: p, Err: err}
	}

	return p, nil
}

func (f *Filesystem) Get(_ context.Context, p string) ([]byte, error) {
	data, err := os.ReadFile(f.abs(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &OpError{Op: "get", Path: p, Err: ErrNotFound}
		}

		return nil, &OpError{Op: "get", Path: p, Err: err}
	}

	return data, nil
}

func (f *Filesystem) List(_ context.Context, dir, pattern string) ([]string, error) {
	root := f.abs(dir)

	var out []string

	err := filepath.WalkDir(root, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		if d.IsDir() {
			return nil
		}

		// Temp files from in-flight puts are not yet visible objects.
		if strings.Contains(d.Name(), ".tmp-") {
			return nil
		}

		rel, relErr := filepath.Rel(f.root, fp)
		if relErr != nil {
			return relErr
		}

		key := filepath.ToSlash(rel)

		ok, matchErr := matchBasename(key, pattern)
		if matchErr != nil {
			return matchErr
		}

		if ok {
			out = append(out, key)
		}

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &OpError{Op: "list", Path: dir, Err: err}
	}

	return out, nil
}

func (f *Filesystem) Exists(_ context.Context, p string) (bool, error) {
	_, err := os.Stat(f.abs(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, &OpError{Op: "exists", Path: p, Err: err}
	}

	return true, nil
}

func (f *Filesystem) Delete(_ context.Context, p string) (bool, error) {
	err := os.Remove(f.abs(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, &OpError{Op: "delete", Path: p, Err: err}
	}

	return true, nil
}

func (f *Filesystem) Rename(_ context.Context, src, dst string) (bool, error) {
	dstAbs := f.abs(dst)

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return false, &OpError{Op: "rename", Path: dst, Err: err}
	}

	err := os.Rename(f.abs(src), dstAbs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, &OpError{Op: "rename", Path: src, Err: err}
	}

	return true, nil
}
