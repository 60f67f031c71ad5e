package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/storage"
)

// backends under contract test. The bucket backend shares the filesystem
// root mechanism through objstore's filesystem provider.
func backends(t *testing.T) map[string]storage.Storage {
	t.Helper()

	fs, err := storage.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	bkt, err := storage.NewBucketFromDir(t.TempDir())
	require.NoError(t, err)

	return map[string]storage.Storage{
		"memory":     storage.NewMemory(),
		"filesystem": fs,
		"bucket":     bkt,
	}
}

func TestStorageContract(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()

			// Put returns the path and makes it visible.
			p, err := st.Put(ctx, "prov/Alert/individual/individual_2023-01-01_12-00-00.parquet", []byte("one"))
			require.NoError(t, err)
			assert.Equal(t, "prov/Alert/individual/individual_2023-01-01_12-00-00.parquet", p)

			ok, err := st.Exists(ctx, p)
			require.NoError(t, err)
			assert.True(t, ok)

			data, err := st.Get(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), data)

			// Get on a missing path classifies as not-found.
			_, err = st.Get(ctx, "prov/missing.parquet")
			require.Error(t, err)
			assert.ErrorIs(t, err, storage.ErrNotFound)

			// List honours the dir prefix.
			_, err = st.Put(ctx, "prov/Alert/individual/individual_2023-01-01_12-05-00.parquet", []byte("two"))
			require.NoError(t, err)
			_, err = st.Put(ctx, "prov/Alert/2023-01-01/12-00.parquet", []byte("agg"))
			require.NoError(t, err)

			files, err := st.List(ctx, "prov/Alert/individual/", "")
			require.NoError(t, err)
			assert.Len(t, files, 2)

			// Glob pattern on the basename.
			files, err = st.List(ctx, "prov/Alert/individual/", "individual_*.parquet")
			require.NoError(t, err)
			assert.Len(t, files, 2)

			files, err = st.List(ctx, "prov/Alert/individual/", "nomatch_*.parquet")
			require.NoError(t, err)
			assert.Empty(t, files)

			// Regex pattern on the basename.
			files, err = st.List(ctx, "prov/Alert/individual/", `individual_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.parquet`)
			require.NoError(t, err)
			assert.Len(t, files, 2)

			// Listing an absent prefix is empty, not an error.
			files, err = st.List(ctx, "prov/TripUpdate/individual/", "")
			require.NoError(t, err)
			assert.Empty(t, files)

			// Rename moves the payload.
			moved, err := st.Rename(ctx, p, "prov/Alert/renamed.parquet")
			require.NoError(t, err)
			assert.True(t, moved)

			ok, err = st.Exists(ctx, p)
			require.NoError(t, err)
			assert.False(t, ok)

			data, err = st.Get(ctx, "prov/Alert/renamed.parquet")
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), data)

			moved, err = st.Rename(ctx, "prov/never-existed", "prov/elsewhere")
			require.NoError(t, err)
			assert.False(t, moved)

			// Delete is true once, false after.
			removed, err := st.Delete(ctx, "prov/Alert/renamed.parquet")
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = st.Delete(ctx, "prov/Alert/renamed.parquet")
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}

func TestStorageConcurrentDistinctPuts(t *testing.T) {
	t.Parallel()

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()

			var wg sync.WaitGroup

			for i := range 20 {
				wg.Add(1)

				go func() {
					defer wg.Done()

					p := fmt.Sprintf("prov/VehiclePosition/individual/file-%02d.parquet", i)
					payload := []byte(fmt.Sprintf("payload-%02d", i))

					_, err := st.Put(ctx, p, payload)
					assert.NoError(t, err)
				}()
			}

			wg.Wait()

			files, err := st.List(ctx, "prov/VehiclePosition/individual/", "")
			require.NoError(t, err)
			assert.Len(t, files, 20)

			for i := range 20 {
				data, err := st.Get(ctx, fmt.Sprintf("prov/VehiclePosition/individual/file-%02d.parquet", i))
				require.NoError(t, err)
				assert.Equal(t, []byte(fmt.Sprintf("payload-%02d", i)), data)
			}
		})
	}
}

func TestFilesystemPutOverwrites(t *testing.T) {
	t.Parallel()

	fs, err := storage.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = fs.Put(ctx, "a/b.parquet", []byte("first"))
	require.NoError(t, err)

	_, err = fs.Put(ctx, "a/b.parquet", []byte("second"))
	require.NoError(t, err)

	data, err := fs.Get(ctx, "a/b.parquet")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// The temp file from the atomic put must not linger or be listed.
	files, err := fs.List(ctx, "a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b.parquet"}, files)
}

func TestRegistryFallback(t *testing.T) {
	t.Parallel()

	global := storage.NewMemory()
	dedicated := storage.NewMemory()

	reg := storage.Registry{
		storage.GlobalKey: global,
		"hsl":             dedicated,
	}

	st, err := reg.For("hsl")
	require.NoError(t, err)
	assert.Same(t, storage.Storage(dedicated), st)

	st, err = reg.For("unknown-provider")
	require.NoError(t, err)
	assert.Same(t, storage.Storage(global), st)

	_, err = storage.Registry{}.For("anything")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		typ     string
		params  map[string]string
		wantErr bool
	}{
		{name: "memory", typ: "memory"},
		{name: "filesystem", typ: "filesystem", params: map[string]string{"directory": t.TempDir()}},
		{name: "filesystem missing dir", typ: "filesystem", wantErr: true},
		{name: "bucket", typ: "bucket", params: map[string]string{"directory": t.TempDir()}},
		{name: "bucket missing dir", typ: "bucket", wantErr: true},
		{name: "unknown", typ: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st, err := storage.New(tt.typ, tt.params)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, st)
		})
	}
}

func TestOpErrorUnwraps(t *testing.T) {
	t.Parallel()

	err := &storage.OpError{Op: "get", Path: "x", Err: storage.ErrNotFound}

	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Contains(t, err.Error(), "get")
	assert.Contains(t, err.Error(), "x")
}
