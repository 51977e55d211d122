package storage

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiskStore(t *testing.T) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(filepath.Join(t.TempDir(), "file_storage"))
	require.NoError(t, err)
	return s
}

func TestDiskStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newDiskStore(t) })
}

func TestDiskStore_FilesLiveDirectlyUnderRoot(t *testing.T) {
	ctx := context.Background()
	s := newDiskStore(t)

	_, err := s.Create(ctx, "a.txt", []byte("x"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Root(), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	_, _, err = s.Overwrite(ctx, "a.txt", []byte("yy"))
	require.NoError(t, err)

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files may be left behind")
	assert.Equal(t, "a.txt", entries[0].Name())
}

func TestDiskStore_SweepsLeftoverTempFilesAndSkipsDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "subdir"), 0o770))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".tmp-123"), []byte("partial"), 0o660))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.txt"), []byte("kept"), 0o660))

	s, err := NewDiskStore(root)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, ".tmp-123"))
	assert.True(t, os.IsNotExist(err), "leftover temp file must be removed")

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.txt"}, slices.Sorted(names))

	_, err = s.Stat(context.Background(), "subdir")
	require.ErrorIs(t, err, common.ErrorNotFound, "directories are not files")
}

func TestDiskStore_RootIsAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o660))

	_, err := NewDiskStore(path)
	require.Error(t, err)
}

func TestDiskStore_FailedWriteLeavesNoTrace(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	ctx := context.Background()
	s := newDiskStore(t)
	_, err := s.Create(ctx, "a.txt", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, os.Chmod(s.Root(), 0o500))
	t.Cleanup(func() { _ = os.Chmod(s.Root(), 0o770) })

	_, err = s.Create(ctx, "b.txt", []byte("y"))
	require.Error(t, err)
	assert.Equal(t, "Internal", common.Kind(err))

	require.NoError(t, os.Chmod(s.Root(), 0o770))
	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), tempPrefix))
	}
	assert.Len(t, entries, 1)
}

func TestDiskStore_SymlinksAreNotFiles(t *testing.T) {
	ctx := context.Background()
	outside := filepath.Join(t.TempDir(), "big")
	require.NoError(t, os.WriteFile(outside, make([]byte, 100), 0o660))

	s := newDiskStore(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(s.Root(), "link")))

	ok, err := s.Exists(ctx, "link")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Read(ctx, "link")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, _, err = s.Overwrite(ctx, "link", []byte("x"))
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Delete(ctx, "link")
	require.ErrorIs(t, err, common.ErrorNotFound)

	files, bytes, err := Usage(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 0, files)
	assert.Equal(t, int64(0), bytes)

	data, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Len(t, data, 100, "link target must be untouched")
}
