package storage

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create then read", func(t *testing.T) {
		s := newStore(t)

		n, err := s.Create(ctx, "a.txt", []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		ok, err := s.Exists(ctx, "a.txt")
		require.NoError(t, err)
		assert.True(t, ok)

		size, err := s.Stat(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(5), size)

		data, err := s.Read(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("duplicate create keeps first content", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Create(ctx, "a.txt", []byte("x"))
		require.NoError(t, err)

		_, err = s.Create(ctx, "a.txt", []byte("y"))
		require.ErrorIs(t, err, common.ErrorAlreadyExists)

		data, err := s.Read(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), data)
	})

	t.Run("missing names", func(t *testing.T) {
		s := newStore(t)

		ok, err := s.Exists(ctx, "missing.txt")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Stat(ctx, "missing.txt")
		require.ErrorIs(t, err, common.ErrorNotFound)

		_, err = s.Read(ctx, "missing.txt")
		require.ErrorIs(t, err, common.ErrorNotFound)

		_, _, err = s.Overwrite(ctx, "missing.txt", []byte("y"))
		require.ErrorIs(t, err, common.ErrorNotFound)

		ok, err = s.Exists(ctx, "missing.txt")
		require.NoError(t, err)
		assert.False(t, ok, "failed overwrite must not create the file")

		_, err = s.Delete(ctx, "missing.txt")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("overwrite reports old and new size", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Create(ctx, "a.txt", []byte("0123456789"))
		require.NoError(t, err)

		oldSize, newSize, err := s.Overwrite(ctx, "a.txt", []byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, int64(10), oldSize)
		assert.Equal(t, int64(3), newSize)

		data, err := s.Read(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), data)
	})

	t.Run("delete then recreate", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Create(ctx, "a.txt", []byte("long old content"))
		require.NoError(t, err)

		freed, err := s.Delete(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(16), freed)

		ok, err := s.Exists(ctx, "a.txt")
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := s.Create(ctx, "a.txt", []byte("new"))
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("empty file", func(t *testing.T) {
		s := newStore(t)

		n, err := s.Create(ctx, "empty", nil)
		require.NoError(t, err)
		assert.Zero(t, n)

		data, err := s.Read(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("list is a snapshot of names", func(t *testing.T) {
		s := newStore(t)

		for _, name := range []string{"b.txt", "a.txt", "c.txt"} {
			_, err := s.Create(ctx, name, []byte(name))
			require.NoError(t, err)
		}

		names, err := s.List(ctx)
		require.NoError(t, err)

		_, err = s.Create(ctx, "d.txt", []byte("late"))
		require.NoError(t, err)

		assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, slices.Sorted(names))

		files, bytes, err := Usage(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 4, files)
		assert.Equal(t, int64(5+5+5+4), bytes)

		n, err := Count(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("invalid names rejected", func(t *testing.T) {
		s := newStore(t)

		for _, name := range []string{"", ".", "..", "../escape", "dir/file", `dir\file`, ".tmp-123"} {
			_, err := s.Create(ctx, name, []byte("x"))
			require.ErrorIs(t, err, common.ErrorInvalidName, "create %q", name)

			_, err = s.Exists(ctx, name)
			require.ErrorIs(t, err, common.ErrorInvalidName, "exists %q", name)
		}

		n, err := Count(ctx, s)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("reads never see partial writes", func(t *testing.T) {
		s := newStore(t)

		small := []byte("aaaa")
		large := make([]byte, 64<<10)
		for i := range large {
			large[i] = 'b'
		}
		_, err := s.Create(ctx, "f", small)
		require.NoError(t, err)

		var wg sync.WaitGroup
		done := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				content := small
				if i%2 == 0 {
					content = large
				}
				_, _, err := s.Overwrite(ctx, "f", content)
				assert.NoError(t, err)
			}
			close(done)
		}()

		for {
			select {
			case <-done:
				wg.Wait()
				return
			default:
			}
			data, err := s.Read(ctx, "f")
			require.NoError(t, err)
			if !slices.Equal(data, small) && !slices.Equal(data, large) {
				t.Fatalf("torn read: got %d bytes", len(data))
			}
		}
	})
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"a.txt", "report 2024.pdf", ".hidden", "x..y", "tmp-1"} {
		assert.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "a\x00b", ".tmp-x"} {
		assert.ErrorIs(t, ValidateName(name), common.ErrorInvalidName, name)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_CopiesBuffers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	buf := []byte("abc")
	_, err := s.Create(ctx, "a", buf)
	require.NoError(t, err)
	buf[0] = 'X'

	data, err := s.Read(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	data[1] = 'Y'
	again, err := s.Read(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
