package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/dmitrijs2005/sharedfs/internal/config"
	"github.com/dmitrijs2005/sharedfs/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StorageBackend = backend
	cfg.StorageRoot = filepath.Join(t.TempDir(), "file_storage")
	cfg.LogLevel = "error"
	return cfg
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := newStore(ctx, testConfig(t, config.BackendMemory))
		require.NoError(t, err)
		assert.IsType(t, &storage.MemoryStore{}, s)
	})

	t.Run("disk", func(t *testing.T) {
		cfg := testConfig(t, config.BackendDisk)
		s, err := newStore(ctx, cfg)
		require.NoError(t, err)
		require.IsType(t, &storage.DiskStore{}, s)
		assert.Equal(t, cfg.StorageRoot, s.(*storage.DiskStore).Root())
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := testConfig(t, config.BackendSQLite)
		cfg.DatabaseDSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
		s, err := newStore(ctx, cfg)
		require.NoError(t, err)
		require.IsType(t, &storage.SQLStore{}, s)

		closed, err := closeStoreIfNeeded(s)
		assert.True(t, closed)
		assert.NoError(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := newStore(ctx, testConfig(t, "tape"))
		require.Error(t, err)
	})
}

func TestNewStore_RemoteBackendsUseConfig(t *testing.T) {
	ctx := context.Background()
	origS3, origSQL := openS3Store, openSQLStore
	t.Cleanup(func() {
		openS3Store = origS3
		openSQLStore = origSQL
	})

	var gotS3 storage.S3Options
	openS3Store = func(_ context.Context, o storage.S3Options) (*storage.S3Store, error) {
		gotS3 = o
		return nil, errors.New("no endpoint in tests")
	}

	var (
		gotDialect storage.Dialect
		gotDSN     string
	)
	openSQLStore = func(_ context.Context, d storage.Dialect, dsn string) (*storage.SQLStore, error) {
		gotDialect, gotDSN = d, dsn
		return nil, errors.New("no database in tests")
	}

	cfg := testConfig(t, config.BackendS3)
	cfg.StorageRoot = "file_storage"
	_, err := newStore(ctx, cfg)
	require.Error(t, err)
	assert.Equal(t, storage.S3Options{
		AccessKey:    "admin",
		SecretKey:    "secretpassword",
		Bucket:       "sharedfs",
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000/",
		Prefix:       "file_storage",
	}, gotS3)

	cfg = testConfig(t, config.BackendPostgres)
	cfg.DatabaseDSN = "postgres://u:p@localhost:5432/sfs"
	_, err = newStore(ctx, cfg)
	require.Error(t, err)
	assert.Equal(t, storage.Postgres, gotDialect)
	assert.Equal(t, "postgres://u:p@localhost:5432/sfs", gotDSN)

	// failures surface from NewApp as well
	_, err = NewApp(ctx, cfg)
	require.ErrorContains(t, err, "storage init error")
}

func TestNewApp(t *testing.T) {
	ctx := context.Background()

	app, err := NewApp(ctx, testConfig(t, config.BackendMemory))
	require.NoError(t, err)

	st, err := app.fileService.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10240), st.CapacityBytes)
	assert.Equal(t, 1, st.UserCount)
	assert.Equal(t, 0, st.FileCount)

	u, err := app.userService.Login(ctx, "admin", []byte("admin123"))
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.CapacityBytes = 0

	_, err := NewApp(context.Background(), cfg)
	require.ErrorContains(t, err, "capacity must be positive")
}

func TestNewApp_DiskContentSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendDisk)

	first, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	_, err = first.fileService.CreateFile(ctx, "a.txt", []byte("hello"))
	require.NoError(t, err)

	second, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	st, err := second.fileService.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.UsedBytes)
	assert.Equal(t, 1, st.FileCount)
}

func TestNewApp_ExistingContentOverCapacity(t *testing.T) {
	cfg := testConfig(t, config.BackendDisk)
	cfg.CapacityBytes = 10
	require.NoError(t, os.MkdirAll(cfg.StorageRoot, 0o770))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.StorageRoot, "big.bin"), make([]byte, 20), 0o600))

	_, err := NewApp(context.Background(), cfg)
	require.ErrorIs(t, err, common.ErrorQuotaExceeded)
}

func TestApp_Run(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t, config.BackendMemory))
	require.NoError(t, err)

	var out bytes.Buffer
	app.in = strings.NewReader("help\nstatus\nexit\n")
	app.out = &out

	app.Run(context.Background())

	assert.Contains(t, out.String(), "Available commands: register, login, exit")
	assert.Contains(t, out.String(), "Please login first")
	assert.Contains(t, out.String(), "Bye!")
}

func TestApp_Run_CancelledWhileWaitingForInput(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t, config.BackendMemory))
	require.NoError(t, err)

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	app.in = pr
	app.out = io.Discard

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
