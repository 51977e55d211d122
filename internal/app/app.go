// Package app wires configuration, the storage backend, the kernel services
// and the interactive shell, and runs them until the user exits or the
// process is signalled.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/sharedfs/internal/cli"
	"github.com/dmitrijs2005/sharedfs/internal/config"
	"github.com/dmitrijs2005/sharedfs/internal/logging"
	"github.com/dmitrijs2005/sharedfs/internal/services"
	"github.com/dmitrijs2005/sharedfs/internal/storage"
	"github.com/dmitrijs2005/sharedfs/internal/users"
)

// openS3Store and openSQLStore are test seams for the remote backends.
var (
	openS3Store  = storage.OpenS3Store
	openSQLStore = storage.OpenSQLStore
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	store       storage.Store
	userService *services.UserService
	fileService *services.FileService
	in          io.Reader
	out         io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stderr, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, err := newStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	if d, ok := store.(*storage.DiskStore); ok {
		logger.Info(ctx, "disk storage ready", "root", d.Root())
	}

	us := services.NewUserService(users.NewRegistry(c.MaxUsers), logger)
	if err := us.Bootstrap(ctx, c.AdminUser, []byte(c.AdminPassword)); err != nil {
		closeStoreIfNeeded(store)
		return nil, err
	}

	fs, err := services.NewFileService(ctx, store, c.CapacityBytes, c.MaxOpenFiles, us.Directory(), logger)
	if err != nil {
		closeStoreIfNeeded(store)
		return nil, fmt.Errorf("file service init error: %w", err)
	}

	return &App{
		config:      c,
		logger:      logger,
		store:       store,
		userService: us,
		fileService: fs,
		in:          os.Stdin,
		out:         os.Stdout,
	}, nil
}

func newStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	switch c.StorageBackend {
	case config.BackendDisk:
		return storage.NewDiskStore(c.StorageRoot)
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	case config.BackendS3:
		return openS3Store(ctx, storage.S3Options{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Prefix:       c.StorageRoot,
		})
	case config.BackendPostgres:
		return openSQLStore(ctx, storage.Postgres, c.DatabaseDSN)
	case config.BackendSQLite:
		return openSQLStore(ctx, storage.SQLite, c.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

// closeStoreIfNeeded closes backends that hold a connection.
func closeStoreIfNeeded(s storage.Store) (bool, error) {
	c, ok := s.(io.Closer)
	if !ok {
		return false, nil
	}
	return true, c.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the shell until it returns or ctx is cancelled. A shell blocked
// on input is abandoned on cancellation.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.StorageBackend, "capacity_bytes", app.config.CapacityBytes)

	app.initSignalHandler(cancelFunc)

	shell := cli.NewShell(app.fileService, app.userService, app.logger, app.in, app.out)

	done := make(chan struct{})
	go func() {
		defer close(done)
		shell.Run(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		app.logger.Info(ctx, "interrupted, shutting down")
	}

	if closed, err := closeStoreIfNeeded(app.store); closed && err != nil {
		app.logger.Error(ctx, "closing storage", "error", err)
	}
	app.logger.Info(ctx, "stopped")
}
