// Package services implements the storage kernel's public operations: the
// file calls a shell makes on behalf of a logged-in user. It composes the
// store, the quota ledger, the mutation gate and the open-handle registry.
package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/dmitrijs2005/sharedfs/internal/gate"
	"github.com/dmitrijs2005/sharedfs/internal/logging"
	"github.com/dmitrijs2005/sharedfs/internal/models"
	"github.com/dmitrijs2005/sharedfs/internal/quota"
	"github.com/dmitrijs2005/sharedfs/internal/sessions"
	"github.com/dmitrijs2005/sharedfs/internal/storage"
	"github.com/zeebo/blake3"
)

// UserDirectory is what the file service needs to know about accounts.
type UserDirectory interface {
	Exists(name string) bool
	Count() int
}

// FileService is the accounting-and-concurrency kernel.
//
// Mutations (create, write, delete) run behind the gate and check the
// ledger before touching the store, so usedBytes always equals the sum of
// stored sizes once no mutation is in flight. Reads bypass the gate.
type FileService struct {
	store    storage.Store
	ledger   *quota.Ledger
	gate     *gate.Coordinator
	sessions *sessions.Registry
	users    UserDirectory
	logger   logging.Logger
}

// NewFileService seeds the ledger from whatever the store already holds.
// It fails with common.ErrorQuotaExceeded if that exceeds capacity.
func NewFileService(ctx context.Context, store storage.Store, capacity int64, maxOpen int, users UserDirectory, logger logging.Logger) (*FileService, error) {
	files, used, err := storage.Usage(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("scan store: %w", err)
	}

	ledger := quota.NewLedger(capacity)
	if err := ledger.Reserve(used); err != nil {
		return nil, fmt.Errorf("existing content: %w", err)
	}

	logger.Info(ctx, "file service ready", "capacity_bytes", capacity, "used_bytes", used, "files", files)

	return &FileService{
		store:    store,
		ledger:   ledger,
		gate:     gate.New(),
		sessions: sessions.NewRegistry(maxOpen),
		users:    users,
		logger:   logger,
	}, nil
}

// reject logs a refused operation and passes err through.
func (s *FileService) reject(ctx context.Context, op, name string, err error) error {
	kind := common.Kind(err)
	switch {
	case errors.Is(err, common.ErrorInterrupted):
		s.logger.Error(ctx, op+" interrupted", "name", name, "error", err)
	case kind == "Internal":
		s.logger.Error(ctx, op+" failed", "name", name, "error", err)
	default:
		s.logger.Warn(ctx, op+" rejected", "name", name, "kind", kind, "error", err)
	}
	return err
}

// CreateFile stores a new file and returns its size.
func (s *FileService) CreateFile(ctx context.Context, name string, content []byte) (int64, error) {
	size := int64(len(content))

	err := s.gate.WithExclusiveAccess(ctx, func(ctx context.Context) error {
		exists, err := s.store.Exists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, name)
		}

		if err := s.ledger.Reserve(size); err != nil {
			return err
		}
		if _, err := s.store.Create(ctx, name, content); err != nil {
			s.ledger.Release(size)
			return err
		}
		return nil
	})
	if err != nil {
		return 0, s.reject(ctx, "create", name, err)
	}

	s.logger.Info(ctx, "file created", "name", name, "size", size, "available_bytes", s.ledger.Available())
	return size, nil
}

// ReadFile returns the content of name. It does not take the gate.
func (s *FileService) ReadFile(ctx context.Context, name string) (*models.FileContent, error) {
	data, err := s.store.Read(ctx, name)
	if err != nil {
		return nil, s.reject(ctx, "read", name, err)
	}

	sum := blake3.Sum256(data)
	return &models.FileContent{
		Name:   name,
		Data:   data,
		Size:   int64(len(data)),
		Digest: hex.EncodeToString(sum[:]),
	}, nil
}

// WriteFile replaces the content of an existing file and returns the new
// size. The ledger is charged newSize-oldSize; a shrink always fits.
func (s *FileService) WriteFile(ctx context.Context, name string, content []byte) (int64, error) {
	newSize := int64(len(content))

	err := s.gate.WithExclusiveAccess(ctx, func(ctx context.Context) error {
		oldSize, err := s.store.Stat(ctx, name)
		if err != nil {
			return err
		}

		delta := newSize - oldSize
		if err := s.ledger.Reserve(delta); err != nil {
			return err
		}
		if _, _, err := s.store.Overwrite(ctx, name, content); err != nil {
			s.undo(delta)
			return err
		}
		return nil
	})
	if err != nil {
		return 0, s.reject(ctx, "write", name, err)
	}

	s.logger.Info(ctx, "file written", "name", name, "size", newSize, "available_bytes", s.ledger.Available())
	return newSize, nil
}

// undo reverses a successful Reserve(delta).
func (s *FileService) undo(delta int64) {
	if delta >= 0 {
		s.ledger.Release(delta)
		return
	}
	// restores a state that already fit, cannot fail
	_ = s.ledger.Reserve(-delta)
}

// DeleteFile removes name and returns the bytes freed.
func (s *FileService) DeleteFile(ctx context.Context, name string) (int64, error) {
	var freed int64

	err := s.gate.WithExclusiveAccess(ctx, func(ctx context.Context) error {
		var err error
		freed, err = s.store.Delete(ctx, name)
		if err != nil {
			return err
		}
		s.ledger.Release(freed)
		return nil
	})
	if err != nil {
		return 0, s.reject(ctx, "delete", name, err)
	}

	s.logger.Info(ctx, "file deleted", "name", name, "freed", freed, "used_bytes", s.ledger.Used())
	return freed, nil
}

// OpenFile reserves an open handle on name for user. The file must exist.
func (s *FileService) OpenFile(ctx context.Context, user, name string) error {
	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return s.reject(ctx, "open", name, err)
	}
	if !exists {
		return s.reject(ctx, "open", name, fmt.Errorf("%w: %s", common.ErrorNotFound, name))
	}

	if err := s.sessions.Open(user, name); err != nil {
		return s.reject(ctx, "open", name, err)
	}

	s.logger.Debug(ctx, "file opened", "user", user, "name", name)
	return nil
}

// CloseFile releases user's open handle on name.
func (s *FileService) CloseFile(ctx context.Context, user, name string) error {
	if err := s.sessions.Close(user, name); err != nil {
		return s.reject(ctx, "close", name, err)
	}

	s.logger.Debug(ctx, "file closed", "user", user, "name", name)
	return nil
}

// OpenFiles lists the names user holds open.
func (s *FileService) OpenFiles(user string) []string {
	return s.sessions.OpenFiles(user)
}

// MaxOpenFiles returns the per-user open-handle cap.
func (s *FileService) MaxOpenFiles() int {
	return s.sessions.MaxOpen()
}

// ShareFile announces name to target. Only existence is checked; no rights
// change hands.
func (s *FileService) ShareFile(ctx context.Context, owner, name, target string) error {
	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return s.reject(ctx, "share", name, err)
	}
	if !exists {
		return s.reject(ctx, "share", name, fmt.Errorf("%w: %s", common.ErrorNotFound, name))
	}
	if !s.users.Exists(target) {
		return s.reject(ctx, "share", name, fmt.Errorf("%w: %s", common.ErrorTargetUserNotFound, target))
	}

	s.logger.Info(ctx, "file shared", "owner", owner, "name", name, "target", target)
	return nil
}

// ListFiles returns the names in the store at call time.
func (s *FileService) ListFiles(ctx context.Context) (iter.Seq[string], error) {
	names, err := s.store.List(ctx)
	if err != nil {
		return nil, s.reject(ctx, "list", "", err)
	}
	return names, nil
}

// Status reports capacity, usage and counts. Like reads, it does not wait
// for the gate; used bytes is read atomically.
func (s *FileService) Status(ctx context.Context) (*models.Status, error) {
	files, err := storage.Count(ctx, s.store)
	if err != nil {
		return nil, s.reject(ctx, "status", "", err)
	}

	used := s.ledger.Used()
	return &models.Status{
		CapacityBytes:  s.ledger.Capacity(),
		UsedBytes:      used,
		AvailableBytes: s.ledger.Capacity() - used,
		UserCount:      s.users.Count(),
		FileCount:      files,
	}, nil
}
