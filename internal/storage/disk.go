package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/dmitrijs2005/sharedfs/internal/filex"
)

// DiskStore keeps each file as a regular file directly under root.
//
// Writes go to a temporary file in root and are renamed over the target,
// so a concurrent reader sees either the old or the new content.
type DiskStore struct {
	root string
}

// NewDiskStore creates root if needed and removes temporary files left by
// an interrupted write.
func NewDiskStore(root string) (*DiskStore, error) {
	dir, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read storage root: %w", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tempPrefix) {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}

	return &DiskStore{root: dir}, nil
}

// Root returns the absolute storage directory.
func (d *DiskStore) Root() string { return d.root }

func (d *DiskStore) path(name string) string {
	return filepath.Join(d.root, name)
}

// stat returns the size of a regular file; anything else, symlinks
// included, counts as missing. This matches what List enumerates.
func (d *DiskStore) stat(name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	fi, err := os.Lstat(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
		}
		return 0, fmt.Errorf("stat %s: %w", name, err)
	}
	if !fi.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
	}
	return fi.Size(), nil
}

func (d *DiskStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := d.stat(name)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (d *DiskStore) Stat(ctx context.Context, name string) (int64, error) {
	return d.stat(name)
}

func (d *DiskStore) Read(ctx context.Context, name string) ([]byte, error) {
	if _, err := d.stat(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (d *DiskStore) Create(ctx context.Context, name string, data []byte) (int64, error) {
	_, err := d.stat(name)
	switch {
	case err == nil:
		return 0, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, name)
	case !errors.Is(err, common.ErrorNotFound):
		return 0, err
	}

	if err := d.writeAtomic(name, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (d *DiskStore) Overwrite(ctx context.Context, name string, data []byte) (int64, int64, error) {
	oldSize, err := d.stat(name)
	if err != nil {
		return 0, 0, err
	}
	if err := d.writeAtomic(name, data); err != nil {
		return 0, 0, err
	}
	return oldSize, int64(len(data)), nil
}

func (d *DiskStore) Delete(ctx context.Context, name string) (int64, error) {
	size, err := d.stat(name)
	if err != nil {
		return 0, err
	}
	if err := os.Remove(d.path(name)); err != nil {
		return 0, fmt.Errorf("remove %s: %w", name, err)
	}
	return size, nil
}

func (d *DiskStore) List(ctx context.Context) (iter.Seq[string], error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read storage root: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	return slices.Values(names), nil
}

// writeAtomic writes data to a temp file in root, syncs it and renames it
// over name. The temp file is removed on any failure.
func (d *DiskStore) writeAtomic(name string, data []byte) (err error) {
	tmp, err := os.CreateTemp(d.root, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(0o660); err != nil {
		return fmt.Errorf("chmod temp for %s: %w", name, err)
	}
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err = os.Rename(tmpName, d.path(name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
