// Package storage holds file contents keyed by name.
//
// A Store is a flat namespace: names are unique, carry no directories, and
// the backend's own enumeration is the directory of record (there is no
// index). Mutating methods (Create, Overwrite, Delete) are not safe to call
// concurrently with each other; callers serialize them behind the mutation
// gate. Reads may run at any time and never observe a partially written
// file: every backend makes a write visible in one step.
package storage

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/dmitrijs2005/sharedfs/internal/common"
)

// Store is the byte-content repository behind the file service.
type Store interface {
	// Exists reports whether name is present.
	Exists(ctx context.Context, name string) (bool, error)

	// Stat returns the size of name, or common.ErrorNotFound.
	Stat(ctx context.Context, name string) (int64, error)

	// Read returns the full content of name, or common.ErrorNotFound.
	Read(ctx context.Context, name string) ([]byte, error)

	// Create stores a new file and returns its size. An existing name fails
	// with common.ErrorAlreadyExists and nothing is written.
	Create(ctx context.Context, name string, data []byte) (int64, error)

	// Overwrite replaces the content of an existing file and returns the old
	// and new sizes. A missing name fails with common.ErrorNotFound and
	// nothing is written.
	Overwrite(ctx context.Context, name string, data []byte) (oldSize, newSize int64, err error)

	// Delete removes name and returns the number of bytes freed, or
	// common.ErrorNotFound.
	Delete(ctx context.Context, name string) (int64, error)

	// List returns the names present at call time. The sequence is finite;
	// its order is whatever the backend enumerates in.
	List(ctx context.Context) (iter.Seq[string], error)
}

// tempPrefix marks in-flight files of the disk backend; such names are
// reserved in every backend so stores stay interchangeable.
const tempPrefix = ".tmp-"

// ValidateName rejects names that are empty, would escape a flat namespace,
// or collide with reserved temporary names.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
	case strings.ContainsAny(name, "/\\\x00"):
	case strings.HasPrefix(name, tempPrefix):
	default:
		return nil
	}
	return fmt.Errorf("%w: %q", common.ErrorInvalidName, name)
}

// Usage sums the sizes of every file in s. It is used once at startup to
// seed the quota ledger from a backend that already holds data.
func Usage(ctx context.Context, s Store) (files int, bytes int64, err error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	for name := range names {
		size, err := s.Stat(ctx, name)
		if err != nil {
			return 0, 0, fmt.Errorf("stat %s: %w", name, err)
		}
		files++
		bytes += size
	}
	return files, bytes, nil
}

// Count returns the number of files in s.
func Count(ctx context.Context, s Store) (int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for range names {
		n++
	}
	return n, nil
}
