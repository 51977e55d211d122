// Package sessions tracks, per user, the file names that user currently holds
// open. An open handle is a logical reservation on a name and has no bearing
// on store access.
package sessions

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/sharedfs/internal/common"
)

// handleSet is one user's open names. Several logins of the same account
// share it, so it carries its own lock.
type handleSet struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// Registry maps user name to that user's handle set. It is independent of
// the mutation gate: users never contend with each other here.
type Registry struct {
	maxOpen int
	sets    sync.Map // string -> *handleSet
}

func NewRegistry(maxOpen int) *Registry {
	return &Registry{maxOpen: maxOpen}
}

func (r *Registry) set(user string) *handleSet {
	if s, ok := r.sets.Load(user); ok {
		return s.(*handleSet)
	}
	s, _ := r.sets.LoadOrStore(user, &handleSet{names: make(map[string]struct{})})
	return s.(*handleSet)
}

// Open records name as open for user. The cap is checked before the
// duplicate check, so a user at the limit gets ErrorLimitExceeded even for a
// name already held. Existence of the file is the caller's concern.
func (r *Registry) Open(user, name string) error {
	s := r.set(user)
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.names) >= r.maxOpen {
		return fmt.Errorf("%w: %s already has %d files open", common.ErrorLimitExceeded, user, r.maxOpen)
	}
	if _, ok := s.names[name]; ok {
		return fmt.Errorf("%w: %s", common.ErrorAlreadyOpen, name)
	}
	s.names[name] = struct{}{}
	return nil
}

// Close removes name from user's open set.
func (r *Registry) Close(user, name string) error {
	v, ok := r.sets.Load(user)
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrorNotOpen, name)
	}
	s := v.(*handleSet)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names[name]; !ok {
		return fmt.Errorf("%w: %s", common.ErrorNotOpen, name)
	}
	delete(s.names, name)
	return nil
}

// OpenFiles returns user's open names, sorted.
func (r *Registry) OpenFiles(user string) []string {
	v, ok := r.sets.Load(user)
	if !ok {
		return []string{}
	}
	s := v.(*handleSet)
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// MaxOpen returns the per-user cap.
func (r *Registry) MaxOpen() int { return r.maxOpen }
