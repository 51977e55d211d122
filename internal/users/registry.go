// Package users keeps the in-process account registry: registration with a
// fixed cap, password authentication, and lookups used by sharing and status.
// Records live only as long as the process.
package users

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/dmitrijs2005/sharedfs/internal/cryptox"
	"github.com/dmitrijs2005/sharedfs/internal/models"
)

// Registry is read-mostly: lookups take the read lock, registration the
// write lock.
type Registry struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	maxUsers int
	now      func() time.Time
}

func NewRegistry(maxUsers int) *Registry {
	return &Registry{
		users:    make(map[string]*models.User),
		maxUsers: maxUsers,
		now:      time.Now,
	}
}

// Register creates an account. The user cap is checked before the duplicate
// name check. The password slice is not retained.
func (r *Registry) Register(ctx context.Context, name string, password []byte, role models.Role) (*models.User, error) {
	if name == "" || strings.TrimSpace(name) != name {
		return nil, fmt.Errorf("%w: username %q", common.ErrorInvalidName, name)
	}

	// argon2 is slow on purpose; derive before taking the lock
	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	verifier := cryptox.NewVerifier(password, salt)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.users) >= r.maxUsers {
		return nil, fmt.Errorf("%w: %d accounts registered", common.ErrorUserLimitReached, r.maxUsers)
	}
	if _, ok := r.users[name]; ok {
		return nil, fmt.Errorf("%w: %s", common.ErrorDuplicateUsername, name)
	}

	u := &models.User{Name: name, Salt: salt, Verifier: verifier, Role: role, CreatedAt: r.now()}
	r.users[name] = u
	return u, nil
}

// Authenticate returns the user when password matches. Unknown users and
// wrong passwords yield the same error.
func (r *Registry) Authenticate(ctx context.Context, name string, password []byte) (*models.User, error) {
	r.mu.RLock()
	u, ok := r.users[name]
	r.mu.RUnlock()

	if !ok {
		// keep the cost of a miss close to the cost of a wrong password
		_ = cryptox.NewVerifier(password, common.GenerateRandByteArray(cryptox.SaltSize))
		return nil, common.ErrorInvalidCredentials
	}
	if !cryptox.CheckPassword(password, u.Salt, u.Verifier) {
		return nil, common.ErrorInvalidCredentials
	}
	return u, nil
}

// Exists reports whether an account with this name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[name]
	return ok
}

// Count returns the number of registered accounts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
