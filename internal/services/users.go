package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/dmitrijs2005/sharedfs/internal/logging"
	"github.com/dmitrijs2005/sharedfs/internal/models"
)

// Accounts is the account store behind UserService.
type Accounts interface {
	UserDirectory
	Register(ctx context.Context, name string, password []byte, role models.Role) (*models.User, error)
	Authenticate(ctx context.Context, name string, password []byte) (*models.User, error)
}

// UserService handles registration and login for the shell.
type UserService struct {
	accounts Accounts
	logger   logging.Logger
}

func NewUserService(accounts Accounts, logger logging.Logger) *UserService {
	return &UserService{accounts: accounts, logger: logger}
}

// Bootstrap registers the administrator account.
func (s *UserService) Bootstrap(ctx context.Context, name string, password []byte) error {
	if _, err := s.accounts.Register(ctx, name, password, models.RoleAdmin); err != nil {
		return fmt.Errorf("bootstrap admin %s: %w", name, err)
	}
	s.logger.Info(ctx, "admin account ready", "user", name)
	return nil
}

// Register creates a standard account.
func (s *UserService) Register(ctx context.Context, name string, password []byte) (*models.User, error) {
	u, err := s.accounts.Register(ctx, name, password, models.RoleStandard)
	if err != nil {
		s.logger.Warn(ctx, "registration rejected", "user", name, "kind", common.Kind(err))
		return nil, err
	}
	s.logger.Info(ctx, "user registered", "user", name, "users", s.accounts.Count())
	return u, nil
}

func (s *UserService) Login(ctx context.Context, name string, password []byte) (*models.User, error) {
	u, err := s.accounts.Authenticate(ctx, name, password)
	if err != nil {
		s.logger.Warn(ctx, "login failed", "user", name)
		return nil, err
	}
	s.logger.Info(ctx, "user logged in", "user", name, "role", string(u.Role))
	return u, nil
}

// Directory exposes the account lookups FileService needs.
func (s *UserService) Directory() UserDirectory {
	return s.accounts
}
