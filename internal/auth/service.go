package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	perms rbac.PermissionSource
}

// NewService constructs a new Service.
func NewService(repo Repository, perms rbac.PermissionSource) *Service {
	return &Service{repo: repo, perms: perms}
}

// Authenticate validates username/password credentials. Unknown users,
// inactive users and bad passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RecordLogin stamps the successful login.
func (s *Service) RecordLogin(ctx context.Context, id int64) error {
	return s.repo.TouchLogin(ctx, id)
}

// Current reloads the user behind a principal. A user deactivated after
// login is treated as logged out.
func (s *Service) Current(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNoPrincipal
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, shared.ErrNoPrincipal
	}
	return user, nil
}

// Permissions returns the effective permission names for a user.
func (s *Service) Permissions(ctx context.Context, id int64) ([]string, error) {
	perms, err := s.perms.EffectivePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *Service) ChangePassword(ctx context.Context, id int64, req ChangePasswordRequest) error {
	user, err := s.Current(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return httpx.NewFieldErrors("currentPassword", "is incorrect")
	}
	if req.NewPassword == req.CurrentPassword {
		return httpx.NewFieldErrors("newPassword", "must differ from the current password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}
