package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, params shared.ListParams, f ListFilters) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, in CreateInput, hash string) (int64, error)
	Update(ctx context.Context, id int64, in UpdateInput, hash string) error
	SetStatus(ctx context.Context, id int64, status string) error
}

// Service handles user business logic.
type Service struct {
	repo  RepositoryPort
	audit shared.AuditRecorder
	cost  int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, cost: bcrypt.DefaultCost}
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, params shared.ListParams, f ListFilters) (shared.Page[User], error) {
	items, total, err := s.repo.List(ctx, params, f)
	if err != nil {
		return shared.Page[User]{}, err
	}
	return shared.NewPage(items, params, total), nil
}

// GetUser loads a user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// CreateUser hashes the password and inserts the user.
func (s *Service) CreateUser(ctx context.Context, actorID int64, in CreateInput) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if strings.ContainsAny(in.Username, " \t") {
		return User{}, httpx.NewFieldErrors("username", "must not contain spaces")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, in, string(hash))
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.create", id, map[string]any{"username": in.Username, "role_id": in.RoleID})
	return s.repo.Get(ctx, id)
}

// UpdateUser edits a user, rehashing the password only when one is given.
func (s *Service) UpdateUser(ctx context.Context, actorID, id int64, in UpdateInput) (User, error) {
	if in.SupervisorID != nil && *in.SupervisorID == id {
		return User{}, httpx.NewFieldErrors("supervisorId", "cannot supervise themselves")
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	var hash string
	if in.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
	}
	if err := s.repo.Update(ctx, id, in, hash); err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.update", id, map[string]any{"role_id": in.RoleID, "password_changed": hash != ""})
	return s.repo.Get(ctx, id)
}

// SetStatus activates or deactivates a user. Users cannot deactivate themselves.
func (s *Service) SetStatus(ctx context.Context, actorID, id int64, status string) (User, error) {
	if actorID == id && status == StatusInactive {
		return User{}, fmt.Errorf("%w: cannot deactivate your own account", httpx.ErrForbidden)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.status", id, map[string]any{"status": status})
	return s.repo.Get(ctx, id)
}

// DeleteUser is a soft delete: the account becomes inactive and keeps its history.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int64) error {
	_, err := s.SetStatus(ctx, actorID, id, StatusInactive)
	return err
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
