package tags

import (
	"context"
	"fmt"
	"strings"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, f Filters) ([]Tag, error) {
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64) (Tag, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, t Tag) (Tag, error) {
	t = normalise(t)
	if err := s.validate(t); err != nil {
		return Tag{}, err
	}
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return Tag{}, fmt.Errorf("create tag %q: %w", t.Name, err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, t Tag) (Tag, error) {
	t = normalise(t)
	if err := s.validate(t); err != nil {
		return Tag{}, err
	}
	if err := s.repo.Update(ctx, id, t); err != nil {
		return Tag{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(t Tag) error {
	if t.CompanyID <= 0 {
		return httpx.NewFieldErrors("companyId", "is required")
	}
	return httpx.Validate(t)
}

func normalise(t Tag) Tag {
	t.Name = strings.TrimSpace(t.Name)
	t.Color = strings.TrimSpace(t.Color)
	t.Type = strings.ToUpper(strings.TrimSpace(t.Type))
	if t.Type == "" {
		t.Type = TypeUser
	}
	return t
}
