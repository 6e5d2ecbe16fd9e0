package warehouses

import (
	"context"
	"strings"

	"github.com/mini-erp/telecrm/internal/masterdata/shared"
	core "github.com/mini-erp/telecrm/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters, servesProvince string) (core.Page[Warehouse], error) {
	items, total, err := s.repo.List(ctx, filters, strings.TrimSpace(servesProvince))
	if err != nil {
		return core.Page[Warehouse]{}, err
	}
	return core.NewPage(items, filters.ListParams, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Warehouse, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, w Warehouse) (Warehouse, error) {
	w = normalise(w)
	if err := s.validate(w); err != nil {
		return Warehouse{}, err
	}
	id, err := s.repo.Create(ctx, w)
	if err != nil {
		return Warehouse{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, w Warehouse) (Warehouse, error) {
	w = normalise(w)
	if err := s.validate(w); err != nil {
		return Warehouse{}, err
	}
	if err := s.repo.Update(ctx, id, w); err != nil {
		return Warehouse{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Warehouse, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return Warehouse{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
