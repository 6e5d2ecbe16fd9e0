package suppliers

import (
	"context"

	"github.com/mini-erp/telecrm/internal/masterdata/shared"
	core "github.com/mini-erp/telecrm/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) (core.Page[Supplier], error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return core.Page[Supplier]{}, err
	}
	return core.NewPage(items, filters.ListParams, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier = normalise(supplier)
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, supplier)
}

func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) (Supplier, error) {
	supplier = normalise(supplier)
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	if err := s.repo.Update(ctx, id, supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Supplier, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
