package products

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters, category string) (core.Page[Product], error) {
	items, total, err := s.repo.List(ctx, filters, category)
	if err != nil {
		return core.Page[Product]{}, err
	}
	return core.NewPage(items, filters.ListParams, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Categories(ctx context.Context, companyID *int64) ([]string, error) {
	return s.repo.Categories(ctx, companyID)
}

func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	p := normalise(form.toModel())
	if err := s.validate(p); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id int64, form ProductForm) (Product, error) {
	p := normalise(form.toModel())
	if err := s.validate(p); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, p); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Product, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
