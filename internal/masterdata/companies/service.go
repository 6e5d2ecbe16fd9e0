package companies

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) (core.Page[Company], error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return core.Page[Company]{}, err
	}
	return core.NewPage(items, filters.ListParams, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form CompanyForm) (Company, error) {
	company := normalise(form.toModel())
	if err := s.validate(company); err != nil {
		return Company{}, err
	}
	return s.repo.Create(ctx, company)
}

func (s *Service) Update(ctx context.Context, id int64, form CompanyForm) (Company, error) {
	company := normalise(form.toModel())
	if err := s.validate(company); err != nil {
		return Company{}, err
	}
	if err := s.repo.Update(ctx, id, company); err != nil {
		return Company{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
