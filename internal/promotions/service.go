package promotions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Service implements promotion rules.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func withPricing(p Promotion) Promotion {
	p.Pricing = PriceSummary(p.Items)
	return p
}

// List returns a page of promotions with pricing.
func (s *Service) List(ctx context.Context, params shared.ListParams, f Filters) (shared.Page[Promotion], error) {
	items, total, err := s.repo.List(ctx, params, f)
	if err != nil {
		return shared.Page[Promotion]{}, err
	}
	for i := range items {
		items[i] = withPricing(items[i])
	}
	return shared.NewPage(items, params, total), nil
}

// Get returns one promotion with pricing.
func (s *Service) Get(ctx context.Context, id int64) (Promotion, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Promotion{}, err
	}
	return withPricing(p), nil
}

// Active returns the promotions running on day.
func (s *Service) Active(ctx context.Context, companyID *int64, day time.Time) ([]Promotion, error) {
	items, err := s.repo.ActiveOn(ctx, companyID, day)
	if err != nil {
		return nil, err
	}
	out := make([]Promotion, 0, len(items))
	for _, p := range items {
		if ActiveOn(p, day) {
			out = append(out, withPricing(p))
		}
	}
	return out, nil
}

// Create stores a new promotion.
func (s *Service) Create(ctx context.Context, in Input) (Promotion, error) {
	p, err := s.build(in)
	if err != nil {
		return Promotion{}, err
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return Promotion{}, productError(err)
	}
	return s.Get(ctx, id)
}

// Update replaces a promotion and its items.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Promotion, error) {
	p, err := s.build(in)
	if err != nil {
		return Promotion{}, err
	}
	if err := s.repo.Update(ctx, id, p); err != nil {
		return Promotion{}, productError(err)
	}
	return s.Get(ctx, id)
}

// SetActive toggles a promotion.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Promotion, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return Promotion{}, err
	}
	return s.Get(ctx, id)
}

// Delete removes a promotion and its items.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) build(in Input) (Promotion, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	if err := httpx.Validate(in); err != nil {
		return Promotion{}, err
	}
	fields := map[string]string{}
	if in.CompanyID <= 0 {
		fields["companyId"] = "is required"
	}
	if in.StartDate != nil && in.EndDate != nil && truncateDay(*in.EndDate).Before(truncateDay(*in.StartDate)) {
		fields["endDate"] = "must not be before startDate"
	}
	p := Promotion{
		CompanyID:   in.CompanyID,
		SKU:         in.SKU,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Items:       make([]Item, len(in.Items)),
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	for i, it := range in.Items {
		if it.PriceOverride != nil && it.PriceOverride.IsNegative() {
			fields[fmt.Sprintf("items[%d].priceOverride", i)] = "must be greater than or equal to 0"
		}
		p.Items[i] = Item{ProductID: it.ProductID, Quantity: it.Quantity, IsFreebie: it.IsFreebie, PriceOverride: it.PriceOverride}
	}
	if len(fields) > 0 {
		return Promotion{}, &httpx.FieldErrors{Fields: fields}
	}
	return p, nil
}

// productError reports a dangling product reference as a field error.
func productError(err error) error {
	if errors.Is(err, httpx.ErrConflict) {
		return httpx.NewFieldErrors("items", "references an unknown product")
	}
	return err
}
