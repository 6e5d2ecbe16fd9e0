package products

import (
	"strings"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

func normalise(p Product) Product {
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Unit = strings.TrimSpace(p.Unit)
	return p
}

func (s *Service) validate(p Product) error {
	fields := map[string]string{}
	if p.SKU == "" {
		fields["sku"] = "is required"
	}
	if p.Name == "" {
		fields["name"] = "is required"
	}
	if p.CompanyID <= 0 {
		fields["companyId"] = "is required"
	}
	if p.Cost.IsNegative() {
		fields["cost"] = "must be greater than or equal to 0"
	}
	if p.Price.IsNegative() {
		fields["price"] = "must be greater than or equal to 0"
	}
	if len(fields) > 0 {
		return &httpx.FieldErrors{Fields: fields}
	}
	return nil
}
