package suppliers

import (
	"strings"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

func normalise(sup Supplier) Supplier {
	sup.Code = strings.ToUpper(strings.TrimSpace(sup.Code))
	sup.Name = strings.TrimSpace(sup.Name)
	sup.Phone = strings.TrimSpace(sup.Phone)
	sup.Email = strings.TrimSpace(sup.Email)
	return sup
}

func (s *Service) validate(sup Supplier) error {
	if err := httpx.Validate(sup); err != nil {
		return err
	}
	if sup.CreditLimit.IsNegative() {
		return httpx.NewFieldErrors("creditLimit", "must be greater than or equal to 0")
	}
	return nil
}
