package companies

import (
	"strings"
	"unicode"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

func normalise(c Company) Company {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Name = strings.TrimSpace(c.Name)
	c.TaxID = strings.TrimSpace(c.TaxID)
	return c
}

func (s *Service) validate(c Company) error {
	if c.Code == "" {
		return httpx.NewFieldErrors("code", "is required")
	}
	if c.Name == "" {
		return httpx.NewFieldErrors("name", "is required")
	}
	// Thai tax ids are 13 digits.
	if c.TaxID != "" && (len(c.TaxID) != 13 || strings.IndexFunc(c.TaxID, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0) {
		return httpx.NewFieldErrors("taxId", "must be 13 digits")
	}
	return nil
}
