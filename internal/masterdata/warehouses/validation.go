package warehouses

import (
	"strings"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

func normalise(w Warehouse) Warehouse {
	w.Code = strings.ToUpper(strings.TrimSpace(w.Code))
	w.Name = strings.TrimSpace(w.Name)
	w.Province = strings.TrimSpace(w.Province)
	w.ResponsibleProvinces = normaliseProvinces(w.ResponsibleProvinces)
	return w
}

// normaliseProvinces trims, drops blanks and keeps the first occurrence of each province.
func normaliseProvinces(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (s *Service) validate(w Warehouse) error {
	return httpx.Validate(w)
}
