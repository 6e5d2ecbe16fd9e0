package warehouses

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

func TestNormaliseProvinces(t *testing.T) {
	got := normaliseProvinces([]string{" กรุงเทพมหานคร", "นนทบุรี", "", "กรุงเทพมหานคร ", "  "})
	require.Equal(t, []string{"กรุงเทพมหานคร", "นนทบุรี"}, got)
	require.Empty(t, normaliseProvinces(nil))
	require.NotNil(t, normaliseProvinces(nil))
}

func TestValidateWarehouse(t *testing.T) {
	s := &Service{}
	w := normalise(Warehouse{CompanyID: 1, Code: " wh1 ", Name: "Main"})
	require.Equal(t, "WH1", w.Code)
	require.NoError(t, s.validate(w))
	require.ErrorIs(t, s.validate(Warehouse{Code: "A", Name: "x"}), httpx.ErrValidation)
}
