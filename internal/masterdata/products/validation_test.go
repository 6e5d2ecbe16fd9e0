package products

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

func TestValidateProduct(t *testing.T) {
	s := &Service{}
	ok := normalise(ProductForm{CompanyID: 1, SKU: " hb-001 ", Name: "Herbal balm", Price: decimal.RequireFromString("390.00")}.toModel())
	require.Equal(t, "HB-001", ok.SKU)
	require.True(t, ok.IsActive)
	require.NoError(t, s.validate(ok))

	err := s.validate(Product{Cost: decimal.NewFromInt(-1), Price: decimal.NewFromInt(-5)})
	var fe *httpx.FieldErrors
	require.True(t, errors.As(err, &fe))
	require.Len(t, fe.Fields, 5)
	require.Contains(t, fe.Fields, "cost")
	require.Contains(t, fe.Fields, "price")
}
