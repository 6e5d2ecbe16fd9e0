package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/customers"
	"github.com/mini-erp/telecrm/report"
)

type captureRenderer struct {
	html  string
	paper report.Paper
}

func (c *captureRenderer) RenderHTML(_ context.Context, html string, paper report.Paper) ([]byte, error) {
	c.html, c.paper = html, paper
	return []byte("%PDF"), nil
}

func TestLabelHTML(t *testing.T) {
	o := Order{
		ID:              "250310-00001",
		RecipientName:   "Malee <Sukjai>",
		CustomerPhone:   "0811111111",
		ShippingAddress: customers.Address{Street: "99/1 Moo 2", District: "Mueang", Province: "Khon Kaen", PostalCode: "40000"},
		PaymentMethod:   MethodCOD,
		CODAmount:       decimal.NewFromInt(1500),
		TrackingNumbers: []string{"TH01", "TH02"},
		Items:           []Item{{ProductName: "Fertiliser", Quantity: 2, BoxNumber: 1}},
	}
	html, err := LabelHTML(o)
	require.NoError(t, err)
	require.Contains(t, html, "Malee &lt;Sukjai&gt;")
	require.Contains(t, html, "99/1 Moo 2 Mueang Khon Kaen 40000")
	require.Contains(t, html, "1,500.00")
	require.Contains(t, html, "TH01, TH02")

	o.PaymentMethod = MethodTransfer
	html, err = LabelHTML(o)
	require.NoError(t, err)
	require.NotContains(t, html, "1,500.00")
}

func TestLabelUsesLabelPaper(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	in := sampleInput()
	in.ID = "L-1"
	_, err := svc.Create(ctx, 7, "", in)
	require.NoError(t, err)

	r := &captureRenderer{}
	pdf, err := svc.Label(ctx, r, "L-1")
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(pdf))
	require.Equal(t, report.Label, r.paper)
	require.Contains(t, r.html, "L-1")
}
