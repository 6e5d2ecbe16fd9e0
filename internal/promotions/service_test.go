package promotions

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

type product struct {
	sku, name string
	price     decimal.Decimal
}

type memoryRepo struct {
	rows     map[int64]Promotion
	products map[int64]product
	lastID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rows: map[int64]Promotion{},
		products: map[int64]product{
			1: {"FER-25", "Fertiliser 25kg", dec("350")},
			2: {"SMP", "Sample pack", dec("99")},
		},
	}
}

func (m *memoryRepo) hydrate(p Promotion) (Promotion, error) {
	items := make([]Item, len(p.Items))
	for i, it := range p.Items {
		prod, ok := m.products[it.ProductID]
		if !ok {
			return Promotion{}, httpx.ErrConflict
		}
		it.ProductSKU, it.ProductName, it.ProductPrice = prod.sku, prod.name, prod.price
		items[i] = it
	}
	p.Items = items
	return p, nil
}

func (m *memoryRepo) List(_ context.Context, params shared.ListParams, f Filters) ([]Promotion, int, error) {
	var all []Promotion
	for _, p := range m.rows {
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := min(params.Offset(), len(all))
	end := min(start+params.Limit(), len(all))
	return all[start:end], len(all), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Promotion, error) {
	p, ok := m.rows[id]
	if !ok {
		return Promotion{}, httpx.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) ActiveOn(_ context.Context, _ *int64, _ time.Time) ([]Promotion, error) {
	var out []Promotion
	for _, p := range m.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) Create(_ context.Context, p Promotion) (int64, error) {
	p, err := m.hydrate(p)
	if err != nil {
		return 0, err
	}
	m.lastID++
	p.ID = m.lastID
	m.rows[p.ID] = p
	return p.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, p Promotion) error {
	if _, ok := m.rows[id]; !ok {
		return httpx.ErrNotFound
	}
	p, err := m.hydrate(p)
	if err != nil {
		return err
	}
	p.ID = id
	m.rows[id] = p
	return nil
}

func (m *memoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	p, ok := m.rows[id]
	if !ok {
		return httpx.ErrNotFound
	}
	p.IsActive = active
	m.rows[id] = p
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func bundle() Input {
	return Input{
		CompanyID: 1,
		Name:      " Buy 2 get 1 ",
		SKU:       "pro-b2g1",
		Items: []ItemInput{
			{ProductID: 1, Quantity: 2, PriceOverride: ptr(dec("300"))},
			{ProductID: 2, Quantity: 1, IsFreebie: true},
		},
	}
}

func TestCreatePromotion(t *testing.T) {
	svc := NewService(newMemoryRepo())
	p, err := svc.Create(context.Background(), bundle())
	require.NoError(t, err)
	require.Equal(t, "Buy 2 get 1", p.Name)
	require.Equal(t, "PRO-B2G1", p.SKU)
	require.True(t, p.IsActive)
	require.Equal(t, "Fertiliser 25kg", p.Items[0].ProductName)
	require.Equal(t, "700", p.Pricing.NormalPrice.String())
	require.Equal(t, "600", p.Pricing.PromoPrice.String())
	require.Equal(t, "100", p.Pricing.Saving.String())
}

func TestCreatePromotionValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	cases := map[string]func(*Input){
		"name":                   func(in *Input) { in.Name = "  " },
		"items":                  func(in *Input) { in.Items = nil },
		"items[0].quantity":      func(in *Input) { in.Items[0].Quantity = 0 },
		"items[0].priceOverride": func(in *Input) { in.Items[0].PriceOverride = ptr(dec("-1")) },
		"endDate":                func(in *Input) { in.StartDate, in.EndDate = &start, &end },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := bundle()
			mutate(&in)
			_, err := svc.Create(ctx, in)
			var fe *httpx.FieldErrors
			require.ErrorAs(t, err, &fe)
			require.Contains(t, fe.Fields, field)
		})
	}

	in := bundle()
	in.Items[0].ProductID = 42
	_, err := svc.Create(ctx, in)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestActiveFiltersByDate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, bundle())
	require.NoError(t, err)
	in := bundle()
	past := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	in.EndDate = &past
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)
	off, err := svc.Create(ctx, bundle())
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, off.ID, false)
	require.NoError(t, err)

	got, err := svc.Active(ctx, nil, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].ID)
	require.Equal(t, "100", got[0].Pricing.Saving.String())
}

func TestUpdateAndDelete(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	p, err := svc.Create(ctx, bundle())
	require.NoError(t, err)

	in := bundle()
	in.Items = in.Items[:1]
	in.Items[0].PriceOverride = nil
	p, err = svc.Update(ctx, p.ID, in)
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	require.True(t, p.Pricing.Saving.IsZero())

	_, err = svc.Update(ctx, 99, in)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
