package orders

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/customers"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

type memoryRepo struct {
	orders    map[string]Order
	customers map[int64]CustomerRef
	phones    map[string]int64
	sales     []Sale
	timeline  []activities.Activity
	slipID    int64
	inserts   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders: map[string]Order{},
		customers: map[int64]CustomerRef{
			10: {ID: 10, CompanyID: 1, Name: "Malee Sukjai", LifecycleStatus: customers.LifecycleNew,
				Grade: customers.GradeD, TotalPurchases: decimal.NewFromInt(4000)},
		},
		phones: map[string]int64{"0811111111": 10},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(_ context.Context, params shared.ListParams, f Filters) ([]Order, int, error) {
	var all []Order
	for _, o := range m.orders {
		if f.CreatorID != nil && o.CreatorID != *f.CreatorID {
			continue
		}
		if f.Status != "" && o.OrderStatus != f.Status {
			continue
		}
		o.Items, o.Slips = nil, nil
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := min(params.Offset(), len(all))
	end := min(start+params.Limit(), len(all))
	return all[start:end], len(all), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, httpx.ErrNotFound
	}
	o.TrackingNumbers = slices.Clone(o.TrackingNumbers)
	return o, nil
}

func (m *memoryRepo) Insert(_ context.Context, o Order) error {
	m.inserts++
	if _, ok := m.orders[o.ID]; ok {
		return httpx.ErrDuplicate
	}
	o.CustomerName = m.customers[o.CustomerID].Name
	o.CreatedAt = o.OrderDate
	m.orders[o.ID] = o
	return nil
}

func (m *memoryRepo) Update(_ context.Context, o Order) error {
	cur, ok := m.orders[o.ID]
	if !ok {
		return httpx.ErrNotFound
	}
	o.TrackingNumbers = cur.TrackingNumbers
	o.Items, o.Slips = cur.Items, cur.Slips
	m.orders[o.ID] = o
	return nil
}

func (m *memoryRepo) ReplaceTracking(_ context.Context, orderID string, numbers []string) error {
	o := m.orders[orderID]
	o.TrackingNumbers = numbers
	m.orders[orderID] = o
	return nil
}

func (m *memoryRepo) AddTracking(_ context.Context, orderID, number string) error {
	o := m.orders[orderID]
	o.TrackingNumbers = append(o.TrackingNumbers, number)
	m.orders[orderID] = o
	return nil
}

func (m *memoryRepo) TrackingIndex(_ context.Context, ids []string) (map[string]TrackingEntry, error) {
	out := map[string]TrackingEntry{}
	for _, id := range ids {
		for _, o := range m.orders {
			if strings.EqualFold(o.ID, id) {
				out[strings.ToLower(id)] = TrackingEntry{ID: o.ID, Existing: slices.Clone(o.TrackingNumbers)}
			}
		}
	}
	return out, nil
}

func (m *memoryRepo) AddSlip(_ context.Context, orderID string, s Slip, _ int64) (Slip, error) {
	m.slipID++
	s.ID = m.slipID
	s.CreatedAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	o := m.orders[orderID]
	o.Slips = append(o.Slips, s)
	m.orders[orderID] = o
	return s, nil
}

func (m *memoryRepo) Customer(_ context.Context, id int64) (CustomerRef, error) {
	c, ok := m.customers[id]
	if !ok {
		return CustomerRef{}, httpx.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) CustomerIDByPhone(_ context.Context, _ int64, phone string) (int64, error) {
	id, ok := m.phones[phone]
	if !ok {
		return 0, httpx.ErrNotFound
	}
	return id, nil
}

func (m *memoryRepo) AssignCustomer(_ context.Context, customerID, userID int64, _, expires time.Time) error {
	c := m.customers[customerID]
	if c.AssignedTo == nil {
		c.AssignedTo = &userID
		c.OwnershipExpires = &expires
	}
	m.customers[customerID] = c
	return nil
}

func (m *memoryRepo) SetLifecycle(_ context.Context, customerID int64, lifecycle string) error {
	c := m.customers[customerID]
	c.LifecycleStatus = lifecycle
	m.customers[customerID] = c
	return nil
}

func (m *memoryRepo) ApplySale(_ context.Context, s Sale) error {
	c := m.customers[s.CustomerID]
	c.TotalPurchases = c.TotalPurchases.Add(s.Amount)
	c.OwnershipExpires = &s.OwnershipExpires
	c.Grade = s.Grade
	m.customers[s.CustomerID] = c
	m.sales = append(m.sales, s)
	return nil
}

func (m *memoryRepo) RecordActivity(_ context.Context, a activities.Activity) error {
	m.timeline = append(m.timeline, a)
	return nil
}

func (m *memoryRepo) activityTypes() []activities.Type {
	out := make([]activities.Type, len(m.timeline))
	for i, a := range m.timeline {
		out[i] = a.Type
	}
	return out
}
