package customers

import (
	"context"
	"sort"
	"time"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

type memoryRepo struct {
	rows     map[int64]Customer
	users    map[int64]string
	tags     map[int64]TagRef
	timeline []activities.Activity
	lastID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rows:  map[int64]Customer{},
		users: map[int64]string{7: "Somchai Jaidee"},
		tags:  map[int64]TagRef{1: {ID: 1, Name: "VIP", Type: "USER"}, 2: {ID: 2, Name: "Cold list", Type: "SYSTEM"}},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(_ context.Context, params shared.ListParams, f Filters) ([]Customer, int, error) {
	var all []Customer
	for _, c := range m.rows {
		if f.AssignedTo != nil {
			if *f.AssignedTo == 0 && c.AssignedTo != nil {
				continue
			}
			if *f.AssignedTo != 0 && (c.AssignedTo == nil || *c.AssignedTo != *f.AssignedTo) {
				continue
			}
		}
		if f.Grade != "" && c.Grade != f.Grade {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := min(params.Offset(), len(all))
	end := min(start+params.Limit(), len(all))
	return all[start:end], len(all), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := m.rows[id]
	if !ok {
		return Customer{}, httpx.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) FindByPhone(_ context.Context, companyID int64, phone string) (Customer, error) {
	for _, c := range m.rows {
		if c.CompanyID == companyID && c.Phone == phone {
			return c, nil
		}
	}
	return Customer{}, httpx.ErrNotFound
}

func (m *memoryRepo) Create(ctx context.Context, c Customer) (int64, error) {
	if _, err := m.FindByPhone(ctx, c.CompanyID, c.Phone); err == nil {
		return 0, httpx.ErrDuplicate
	}
	m.lastID++
	c.ID = m.lastID
	c.DateRegistered = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Tags = []TagRef{}
	m.rows[c.ID] = c
	return c.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, c Customer) error {
	if _, ok := m.rows[c.ID]; !ok {
		return httpx.ErrNotFound
	}
	m.rows[c.ID] = c
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryRepo) Assign(_ context.Context, id int64, userID *int64, at, expires *time.Time) error {
	c, ok := m.rows[id]
	if !ok {
		return httpx.ErrNotFound
	}
	c.AssignedTo, c.DateAssigned, c.OwnershipExpires = userID, at, expires
	m.rows[id] = c
	return nil
}

func (m *memoryRepo) ReplaceTags(_ context.Context, id int64, tagIDs []int64) error {
	c := m.rows[id]
	c.Tags = []TagRef{}
	for _, tid := range tagIDs {
		if t, ok := m.tags[tid]; ok {
			c.Tags = append(c.Tags, t)
		}
	}
	m.rows[id] = c
	return nil
}

func (m *memoryRepo) UserName(_ context.Context, userID int64) (string, error) {
	name, ok := m.users[userID]
	if !ok {
		return "", httpx.ErrNotFound
	}
	return name, nil
}

func (m *memoryRepo) RecordActivity(_ context.Context, a activities.Activity) error {
	m.timeline = append(m.timeline, a)
	return nil
}

func (m *memoryRepo) ReleaseExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, c := range m.rows {
		if c.AssignedTo != nil && c.OwnershipExpires != nil && c.OwnershipExpires.Before(now) {
			c.AssignedTo, c.DateAssigned, c.OwnershipExpires = nil, nil, nil
			m.rows[id] = c
			m.timeline = append(m.timeline, activities.Activity{CustomerID: id, Type: activities.TypeOwnershipExpired})
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) RefreshGrades(context.Context) (int64, error) {
	var n int64
	for id, c := range m.rows {
		if g := GradeFor(c.TotalPurchases); g != c.Grade {
			c.Grade = g
			m.rows[id] = c
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) types() []activities.Type {
	out := make([]activities.Type, len(m.timeline))
	for i, a := range m.timeline {
		out[i] = a.Type
	}
	return out
}
