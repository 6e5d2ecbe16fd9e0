package tags

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

type memoryRepo struct {
	rows   map[int64]Tag
	lastID int64
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{rows: map[int64]Tag{}} }

func (m *memoryRepo) List(_ context.Context, f Filters) ([]Tag, error) {
	out := []Tag{}
	for _, t := range m.rows {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Tag, error) {
	t, ok := m.rows[id]
	if !ok {
		return Tag{}, httpx.ErrNotFound
	}
	return t, nil
}

func (m *memoryRepo) Create(_ context.Context, t Tag) (Tag, error) {
	for _, existing := range m.rows {
		if existing.CompanyID == t.CompanyID && existing.Type == t.Type && existing.Name == t.Name {
			return Tag{}, httpx.ErrDuplicate
		}
	}
	m.lastID++
	t.ID = m.lastID
	m.rows[t.ID] = t
	return t, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, t Tag) error {
	if _, ok := m.rows[id]; !ok {
		return httpx.ErrNotFound
	}
	t.ID = id
	m.rows[id] = t
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func TestCreateDefaultsAndUniqueness(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	tag, err := svc.Create(ctx, Tag{CompanyID: 1, Name: "  VIP "})
	require.NoError(t, err)
	require.Equal(t, "VIP", tag.Name)
	require.Equal(t, TypeUser, tag.Type)

	_, err = svc.Create(ctx, Tag{CompanyID: 1, Name: "VIP", Type: "user"})
	require.True(t, errors.Is(err, httpx.ErrDuplicate))

	_, err = svc.Create(ctx, Tag{CompanyID: 1, Name: "VIP", Type: TypeSystem})
	require.NoError(t, err)

	list, err := svc.List(ctx, Filters{Type: "system"})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCreateRejectsInvalid(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Tag{CompanyID: 1, Name: "x", Type: "OTHER"})
	var fields *httpx.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields.Fields, "type")

	_, err = svc.Create(context.Background(), Tag{Name: "x"})
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields.Fields, "companyId")
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	tag, err := svc.Create(ctx, Tag{CompanyID: 1, Name: "Hot"})
	require.NoError(t, err)

	tag.Name = "Hot lead"
	updated, err := svc.Update(ctx, tag.ID, tag)
	require.NoError(t, err)
	require.Equal(t, "Hot lead", updated.Name)

	require.NoError(t, svc.Delete(ctx, tag.ID))
	require.ErrorIs(t, svc.Delete(ctx, tag.ID), httpx.ErrNotFound)
}
