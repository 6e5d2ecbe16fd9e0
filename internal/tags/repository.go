package tags

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, f Filters) ([]Tag, error)
	Get(ctx context.Context, id int64) (Tag, error)
	Create(ctx context.Context, t Tag) (Tag, error)
	Update(ctx context.Context, id int64, t Tag) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectTag = `SELECT t.id, t.company_id, t.name, t.type, t.color,
	(SELECT COUNT(*) FROM customer_tags ct WHERE ct.tag_id = t.id), t.created_at
	FROM tags t`

func scan(row pgx.Row) (Tag, error) {
	var t Tag
	err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Type, &t.Color, &t.Customers, &t.CreatedAt)
	return t, err
}

func (r *repository) List(ctx context.Context, f Filters) ([]Tag, error) {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("t.company_id = ?", *f.CompanyID)
	}
	if f.Type != "" {
		where.Add("t.type = ?", f.Type)
	}
	where.Search(f.Search, "t.name")
	rows, err := r.db.Query(ctx, selectTag+where.SQL()+` ORDER BY t.type, t.name`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Tag{}
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Tag, error) {
	t, err := scan(r.db.QueryRow(ctx, selectTag+` WHERE t.id = $1`, id))
	return t, httpx.MapPgError(err)
}

func (r *repository) Create(ctx context.Context, t Tag) (Tag, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO tags (company_id, name, type, color) VALUES ($1, $2, $3, $4) RETURNING id`,
		t.CompanyID, t.Name, t.Type, t.Color).Scan(&id)
	if err != nil {
		return Tag{}, httpx.MapPgError(err)
	}
	return r.Get(ctx, id)
}

func (r *repository) Update(ctx context.Context, id int64, t Tag) error {
	tag, err := r.db.Exec(ctx, `UPDATE tags SET name = $2, type = $3, color = $4 WHERE id = $1`, id, t.Name, t.Type, t.Color)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Delete removes the tag; customer_tags rows cascade.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
