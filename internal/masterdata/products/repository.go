package products

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/masterdata/shared"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters, category string) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Categories(ctx context.Context, companyID *int64) ([]string, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, company_id, sku, name, description, category, unit, cost, price, is_active, created_at, updated_at`

var sorts = map[string]string{
	"sku":       "sku",
	"name":      "name",
	"category":  "category",
	"price":     "price",
	"cost":      "cost",
	"createdAt": "created_at",
}

func scan(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Unit,
		&p.Cost, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters, category string) ([]Product, int, error) {
	var where db.Where
	if filters.CompanyID != nil {
		where.Add("company_id = ?", *filters.CompanyID)
	}
	if filters.IsActive != nil {
		where.Add("is_active = ?", *filters.IsActive)
	}
	if category != "" {
		where.Add("category = ?", category)
	}
	where.Search(filters.Search, "sku", "name")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(filters.Limit(), filters.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM products`+where.SQL()+
		db.OrderBy(sorts, filters.SortBy, filters.Desc(), "sku ASC")+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM products WHERE id = $1`, id))
	return p, httpx.MapPgError(err)
}

func (r *repository) Categories(ctx context.Context, companyID *int64) ([]string, error) {
	var where db.Where
	where.Raw("category <> ''")
	if companyID != nil {
		where.Add("company_id = ?", *companyID)
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM products`+where.SQL()+` ORDER BY category`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	created, err := scan(r.pool.QueryRow(ctx, `
		INSERT INTO products (company_id, sku, name, description, category, unit, cost, price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+columns,
		p.CompanyID, p.SKU, p.Name, p.Description, p.Category, p.Unit, p.Cost, p.Price, p.IsActive))
	if err != nil {
		return Product{}, httpx.MapPgError(err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET company_id = $2, sku = $3, name = $4, description = $5, category = $6, unit = $7,
		       cost = $8, price = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1`,
		id, p.CompanyID, p.SKU, p.Name, p.Description, p.Category, p.Unit, p.Cost, p.Price, p.IsActive)
	return affected(tag.RowsAffected(), err)
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	return affected(tag.RowsAffected(), err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func affected(n int64, err error) error {
	if err != nil {
		return httpx.MapPgError(err)
	}
	if n == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
