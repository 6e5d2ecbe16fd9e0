package companies

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/masterdata/shared"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Company, int, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, id int64, company Company) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, code, name, tax_id, address, phone, email, is_active, created_at, updated_at`

var sorts = map[string]string{"code": "code", "name": "name", "createdAt": "created_at"}

func scan(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.TaxID, &c.Address, &c.Phone, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List filters by the caller's company scope, which for companies means the row id.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Company, int, error) {
	var where db.Where
	if filters.CompanyID != nil {
		where.Add("id = ?", *filters.CompanyID)
	}
	if filters.IsActive != nil {
		where.Add("is_active = ?", *filters.IsActive)
	}
	where.Search(filters.Search, "code", "name", "tax_id")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(filters.Limit(), filters.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM companies`+where.SQL()+
		db.OrderBy(sorts, filters.SortBy, filters.Desc(), "name ASC")+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	c, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM companies WHERE id = $1`, id))
	return c, httpx.MapPgError(err)
}

func (r *repository) Create(ctx context.Context, c Company) (Company, error) {
	created, err := scan(r.pool.QueryRow(ctx, `
		INSERT INTO companies (code, name, tax_id, address, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+columns,
		c.Code, c.Name, c.TaxID, c.Address, c.Phone, c.Email, c.IsActive))
	if err != nil {
		return Company{}, httpx.MapPgError(err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, c Company) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE companies SET code = $2, name = $3, tax_id = $4, address = $5, phone = $6, email = $7,
		       is_active = $8, updated_at = NOW()
		WHERE id = $1`, id, c.Code, c.Name, c.TaxID, c.Address, c.Phone, c.Email, c.IsActive)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
