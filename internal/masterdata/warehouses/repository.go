package warehouses

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/masterdata/shared"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters, servesProvince string) ([]Warehouse, int, error)
	Get(ctx context.Context, id int64) (Warehouse, error)
	Create(ctx context.Context, warehouse Warehouse) (int64, error)
	Update(ctx context.Context, id int64, warehouse Warehouse) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectWarehouse = `
	SELECT w.id, w.company_id, c.name, w.code, w.name, w.address, w.province, w.responsible_provinces,
	       w.manager_name, w.phone, w.is_active, w.created_at, w.updated_at
	FROM warehouses w
	JOIN companies c ON c.id = w.company_id`

var sorts = map[string]string{"code": "w.code", "name": "w.name", "province": "w.province", "createdAt": "w.created_at"}

func scan(row pgx.Row) (Warehouse, error) {
	var w Warehouse
	err := row.Scan(&w.ID, &w.CompanyID, &w.CompanyName, &w.Code, &w.Name, &w.Address, &w.Province,
		&w.ResponsibleProvinces, &w.ManagerName, &w.Phone, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters, servesProvince string) ([]Warehouse, int, error) {
	var where db.Where
	if filters.CompanyID != nil {
		where.Add("w.company_id = ?", *filters.CompanyID)
	}
	if filters.IsActive != nil {
		where.Add("w.is_active = ?", *filters.IsActive)
	}
	if servesProvince != "" {
		where.Add("? = ANY(w.responsible_provinces)", servesProvince)
	}
	where.Search(filters.Search, "w.code", "w.name", "w.province")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses w`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(filters.Limit(), filters.Offset())
	rows, err := r.pool.Query(ctx, selectWarehouse+where.SQL()+db.OrderBy(sorts, filters.SortBy, filters.Desc(), "w.id ASC")+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	warehouses := []Warehouse{}
	for rows.Next() {
		w, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Warehouse, error) {
	w, err := scan(r.pool.QueryRow(ctx, selectWarehouse+` WHERE w.id = $1`, id))
	return w, httpx.MapPgError(err)
}

func (r *repository) Create(ctx context.Context, w Warehouse) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO warehouses (company_id, code, name, address, province, responsible_provinces, manager_name, phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		w.CompanyID, w.Code, w.Name, w.Address, w.Province, w.ResponsibleProvinces, w.ManagerName, w.Phone, w.IsActive).Scan(&id)
	return id, httpx.MapPgError(err)
}

func (r *repository) Update(ctx context.Context, id int64, w Warehouse) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE warehouses SET company_id = $2, code = $3, name = $4, address = $5, province = $6,
		       responsible_provinces = $7, manager_name = $8, phone = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1`,
		id, w.CompanyID, w.Code, w.Name, w.Address, w.Province, w.ResponsibleProvinces, w.ManagerName, w.Phone, w.IsActive)
	return affected(tag.RowsAffected(), err)
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE warehouses SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	return affected(tag.RowsAffected(), err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
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
