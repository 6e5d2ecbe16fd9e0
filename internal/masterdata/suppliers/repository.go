package suppliers

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/masterdata/shared"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, company_id, code, name, contact_person, phone, email, address, province, tax_id,
	payment_terms, credit_limit, notes, is_active, created_at, updated_at`

var sorts = map[string]string{
	"code":      "code",
	"name":      "name",
	"province":  "province",
	"createdAt": "created_at",
}

func scan(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.CompanyID, &s.Code, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address,
		&s.Province, &s.TaxID, &s.PaymentTerms, &s.CreditLimit, &s.Notes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	var where db.Where
	if filters.CompanyID != nil {
		where.Add("company_id = ?", *filters.CompanyID)
	}
	if filters.IsActive != nil {
		where.Add("is_active = ?", *filters.IsActive)
	}
	where.Search(filters.Search, "code", "name", "contact_person", "phone")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, args := where.Page(filters.Limit(), filters.Offset())
	query := `SELECT ` + columns + ` FROM suppliers` + where.SQL() + db.OrderBy(sorts, filters.SortBy, filters.Desc(), "name ASC") + page
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	suppliers := []Supplier{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM suppliers WHERE id = $1`, id))
	return s, httpx.MapPgError(err)
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	query := `INSERT INTO suppliers (company_id, code, name, contact_person, phone, email, address, province, tax_id,
		payment_terms, credit_limit, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING ` + columns
	return scanMapped(r.db.QueryRow(ctx, query, s.CompanyID, s.Code, s.Name, s.ContactPerson, s.Phone, s.Email,
		s.Address, s.Province, s.TaxID, s.PaymentTerms, s.CreditLimit, s.Notes, s.IsActive))
}

func (r *repository) Update(ctx context.Context, id int64, s Supplier) error {
	query := `UPDATE suppliers SET company_id = $2, code = $3, name = $4, contact_person = $5, phone = $6, email = $7,
		address = $8, province = $9, tax_id = $10, payment_terms = $11, credit_limit = $12, notes = $13,
		is_active = $14, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, s.CompanyID, s.Code, s.Name, s.ContactPerson, s.Phone, s.Email,
		s.Address, s.Province, s.TaxID, s.PaymentTerms, s.CreditLimit, s.Notes, s.IsActive)
	return affected(tag.RowsAffected(), err)
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE suppliers SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	return affected(tag.RowsAffected(), err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func scanMapped(row pgx.Row) (Supplier, error) {
	s, err := scan(row)
	if err != nil {
		return Supplier{}, httpx.MapPgError(err)
	}
	return s, nil
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
