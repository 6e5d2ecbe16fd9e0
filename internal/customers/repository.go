package customers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Repository is the persistence port of the customer service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, params shared.ListParams, f Filters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	FindByPhone(ctx context.Context, companyID int64, phone string) (Customer, error)
	Create(ctx context.Context, c Customer) (int64, error)
	Update(ctx context.Context, c Customer) error
	Delete(ctx context.Context, id int64) error
	Assign(ctx context.Context, id int64, userID *int64, at, expires *time.Time) error
	ReplaceTags(ctx context.Context, id int64, tagIDs []int64) error
	UserName(ctx context.Context, userID int64) (string, error)
	RecordActivity(ctx context.Context, a activities.Activity) error
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)
	RefreshGrades(ctx context.Context) (int64, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	db   db.DBTX
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, db: pool}
}

// WithTx runs fn against a transaction-bound repository.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{pool: r.pool, db: tx})
	})
}

const selectCustomer = `
	SELECT c.id, c.company_id, c.first_name, c.last_name, c.phone, c.email, c.facebook_name, c.line_id,
	       c.street, c.subdistrict, c.district, c.province, c.postal_code,
	       c.lifecycle_status, c.behavioral_status, c.grade, c.assigned_to,
	       COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''),
	       c.date_assigned, c.date_registered, c.follow_up_date, c.ownership_expires,
	       c.total_purchases, c.total_calls, c.has_sold_before, c.last_sale_date, c.follow_up_count,
	       c.notes, c.created_at, c.updated_at
	FROM customers c
	LEFT JOIN users u ON u.id = c.assigned_to`

var sorts = map[string]string{
	"name":             "c.first_name",
	"phone":            "c.phone",
	"grade":            "c.grade",
	"province":         "c.province",
	"totalPurchases":   "c.total_purchases",
	"dateRegistered":   "c.date_registered",
	"dateAssigned":     "c.date_assigned",
	"ownershipExpires": "c.ownership_expires",
	"followUpDate":     "c.follow_up_date",
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.CompanyID, &c.FirstName, &c.LastName, &c.Phone, &c.Email, &c.FacebookName, &c.LineID,
		&c.Address.Street, &c.Address.Subdistrict, &c.Address.District, &c.Address.Province, &c.Address.PostalCode,
		&c.LifecycleStatus, &c.BehavioralStatus, &c.Grade, &c.AssignedTo, &c.AssignedToName,
		&c.DateAssigned, &c.DateRegistered, &c.FollowUpDate, &c.OwnershipExpires,
		&c.TotalPurchases, &c.TotalCalls, &c.HasSoldBefore, &c.LastSaleDate, &c.FollowUpCount,
		&c.Notes, &c.CreatedAt, &c.UpdatedAt)
	c.Tags = []TagRef{}
	return c, err
}

func buildWhere(params shared.ListParams, f Filters) db.Where {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("c.company_id = ?", *f.CompanyID)
	}
	if f.Lifecycle != "" {
		where.Add("c.lifecycle_status = ?", f.Lifecycle)
	}
	if f.Behavioral != "" {
		where.Add("c.behavioral_status = ?", f.Behavioral)
	}
	if f.Grade != "" {
		where.Add("c.grade = ?", f.Grade)
	}
	if f.AssignedTo != nil {
		if *f.AssignedTo == 0 {
			where.Raw("c.assigned_to IS NULL")
		} else {
			where.Add("c.assigned_to = ?", *f.AssignedTo)
		}
	}
	if f.Province != "" {
		where.Add("c.province = ?", f.Province)
	}
	if f.TagID != nil {
		where.Add("EXISTS (SELECT 1 FROM customer_tags ct WHERE ct.customer_id = c.id AND ct.tag_id = ?)", *f.TagID)
	}
	if params.From != nil {
		where.Add("c.date_registered >= ?", *params.From)
	}
	if params.To != nil {
		where.Add("c.date_registered < ?", *params.To)
	}
	where.Search(params.Search, "c.first_name", "c.last_name", "c.phone", "c.facebook_name", "c.line_id")
	return where
}

// List returns a page of customers with their tags.
func (r *PGRepository) List(ctx context.Context, params shared.ListParams, f Filters) ([]Customer, int, error) {
	where := buildWhere(params, f)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers c`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	query := selectCustomer + where.SQL() + db.OrderBy(sorts, params.SortBy, params.Desc(), "c.date_registered DESC, c.id DESC") + page
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PGRepository) attachTags(ctx context.Context, list []Customer) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	index := make(map[int64]int, len(list))
	for i, c := range list {
		ids[i] = c.ID
		index[c.ID] = i
	}
	rows, err := r.db.Query(ctx, `
		SELECT ct.customer_id, t.id, t.name, t.type, t.color
		FROM customer_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE ct.customer_id = ANY($1)
		ORDER BY t.name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var customerID int64
		var t TagRef
		if err := rows.Scan(&customerID, &t.ID, &t.Name, &t.Type, &t.Color); err != nil {
			return err
		}
		i := index[customerID]
		list[i].Tags = append(list[i].Tags, t)
	}
	return rows.Err()
}

// Get loads one customer with tags.
func (r *PGRepository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, selectCustomer+` WHERE c.id = $1`, id))
	if err != nil {
		return Customer{}, httpx.MapPgError(err)
	}
	list := []Customer{c}
	if err := r.attachTags(ctx, list); err != nil {
		return Customer{}, err
	}
	return list[0], nil
}

// FindByPhone looks a customer up by normalised phone within a company.
func (r *PGRepository) FindByPhone(ctx context.Context, companyID int64, phone string) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, selectCustomer+` WHERE c.company_id = $1 AND c.phone = $2`, companyID, phone))
	if err != nil {
		return Customer{}, httpx.MapPgError(err)
	}
	return c, nil
}

// Create inserts a customer and returns its id.
func (r *PGRepository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (company_id, first_name, last_name, phone, email, facebook_name, line_id,
			street, subdistrict, district, province, postal_code, lifecycle_status, behavioral_status, grade,
			assigned_to, date_assigned, ownership_expires, follow_up_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id`,
		c.CompanyID, c.FirstName, c.LastName, c.Phone, c.Email, c.FacebookName, c.LineID,
		c.Address.Street, c.Address.Subdistrict, c.Address.District, c.Address.Province, c.Address.PostalCode,
		c.LifecycleStatus, c.BehavioralStatus, c.Grade, c.AssignedTo, c.DateAssigned, c.OwnershipExpires,
		c.FollowUpDate, c.Notes).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

// Update writes the editable columns of c.
func (r *PGRepository) Update(ctx context.Context, c Customer) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE customers SET first_name = $2, last_name = $3, phone = $4, email = $5, facebook_name = $6,
			line_id = $7, street = $8, subdistrict = $9, district = $10, province = $11, postal_code = $12,
			lifecycle_status = $13, behavioral_status = $14, grade = $15, follow_up_date = $16,
			total_calls = $17, follow_up_count = $18, notes = $19, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.Phone, c.Email, c.FacebookName, c.LineID,
		c.Address.Street, c.Address.Subdistrict, c.Address.District, c.Address.Province, c.Address.PostalCode,
		c.LifecycleStatus, c.BehavioralStatus, c.Grade, c.FollowUpDate, c.TotalCalls, c.FollowUpCount, c.Notes)
	return affected(tag.RowsAffected(), err)
}

// Delete removes a customer. Customers with orders are kept (foreign key).
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

// Assign sets the owner and the ownership window.
func (r *PGRepository) Assign(ctx context.Context, id int64, userID *int64, at, expires *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE customers SET assigned_to = $2, date_assigned = $3, ownership_expires = $4, updated_at = NOW()
		WHERE id = $1`, id, userID, at, expires)
	return affected(tag.RowsAffected(), err)
}

// ReplaceTags swaps the tag set. Tags from other companies are ignored.
func (r *PGRepository) ReplaceTags(ctx context.Context, id int64, tagIDs []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM customer_tags WHERE customer_id = $1`, id); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO customer_tags (customer_id, tag_id)
		SELECT $1, t.id FROM tags t
		WHERE t.id = ANY($2) AND t.company_id = (SELECT company_id FROM customers WHERE id = $1)
		ON CONFLICT DO NOTHING`, id, tagIDs)
	return httpx.MapPgError(err)
}

// UserName returns the display name of an active user.
func (r *PGRepository) UserName(ctx context.Context, userID int64) (string, error) {
	var name string
	err := r.db.QueryRow(ctx,
		`SELECT TRIM(first_name || ' ' || last_name) FROM users WHERE id = $1 AND status = 'active'`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", httpx.ErrNotFound
	}
	return name, err
}

// RecordActivity appends to the customer timeline on the same connection.
func (r *PGRepository) RecordActivity(ctx context.Context, a activities.Activity) error {
	return activities.Insert(ctx, r.db, a)
}

// ReleaseExpired returns customers whose ownership lapsed before now to the
// pool and logs an ownership_expired activity for each.
func (r *PGRepository) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		WITH released AS (
			UPDATE customers
			SET assigned_to = NULL, date_assigned = NULL, ownership_expires = NULL, updated_at = NOW()
			WHERE assigned_to IS NOT NULL AND ownership_expires IS NOT NULL AND ownership_expires < $1
			RETURNING id
		)
		INSERT INTO activities (customer_id, type, description)
		SELECT id, $2, 'Ownership expired, returned to the pool' FROM released`,
		now, string(activities.TypeOwnershipExpired))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RefreshGrades recomputes every grade from total purchases.
func (r *PGRepository) RefreshGrades(ctx context.Context) (int64, error) {
	expr := gradeCaseSQL("c.total_purchases")
	tag, err := r.db.Exec(ctx, `UPDATE customers c SET grade = `+expr+`, updated_at = NOW() WHERE c.grade <> `+expr)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
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
