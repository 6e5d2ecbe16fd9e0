package reports

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
)

// Repository runs the report aggregates.
type Repository interface {
	Totals(ctx context.Context, f Filter) (Totals, error)
	ByStatus(ctx context.Context, f Filter) ([]Bucket, error)
	ByPaymentMethod(ctx context.Context, f Filter) ([]Bucket, error)
	Daily(ctx context.Context, f Filter) ([]DailyPoint, error)
	TopProducts(ctx context.Context, f Filter, limit int) ([]TopProduct, error)
	Telesales(ctx context.Context, f Filter) ([]TelesalesRow, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func orderWhere(f Filter, excludeCancelled bool) db.Where {
	var where db.Where
	where.Add("o.order_date >= ?", f.From)
	where.Add("o.order_date < ?", f.To)
	if f.CompanyID != nil {
		where.Add("o.company_id = ?", *f.CompanyID)
	}
	if excludeCancelled {
		where.Raw("o.order_status <> 'Cancelled'")
	}
	return where
}

func (r *repository) Totals(ctx context.Context, f Filter) (Totals, error) {
	where := orderWhere(f, true)
	var t Totals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(o.total_amount), 0), COALESCE(SUM(o.amount_paid), 0)
		FROM orders o`+where.SQL(), where.Args()...).Scan(&t.Orders, &t.Revenue, &t.PaidAmount)
	return t, err
}

func (r *repository) buckets(ctx context.Context, column string, f Filter, excludeCancelled bool) ([]Bucket, error) {
	where := orderWhere(f, excludeCancelled)
	rows, err := r.pool.Query(ctx, `SELECT `+column+`, COUNT(*), COALESCE(SUM(o.total_amount), 0)
		FROM orders o`+where.SQL()+` GROUP BY 1 ORDER BY 2 DESC`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Count, &b.Amount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) ByStatus(ctx context.Context, f Filter) ([]Bucket, error) {
	return r.buckets(ctx, "o.order_status", f, false)
}

func (r *repository) ByPaymentMethod(ctx context.Context, f Filter) ([]Bucket, error) {
	return r.buckets(ctx, "o.payment_method", f, true)
}

func (r *repository) Daily(ctx context.Context, f Filter) ([]DailyPoint, error) {
	where := orderWhere(f, true)
	rows, err := r.pool.Query(ctx, `SELECT to_char(o.order_date::date, 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(o.total_amount), 0)
		FROM orders o`+where.SQL()+` GROUP BY 1 ORDER BY 1`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyPoint
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Date, &p.Orders, &p.Revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) TopProducts(ctx context.Context, f Filter, limit int) ([]TopProduct, error) {
	where := orderWhere(f, true)
	page, args := where.Page(limit, 0)
	rows, err := r.pool.Query(ctx, `
		SELECT i.product_id, i.product_name, SUM(i.quantity),
		       COALESCE(SUM(CASE WHEN i.is_freebie THEN 0 ELSE i.quantity * i.price_per_unit - i.discount END), 0)
		FROM order_items i JOIN orders o ON o.id = i.order_id`+where.SQL()+`
		GROUP BY i.product_id, i.product_name
		ORDER BY 3 DESC, 2`+page, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TopProduct{}
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Telesales(ctx context.Context, f Filter) ([]TelesalesRow, error) {
	var where db.Where
	where.Raw("u.status = 'active'")
	if f.CompanyID != nil {
		where.Add("u.company_id = ?", *f.CompanyID)
	}
	from := len(where.Args()) + 1
	args := append(where.Args(), f.From, f.To)
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, TRIM(u.first_name || ' ' || u.last_name),
		       COALESCE(ord.orders, 0), COALESCE(ord.revenue, 0),
		       COALESCE(cust.assigned, 0), COALESCE(cust.with_orders, 0),
		       COALESCE(calls.calls, 0)
		FROM users u
		LEFT JOIN (
			SELECT o.creator_id, COUNT(*) AS orders, SUM(o.total_amount) AS revenue
			FROM orders o
			WHERE o.order_date >= $`+strconv.Itoa(from)+` AND o.order_date < $`+strconv.Itoa(from+1)+` AND o.order_status <> 'Cancelled'
			GROUP BY o.creator_id
		) ord ON ord.creator_id = u.id
		LEFT JOIN (
			SELECT c.assigned_to, COUNT(*) AS assigned,
			       COUNT(*) FILTER (WHERE EXISTS (
			           SELECT 1 FROM orders o
			           WHERE o.customer_id = c.id AND o.creator_id = c.assigned_to
			             AND o.order_date >= $`+strconv.Itoa(from)+` AND o.order_date < $`+strconv.Itoa(from+1)+`
			             AND o.order_status <> 'Cancelled')) AS with_orders
			FROM customers c
			WHERE c.assigned_to IS NOT NULL
			GROUP BY c.assigned_to
		) cust ON cust.assigned_to = u.id
		LEFT JOIN (
			SELECT a.actor_id, COUNT(*) AS calls
			FROM activities a
			WHERE a.type = 'call_logged' AND a.created_at >= $`+strconv.Itoa(from)+` AND a.created_at < $`+strconv.Itoa(from+1)+`
			GROUP BY a.actor_id
		) calls ON calls.actor_id = u.id`+where.SQL()+`
		ORDER BY 4 DESC, 2`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TelesalesRow{}
	for rows.Next() {
		var t TelesalesRow
		if err := rows.Scan(&t.UserID, &t.Name, &t.Orders, &t.Revenue, &t.CustomersAssigned,
			&t.CustomersWithOrders, &t.Calls); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
