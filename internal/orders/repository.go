package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// CustomerRef is the customer state order side effects read and write.
type CustomerRef struct {
	ID               int64
	CompanyID        int64
	Name             string
	AssignedTo       *int64
	OwnershipExpires *time.Time
	LifecycleStatus  string
	Grade            string
	TotalPurchases   decimal.Decimal
}

// Sale is the customer update applied when an order is paid and delivered.
type Sale struct {
	CustomerID       int64
	Amount           decimal.Decimal
	At               time.Time
	OwnershipExpires time.Time
	Grade            string
}

// TrackingEntry is what the bulk tracking validator knows about one order.
type TrackingEntry struct {
	ID       string
	Existing []string
}

// Repository is the persistence port of the order service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, params shared.ListParams, f Filters) ([]Order, int, error)
	Get(ctx context.Context, id string) (Order, error)
	Insert(ctx context.Context, o Order) error
	Update(ctx context.Context, o Order) error
	ReplaceTracking(ctx context.Context, orderID string, numbers []string) error
	AddTracking(ctx context.Context, orderID, number string) error
	TrackingIndex(ctx context.Context, orderIDs []string) (map[string]TrackingEntry, error)
	AddSlip(ctx context.Context, orderID string, s Slip, actorID int64) (Slip, error)
	Customer(ctx context.Context, id int64) (CustomerRef, error)
	CustomerIDByPhone(ctx context.Context, companyID int64, phone string) (int64, error)
	AssignCustomer(ctx context.Context, customerID, userID int64, at, expires time.Time) error
	SetLifecycle(ctx context.Context, customerID int64, lifecycle string) error
	ApplySale(ctx context.Context, s Sale) error
	RecordActivity(ctx context.Context, a activities.Activity) error
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

const selectOrder = `
	SELECT o.id, o.company_id, o.customer_id, TRIM(c.first_name || ' ' || c.last_name), c.phone,
	       o.creator_id, COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''),
	       o.order_date, o.delivery_date, o.recipient_name,
	       o.shipping_street, o.shipping_subdistrict, o.shipping_district, o.shipping_province, o.shipping_postal_code,
	       o.shipping_cost, o.bill_discount, o.total_amount, o.payment_method, o.payment_status,
	       o.amount_paid, o.cod_amount, o.order_status, o.notes, o.sales_channel, o.sale_counted,
	       COALESCE((SELECT array_agg(t.tracking_number ORDER BY t.id) FROM order_tracking_numbers t WHERE t.order_id = o.id), '{}'),
	       o.created_at, o.updated_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
	LEFT JOIN users u ON u.id = o.creator_id`

var sorts = map[string]string{
	"id":            "o.id",
	"orderDate":     "o.order_date",
	"totalAmount":   "o.total_amount",
	"orderStatus":   "o.order_status",
	"paymentStatus": "o.payment_status",
	"customerName":  "c.first_name",
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CompanyID, &o.CustomerID, &o.CustomerName, &o.CustomerPhone,
		&o.CreatorID, &o.CreatorName, &o.OrderDate, &o.DeliveryDate, &o.RecipientName,
		&o.ShippingAddress.Street, &o.ShippingAddress.Subdistrict, &o.ShippingAddress.District,
		&o.ShippingAddress.Province, &o.ShippingAddress.PostalCode,
		&o.ShippingCost, &o.BillDiscount, &o.TotalAmount, &o.PaymentMethod, &o.PaymentStatus,
		&o.AmountPaid, &o.CODAmount, &o.OrderStatus, &o.Notes, &o.SalesChannel, &o.SaleCounted,
		&o.TrackingNumbers, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func buildWhere(params shared.ListParams, f Filters) db.Where {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("o.company_id = ?", *f.CompanyID)
	}
	if f.Status != "" {
		where.Add("o.order_status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		where.Add("o.payment_status = ?", f.PaymentStatus)
	}
	if f.PaymentMethod != "" {
		where.Add("o.payment_method = ?", f.PaymentMethod)
	}
	if f.CustomerID != nil {
		where.Add("o.customer_id = ?", *f.CustomerID)
	}
	if f.CreatorID != nil {
		where.Add("o.creator_id = ?", *f.CreatorID)
	}
	if params.From != nil {
		where.Add("o.order_date >= ?", *params.From)
	}
	if params.To != nil {
		where.Add("o.order_date < ?", *params.To)
	}
	if params.Search != "" {
		where.Add(`(o.id ILIKE ? OR c.first_name ILIKE ? OR c.last_name ILIKE ? OR c.phone ILIKE ?
			OR EXISTS (SELECT 1 FROM order_tracking_numbers t WHERE t.order_id = o.id AND t.tracking_number ILIKE ?))`,
			"%"+params.Search+"%")
	}
	return where
}

// List returns a page of orders without items.
func (r *PGRepository) List(ctx context.Context, params shared.ListParams, f Filters) ([]Order, int, error) {
	where := buildWhere(params, f)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders o JOIN customers c ON c.id = o.customer_id`+where.SQL(),
		where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	query := selectOrder + where.SQL() + db.OrderBy(sorts, params.SortBy, params.Desc(), "o.order_date DESC, o.id DESC") + page
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// Get loads an order with items and slips.
func (r *PGRepository) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE o.id = $1`, id))
	if err != nil {
		return Order{}, httpx.MapPgError(err)
	}
	if o.Items, err = r.items(ctx, id); err != nil {
		return Order{}, err
	}
	if o.Slips, err = r.slips(ctx, id); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PGRepository) items(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, promotion_id, product_name, quantity, price_per_unit, discount, is_freebie, box_number
		FROM order_items WHERE order_id = $1 ORDER BY box_number, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.PromotionID, &it.ProductName, &it.Quantity,
			&it.PricePerUnit, &it.Discount, &it.IsFreebie, &it.BoxNumber); err != nil {
			return nil, err
		}
		it.LineTotal = LineTotal(ItemInput{Quantity: it.Quantity, PricePerUnit: it.PricePerUnit, Discount: it.Discount, IsFreebie: it.IsFreebie})
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepository) slips(ctx context.Context, orderID string) ([]Slip, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, url, amount, transfer_date, created_at FROM order_slips WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slips := []Slip{}
	for rows.Next() {
		var s Slip
		if err := rows.Scan(&s.ID, &s.URL, &s.Amount, &s.TransferDate, &s.CreatedAt); err != nil {
			return nil, err
		}
		slips = append(slips, s)
	}
	return slips, rows.Err()
}

// Insert writes the order, its items and its tracking numbers.
func (r *PGRepository) Insert(ctx context.Context, o Order) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, company_id, customer_id, creator_id, order_date, delivery_date, recipient_name,
			shipping_street, shipping_subdistrict, shipping_district, shipping_province, shipping_postal_code,
			shipping_cost, bill_discount, total_amount, payment_method, payment_status, amount_paid, cod_amount,
			order_status, notes, sales_channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, o.CompanyID, o.CustomerID, o.CreatorID, o.OrderDate, o.DeliveryDate, o.RecipientName,
		o.ShippingAddress.Street, o.ShippingAddress.Subdistrict, o.ShippingAddress.District,
		o.ShippingAddress.Province, o.ShippingAddress.PostalCode,
		o.ShippingCost, o.BillDiscount, o.TotalAmount, o.PaymentMethod, o.PaymentStatus, o.AmountPaid, o.CODAmount,
		o.OrderStatus, o.Notes, o.SalesChannel)
	if err != nil {
		return httpx.MapPgError(err)
	}
	// A taken id skips the row instead of raising 23505, so the caller's
	// transaction stays usable for another attempt.
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", o.ID, httpx.ErrDuplicate)
	}
	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, promotion_id, product_name, quantity, price_per_unit,
				discount, is_freebie, box_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID, it.ProductID, it.PromotionID, it.ProductName, it.Quantity, it.PricePerUnit, it.Discount,
			it.IsFreebie, it.BoxNumber)
	}
	for _, n := range o.TrackingNumbers {
		batch.Queue(`INSERT INTO order_tracking_numbers (order_id, tracking_number) VALUES ($1, $2)`, o.ID, n)
	}
	return r.sendBatch(ctx, batch)
}

func (r *PGRepository) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	results := r.db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return httpx.MapPgError(err)
		}
	}
	return results.Close()
}

// Update writes status, payment and note fields.
func (r *PGRepository) Update(ctx context.Context, o Order) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET order_status = $2, payment_status = $3, amount_paid = $4, cod_amount = $5,
			notes = $6, sales_channel = $7, sale_counted = $8, updated_at = NOW()
		WHERE id = $1`,
		o.ID, o.OrderStatus, o.PaymentStatus, o.AmountPaid, o.CODAmount, o.Notes, o.SalesChannel, o.SaleCounted)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ReplaceTracking swaps the tracking number set.
func (r *PGRepository) ReplaceTracking(ctx context.Context, orderID string, numbers []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM order_tracking_numbers WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	if len(numbers) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO order_tracking_numbers (order_id, tracking_number)
		SELECT $1, n FROM unnest($2::text[]) AS n`, orderID, numbers)
	return httpx.MapPgError(err)
}

// AddTracking appends one tracking number; an existing pair is ignored.
func (r *PGRepository) AddTracking(ctx context.Context, orderID, number string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO order_tracking_numbers (order_id, tracking_number) VALUES ($1, $2)
		ON CONFLICT (order_id, tracking_number) DO NOTHING`, orderID, number)
	return httpx.MapPgError(err)
}

// TrackingIndex maps lower-cased order ids to the stored id and its tracking numbers.
func (r *PGRepository) TrackingIndex(ctx context.Context, orderIDs []string) (map[string]TrackingEntry, error) {
	lowered := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		lowered[i] = strings.ToLower(strings.TrimSpace(id))
	}
	rows, err := r.db.Query(ctx, `
		SELECT o.id, COALESCE(array_agg(t.tracking_number) FILTER (WHERE t.tracking_number IS NOT NULL), '{}')
		FROM orders o
		LEFT JOIN order_tracking_numbers t ON t.order_id = o.id
		WHERE LOWER(o.id) = ANY($1)
		GROUP BY o.id`, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	index := make(map[string]TrackingEntry, len(orderIDs))
	for rows.Next() {
		var e TrackingEntry
		if err := rows.Scan(&e.ID, &e.Existing); err != nil {
			return nil, err
		}
		index[strings.ToLower(e.ID)] = e
	}
	return index, rows.Err()
}

// AddSlip stores a transfer slip.
func (r *PGRepository) AddSlip(ctx context.Context, orderID string, s Slip, actorID int64) (Slip, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO order_slips (order_id, url, amount, transfer_date, created_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		orderID, s.URL, s.Amount, s.TransferDate, activities.Actor(actorID)).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return Slip{}, httpx.MapPgError(err)
	}
	return s, nil
}

// Customer loads the fields order side effects need, locking the row.
func (r *PGRepository) Customer(ctx context.Context, id int64) (CustomerRef, error) {
	var c CustomerRef
	err := r.db.QueryRow(ctx, `
		SELECT id, company_id, TRIM(first_name || ' ' || last_name), assigned_to, ownership_expires,
		       lifecycle_status, grade, total_purchases
		FROM customers WHERE id = $1 FOR UPDATE`, id).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.AssignedTo, &c.OwnershipExpires, &c.LifecycleStatus, &c.Grade, &c.TotalPurchases)
	if err != nil {
		return CustomerRef{}, httpx.MapPgError(err)
	}
	return c, nil
}

// CustomerIDByPhone resolves a customer within a company by normalised phone.
func (r *PGRepository) CustomerIDByPhone(ctx context.Context, companyID int64, phone string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM customers WHERE company_id = $1 AND phone = $2`, companyID, phone).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

// AssignCustomer gives an unassigned customer to the order creator.
func (r *PGRepository) AssignCustomer(ctx context.Context, customerID, userID int64, at, expires time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE customers SET assigned_to = $2, date_assigned = $3, ownership_expires = $4, updated_at = NOW()
		WHERE id = $1 AND assigned_to IS NULL`, customerID, userID, at, expires)
	return err
}

// SetLifecycle moves a customer to another lifecycle bucket.
func (r *PGRepository) SetLifecycle(ctx context.Context, customerID int64, lifecycle string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE customers SET lifecycle_status = $2, updated_at = NOW() WHERE id = $1`, customerID, lifecycle)
	return err
}

// ApplySale records a completed sale on the customer.
func (r *PGRepository) ApplySale(ctx context.Context, s Sale) error {
	_, err := r.db.Exec(ctx, `
		UPDATE customers SET total_purchases = total_purchases + $2, has_sold_before = TRUE, last_sale_date = $3,
			follow_up_count = 0, ownership_expires = $4, grade = $5, updated_at = NOW()
		WHERE id = $1`, s.CustomerID, s.Amount, s.At, s.OwnershipExpires, s.Grade)
	return err
}

// RecordActivity appends to the customer timeline on the same connection.
func (r *PGRepository) RecordActivity(ctx context.Context, a activities.Activity) error {
	return activities.Insert(ctx, r.db, a)
}
