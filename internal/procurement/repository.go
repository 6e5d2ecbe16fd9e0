package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/inventory"
	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Repository provides Postgres backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
	return httpx.MapPgError(err)
}

const columns = `p.id, p.company_id, p.purchase_number, p.supplier_id, s.name, p.warehouse_id, w.name, p.purchase_date,
	p.expected_delivery_date, p.received_date, p.status, p.payment_status, p.paid_amount, p.total_amount, p.notes,
	p.created_by, p.created_at, p.updated_at`

const from = ` FROM purchases p
	JOIN suppliers s ON s.id = p.supplier_id
	JOIN warehouses w ON w.id = p.warehouse_id`

var sorts = map[string]string{
	"purchaseNumber": "p.purchase_number",
	"purchaseDate":   "p.purchase_date",
	"totalAmount":    "p.total_amount",
	"status":         "p.status",
	"createdAt":      "p.created_at",
}

func scan(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.CompanyID, &p.PurchaseNumber, &p.SupplierID, &p.SupplierName, &p.WarehouseID,
		&p.WarehouseName, &p.PurchaseDate, &p.ExpectedDeliveryDate, &p.ReceivedDate, &p.Status, &p.PaymentStatus,
		&p.PaidAmount, &p.TotalAmount, &p.Notes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) List(ctx context.Context, params shared.ListParams, f Filters) ([]Purchase, int, error) {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("p.company_id = ?", *f.CompanyID)
	}
	if f.SupplierID != nil {
		where.Add("p.supplier_id = ?", *f.SupplierID)
	}
	if f.WarehouseID != nil {
		where.Add("p.warehouse_id = ?", *f.WarehouseID)
	}
	if f.Status != "" {
		where.Add("p.status = ?", f.Status)
	}
	if f.From != nil {
		where.Add("p.purchase_date >= ?::date", *f.From)
	}
	if f.To != nil {
		where.Add("p.purchase_date < ?::date", *f.To)
	}
	where.Search(params.Search, "p.purchase_number", "p.notes", "s.name")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+columns+from+where.SQL()+
		db.OrderBy(sorts, params.SortBy, params.Desc(), "p.purchase_date DESC, p.id DESC")+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Purchase{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		p.Items = []Item{}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Purchase, error) {
	return get(ctx, r.pool, id, "")
}

func get(ctx context.Context, q db.DBTX, id int64, lock string) (Purchase, error) {
	p, err := scan(q.QueryRow(ctx, `SELECT `+columns+from+` WHERE p.id = $1`+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, httpx.ErrNotFound
	}
	if err != nil {
		return Purchase{}, err
	}
	rows, err := q.Query(ctx, `
		SELECT i.id, i.purchase_id, i.product_id, pr.sku, pr.name, i.quantity, i.received_quantity, i.unit_cost, i.lot_number
		FROM purchase_items i JOIN products pr ON pr.id = i.product_id
		WHERE i.purchase_id = $1 ORDER BY i.id`, id)
	if err != nil {
		return Purchase{}, err
	}
	defer rows.Close()
	p.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.ProductID, &it.ProductSKU, &it.ProductName,
			&it.Quantity, &it.ReceivedQuantity, &it.UnitCost, &it.LotNumber); err != nil {
			return Purchase{}, err
		}
		p.Items = append(p.Items, it)
	}
	return p, rows.Err()
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Purchase, error) {
	return get(ctx, t.tx, id, " FOR UPDATE OF p")
}

// LastSequence returns the highest sequence issued under prefix. The
// advisory lock serialises numbering for the day until the transaction ends.
func (t *txRepo) LastSequence(ctx context.Context, prefix string) (int, error) {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, prefix); err != nil {
		return 0, err
	}
	var seq int
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(SUBSTRING(purchase_number FROM LENGTH($1) + 1)::int), 0)
		FROM purchases
		WHERE purchase_number LIKE $1 || '%' AND purchase_number ~ '^PO-[0-9]{8}-[0-9]{4}$'`, prefix).Scan(&seq)
	return seq, err
}

func (t *txRepo) Insert(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchases (company_id, purchase_number, supplier_id, warehouse_id, purchase_date,
			expected_delivery_date, status, payment_status, paid_amount, total_amount, notes, created_by)
		VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8, $9, $10, $11, $12)
		RETURNING id`, p.CompanyID, p.PurchaseNumber, p.SupplierID, p.WarehouseID, p.PurchaseDate,
		p.ExpectedDeliveryDate, p.Status, p.PaymentStatus, p.PaidAmount, p.TotalAmount, p.Notes, p.CreatedBy).Scan(&id)
	if err != nil {
		return 0, err
	}
	batch := &pgx.Batch{}
	for _, it := range p.Items {
		batch.Queue(`INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost, lot_number)
			VALUES ($1, $2, $3, $4, $5)`, id, it.ProductID, it.Quantity, it.UnitCost, it.LotNumber)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *txRepo) AddReceived(ctx context.Context, itemID int64, qty int) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_items SET received_quantity = received_quantity + $2 WHERE id = $1`, itemID, qty)
	return err
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status string, receivedDate *time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchases SET status = $2, received_date = $3::date, updated_at = NOW() WHERE id = $1`,
		id, status, receivedDate)
	return err
}

func (t *txRepo) UpdatePayment(ctx context.Context, id int64, status string, paid decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchases SET payment_status = $2, paid_amount = $3, updated_at = NOW() WHERE id = $1`,
		id, status, paid)
	return err
}

func (t *txRepo) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(t.tx)
}
