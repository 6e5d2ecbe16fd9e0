package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q db.DBTX
}

// NewTxRepository exposes the movement operations on an open transaction so
// other modules can post stock inside their own unit of work.
func NewTxRepository(q db.DBTX) TxRepository {
	return &txRepo{q: q}
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

var stockSorts = map[string]string{
	"product":   "p.name",
	"sku":       "p.sku",
	"warehouse": "w.name",
	"quantity":  "s.quantity",
	"updatedAt": "s.updated_at",
}

func (r *Repository) ListStocks(ctx context.Context, params shared.ListParams, f StockFilters) ([]Stock, int, error) {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("w.company_id = ?", *f.CompanyID)
	}
	if f.WarehouseID != nil {
		where.Add("s.warehouse_id = ?", *f.WarehouseID)
	}
	if f.ProductID != nil {
		where.Add("s.product_id = ?", *f.ProductID)
	}
	search := f.Search
	if search == "" {
		search = params.Search
	}
	where.Search(search, "p.sku", "p.name", "s.lot_number")

	const from = ` FROM warehouse_stocks s
		JOIN warehouses w ON w.id = s.warehouse_id
		JOIN products p ON p.id = s.product_id`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.warehouse_id, w.name, s.product_id, p.sku, p.name, s.lot_number,
		       s.quantity, s.reserved_quantity, s.updated_at`+from+where.SQL()+
		db.OrderBy(stockSorts, params.SortBy, params.Desc(), "p.name, w.name, s.lot_number")+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Stock{}
	for rows.Next() {
		var s Stock
		if err := rows.Scan(&s.ID, &s.WarehouseID, &s.WarehouseName, &s.ProductID, &s.ProductSKU, &s.ProductName,
			&s.LotNumber, &s.Quantity, &s.Reserved, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

const lotColumns = `l.id, l.lot_number, l.product_id, p.sku, p.name, l.warehouse_id, w.name, l.purchase_id, l.supplier_id,
	l.purchase_date, l.expiry_date, l.quantity_received, l.quantity_remaining, l.unit_cost, l.status, l.notes`

const lotFrom = ` FROM product_lots l
	JOIN products p ON p.id = l.product_id
	JOIN warehouses w ON w.id = l.warehouse_id`

var lotSorts = map[string]string{
	"lotNumber":    "l.lot_number",
	"expiryDate":   "l.expiry_date",
	"purchaseDate": "l.purchase_date",
	"remaining":    "l.quantity_remaining",
	"product":      "p.name",
}

func scanLot(row pgx.Row) (Lot, error) {
	var l Lot
	err := row.Scan(&l.ID, &l.LotNumber, &l.ProductID, &l.ProductSKU, &l.ProductName, &l.WarehouseID, &l.WarehouseName,
		&l.PurchaseID, &l.SupplierID, &l.PurchaseDate, &l.ExpiryDate, &l.QuantityReceived, &l.QuantityRemaining,
		&l.UnitCost, &l.Status, &l.Notes)
	return l, err
}

func lotWhere(f LotFilters, search string, today time.Time) db.Where {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("w.company_id = ?", *f.CompanyID)
	}
	if f.WarehouseID != nil {
		where.Add("l.warehouse_id = ?", *f.WarehouseID)
	}
	if f.ProductID != nil {
		where.Add("l.product_id = ?", *f.ProductID)
	}
	switch f.Status {
	case LotDepleted:
		where.Raw("l.quantity_remaining <= 0")
	case LotExpired:
		where.Raw("l.quantity_remaining > 0")
		where.Add("l.expiry_date < ?::date", today)
	case LotActive:
		where.Raw("l.quantity_remaining > 0")
		where.Add("(l.expiry_date IS NULL OR l.expiry_date >= ?::date)", today)
	}
	if f.ExpiringWithinDays != nil {
		where.Add("l.expiry_date >= ?::date", today)
		where.Add("l.expiry_date <= ?::date", today.AddDate(0, 0, *f.ExpiringWithinDays))
	}
	where.Search(search, "l.lot_number", "p.sku", "p.name")
	return where
}

func (r *Repository) ListLots(ctx context.Context, params shared.ListParams, f LotFilters, today time.Time) ([]Lot, int, error) {
	where := lotWhere(f, params.Search, today)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+lotFrom+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	out, err := r.queryLots(ctx, `SELECT `+lotColumns+lotFrom+where.SQL()+
		db.OrderBy(lotSorts, params.SortBy, params.Desc(), "l.expiry_date NULLS LAST, l.id")+page, args...)
	return out, total, err
}

func (r *Repository) AllLots(ctx context.Context, f LotFilters, today time.Time) ([]Lot, error) {
	where := lotWhere(f, "", today)
	return r.queryLots(ctx, `SELECT `+lotColumns+lotFrom+where.SQL(), where.Args()...)
}

func (r *Repository) queryLots(ctx context.Context, sql string, args ...any) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Lot{}
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

var movementSorts = map[string]string{
	"createdAt": "m.created_at",
	"quantity":  "m.quantity",
	"type":      "m.movement_type",
}

func (r *Repository) ListMovements(ctx context.Context, params shared.ListParams, f MovementFilters) ([]Movement, int, error) {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("w.company_id = ?", *f.CompanyID)
	}
	if f.WarehouseID != nil {
		where.Add("m.warehouse_id = ?", *f.WarehouseID)
	}
	if f.ProductID != nil {
		where.Add("m.product_id = ?", *f.ProductID)
	}
	if f.Product != "" {
		where.Search(f.Product, "p.sku", "p.name")
	}
	if f.Type != "" {
		where.Add("m.movement_type = ?", strings.ToUpper(f.Type))
	}
	if f.From != nil {
		where.Add("m.created_at >= ?", *f.From)
	}
	if f.To != nil {
		where.Add("m.created_at < ?", *f.To)
	}
	where.Search(params.Search, "m.reference_id", "m.reason", "m.lot_number")

	const from = ` FROM stock_movements m
		JOIN warehouses w ON w.id = m.warehouse_id
		JOIN products p ON p.id = m.product_id
		LEFT JOIN users u ON u.id = m.created_by`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.warehouse_id, w.name, m.product_id, p.sku, p.name, m.lot_number, m.movement_type,
		       m.quantity, m.reference_type, m.reference_id, m.reason,
		       m.created_by, COALESCE(u.first_name || ' ' || u.last_name, ''), m.created_at`+from+where.SQL()+
		db.OrderBy(movementSorts, params.SortBy, params.Desc(), "m.created_at DESC, m.id DESC")+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.WarehouseID, &m.WarehouseName, &m.ProductID, &m.ProductSKU, &m.ProductName,
			&m.LotNumber, &m.Type, &m.Quantity, &m.ReferenceType, &m.ReferenceID, &m.Reason,
			&m.CreatedBy, &m.CreatedByName, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *Repository) ExpireLots(ctx context.Context, today time.Time) (int64, int64, error) {
	var expired, depleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE product_lots SET status = $1, updated_at = NOW()
			WHERE status <> $1 AND quantity_remaining <= 0`, LotDepleted)
		if err != nil {
			return err
		}
		depleted = tag.RowsAffected()
		tag, err = tx.Exec(ctx, `UPDATE product_lots SET status = $1, updated_at = NOW()
			WHERE status = $2 AND quantity_remaining > 0 AND expiry_date < $3::date`, LotExpired, LotActive, today)
		if err != nil {
			return err
		}
		expired = tag.RowsAffected()
		return nil
	})
	return expired, depleted, err
}

func (r *txRepo) LotForUpdate(ctx context.Context, warehouseID, productID int64, lotNumber string) (Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+lotFrom+`
		WHERE l.warehouse_id = $1 AND l.product_id = $2 AND l.lot_number = $3
		FOR UPDATE OF l`, warehouseID, productID, lotNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lot{}, ErrLotNotFound
	}
	return l, err
}

func (r *txRepo) SaveLot(ctx context.Context, l Lot) (int64, error) {
	if l.ID != 0 {
		_, err := r.q.Exec(ctx, `UPDATE product_lots SET purchase_id = $2, supplier_id = $3, purchase_date = $4,
			expiry_date = $5, quantity_received = $6, quantity_remaining = $7, unit_cost = $8, status = $9, updated_at = NOW()
			WHERE id = $1`, l.ID, l.PurchaseID, l.SupplierID, l.PurchaseDate, l.ExpiryDate,
			l.QuantityReceived, l.QuantityRemaining, l.UnitCost, l.Status)
		return l.ID, err
	}
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO product_lots (lot_number, product_id, warehouse_id, purchase_id, supplier_id,
			purchase_date, expiry_date, quantity_received, quantity_remaining, unit_cost, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`, l.LotNumber, l.ProductID, l.WarehouseID, l.PurchaseID, l.SupplierID, l.PurchaseDate,
		l.ExpiryDate, l.QuantityReceived, l.QuantityRemaining, l.UnitCost, l.Status, l.Notes).Scan(&id)
	return id, err
}

func (r *txRepo) StockForUpdate(ctx context.Context, warehouseID, productID int64, lotNumber string) (Stock, error) {
	var s Stock
	err := r.q.QueryRow(ctx, `SELECT id, warehouse_id, product_id, lot_number, quantity, reserved_quantity, updated_at
		FROM warehouse_stocks
		WHERE warehouse_id = $1 AND product_id = $2 AND lot_number = $3
		FOR UPDATE`, warehouseID, productID, lotNumber).
		Scan(&s.ID, &s.WarehouseID, &s.ProductID, &s.LotNumber, &s.Quantity, &s.Reserved, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stock{}, ErrStockNotFound
	}
	return s, err
}

func (r *txRepo) SaveStock(ctx context.Context, s Stock) error {
	if s.ID != 0 {
		_, err := r.q.Exec(ctx, `UPDATE warehouse_stocks SET quantity = $2, reserved_quantity = $3, updated_at = NOW()
			WHERE id = $1`, s.ID, s.Quantity, s.Reserved)
		return err
	}
	_, err := r.q.Exec(ctx, `INSERT INTO warehouse_stocks (warehouse_id, product_id, lot_number, quantity, reserved_quantity)
		VALUES ($1, $2, $3, $4, $5)`, s.WarehouseID, s.ProductID, s.LotNumber, s.Quantity, s.Reserved)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO stock_movements (warehouse_id, product_id, lot_number, movement_type, quantity,
			reference_type, reference_id, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`, m.WarehouseID, m.ProductID, m.LotNumber, m.Type, m.Quantity,
		m.ReferenceType, m.ReferenceID, m.Reason, m.CreatedBy, m.CreatedAt).Scan(&id)
	return id, err
}
