package promotions

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Repository persists promotions with their items.
type Repository interface {
	List(ctx context.Context, params shared.ListParams, f Filters) ([]Promotion, int, error)
	Get(ctx context.Context, id int64) (Promotion, error)
	ActiveOn(ctx context.Context, companyID *int64, day time.Time) ([]Promotion, error)
	Create(ctx context.Context, p Promotion) (int64, error)
	Update(ctx context.Context, id int64, p Promotion) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, company_id, sku, name, description, is_active, start_date, end_date, created_at, updated_at`

var sorts = map[string]string{
	"name":      "name",
	"sku":       "sku",
	"startDate": "start_date",
	"endDate":   "end_date",
	"createdAt": "created_at",
}

func scan(row pgx.Row) (Promotion, error) {
	var p Promotion
	err := row.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Description, &p.IsActive,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, params shared.ListParams, f Filters) ([]Promotion, int, error) {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("company_id = ?", *f.CompanyID)
	}
	if f.IsActive != nil {
		where.Add("is_active = ?", *f.IsActive)
	}
	where.Search(params.Search, "name", "sku", "description")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM promotions`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	out, err := r.query(ctx, `SELECT `+columns+` FROM promotions`+where.SQL()+
		db.OrderBy(sorts, params.SortBy, params.Desc(), "created_at DESC, id DESC")+page, args...)
	return out, total, err
}

func (r *repository) ActiveOn(ctx context.Context, companyID *int64, day time.Time) ([]Promotion, error) {
	var where db.Where
	where.Raw("is_active")
	where.Add("(start_date IS NULL OR start_date <= ?::date)", day)
	where.Add("(end_date IS NULL OR end_date >= ?::date)", day)
	if companyID != nil {
		where.Add("company_id = ?", *companyID)
	}
	return r.query(ctx, `SELECT `+columns+` FROM promotions`+where.SQL()+` ORDER BY name`, where.Args()...)
}

func (r *repository) query(ctx context.Context, sql string, args ...any) ([]Promotion, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out := []Promotion{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, r.attachItems(ctx, out)
}

func (r *repository) attachItems(ctx context.Context, promos []Promotion) error {
	if len(promos) == 0 {
		return nil
	}
	ids := make([]int64, len(promos))
	index := make(map[int64]int, len(promos))
	for i, p := range promos {
		ids[i] = p.ID
		index[p.ID] = i
		promos[i].Items = []Item{}
	}
	rows, err := r.pool.Query(ctx, `
		SELECT pi.promotion_id, pi.id, pi.product_id, pr.sku, pr.name, pr.price, pi.quantity, pi.is_freebie, pi.price_override
		FROM promotion_items pi JOIN products pr ON pr.id = pi.product_id
		WHERE pi.promotion_id = ANY($1) ORDER BY pi.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var promoID int64
		var it Item
		if err := rows.Scan(&promoID, &it.ID, &it.ProductID, &it.ProductSKU, &it.ProductName, &it.ProductPrice,
			&it.Quantity, &it.IsFreebie, &it.PriceOverride); err != nil {
			return err
		}
		i := index[promoID]
		promos[i].Items = append(promos[i].Items, it)
	}
	return rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Promotion, error) {
	out, err := r.query(ctx, `SELECT `+columns+` FROM promotions WHERE id = $1`, id)
	if err != nil {
		return Promotion{}, err
	}
	if len(out) == 0 {
		return Promotion{}, httpx.ErrNotFound
	}
	return out[0], nil
}

func (r *repository) Create(ctx context.Context, p Promotion) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO promotions (company_id, sku, name, description, is_active, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			p.CompanyID, p.SKU, p.Name, p.Description, p.IsActive, p.StartDate, p.EndDate).Scan(&id); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, p.Items)
	})
	return id, httpx.MapPgError(err)
}

func (r *repository) Update(ctx context.Context, id int64, p Promotion) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE promotions SET sku = $2, name = $3, description = $4, is_active = $5, start_date = $6,
				end_date = $7, updated_at = NOW()
			WHERE id = $1`, id, p.SKU, p.Name, p.Description, p.IsActive, p.StartDate, p.EndDate)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM promotion_items WHERE promotion_id = $1`, id); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, p.Items)
	})
	return httpx.MapPgError(err)
}

func insertItems(ctx context.Context, tx pgx.Tx, promotionID int64, items []Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO promotion_items (promotion_id, product_id, quantity, is_freebie, price_override)
			VALUES ($1, $2, $3, $4, $5)`, promotionID, it.ProductID, it.Quantity, it.IsFreebie, it.PriceOverride)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE promotions SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
