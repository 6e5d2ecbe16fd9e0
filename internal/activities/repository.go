package activities

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Insert writes an entry using q, which may be a pool or a transaction.
// A zero ActorID is stored as NULL for system actions.
func Insert(ctx context.Context, q db.DBTX, a Activity) error {
	_, err := q.Exec(ctx,
		`INSERT INTO activities (customer_id, type, description, actor_id) VALUES ($1, $2, $3, $4)`,
		a.CustomerID, string(a.Type), a.Description, a.ActorID)
	return err
}

// Repository reads and writes activities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record implements Recorder outside a transaction.
func (r *Repository) Record(ctx context.Context, a Activity) error {
	return Insert(ctx, r.pool, a)
}

// List returns a page of activities, newest first.
func (r *Repository) List(ctx context.Context, params shared.ListParams, f Filters) ([]Activity, int, error) {
	var where db.Where
	if f.CustomerID != nil {
		where.Add("a.customer_id = ?", *f.CustomerID)
	}
	if f.Type != "" {
		where.Add("a.type = ?", f.Type)
	}
	if params.From != nil {
		where.Add("a.created_at >= ?", *params.From)
	}
	if params.To != nil {
		where.Add("a.created_at < ?", *params.To)
	}
	where.Search(params.Search, "a.description")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities a`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.customer_id, a.type, a.description, a.actor_id,
		       COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), 'System'), a.created_at
		FROM activities a
		LEFT JOIN users u ON u.id = a.actor_id`+where.SQL()+` ORDER BY a.created_at DESC, a.id DESC`+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Activity{}
	for rows.Next() {
		var a Activity
		var typ string
		if err := rows.Scan(&a.ID, &a.CustomerID, &typ, &a.Description, &a.ActorID, &a.ActorName, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		a.Type = Type(typ)
		out = append(out, a)
	}
	return out, total, rows.Err()
}
