package exports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Repository persists export history.
type Repository interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Finish(ctx context.Context, id int64, path string, rows int, at time.Time) error
	Fail(ctx context.Context, id int64, message string, at time.Time) error
	Get(ctx context.Context, id int64) (Record, error)
	List(ctx context.Context, params shared.ListParams, f Filters) ([]Record, int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectRecord = `SELECT id, company_id, kind, file_name, file_path, row_count, status, error,
	created_by, created_at, finished_at FROM export_history`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.CompanyID, &rec.Kind, &rec.FileName, &rec.FilePath, &rec.RowCount,
		&rec.Status, &rec.Error, &rec.CreatedBy, &rec.CreatedAt, &rec.FinishedAt)
	return rec, err
}

func (r *repository) Create(ctx context.Context, rec Record) (Record, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO export_history (company_id, kind, file_name, status, created_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		rec.CompanyID, rec.Kind, rec.FileName, StatusPending, rec.CreatedBy).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return Record{}, httpx.MapPgError(err)
	}
	rec.Status = StatusPending
	return rec, nil
}

func (r *repository) Finish(ctx context.Context, id int64, path string, rows int, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE export_history SET status = $2, file_path = $3, row_count = $4, finished_at = $5
		WHERE id = $1`, id, StatusDone, path, rows, at)
	return err
}

func (r *repository) Fail(ctx context.Context, id int64, message string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE export_history SET status = $2, error = $3, finished_at = $4
		WHERE id = $1`, id, StatusFailed, message, at)
	return err
}

func (r *repository) Get(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, selectRecord+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, httpx.ErrNotFound
	}
	return rec, err
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"fileName":  "file_name",
	"status":    "status",
}

func (r *repository) List(ctx context.Context, params shared.ListParams, f Filters) ([]Record, int, error) {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("company_id = ?", *f.CompanyID)
	}
	if f.Kind != "" {
		where.Add("kind = ?", f.Kind)
	}
	if f.Status != "" {
		where.Add("status = ?", f.Status)
	}
	if params.From != nil {
		where.Add("created_at >= ?", *params.From)
	}
	if params.To != nil {
		where.Add("created_at < ?", *params.To)
	}
	where.Search(params.Search, "file_name")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM export_history`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	rows, err := r.pool.Query(ctx, selectRecord+where.SQL()+
		db.OrderBy(sortColumns, params.SortBy, params.Desc(), "created_at DESC, id DESC")+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}
