package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
)

// Repository stores attendance sessions.
type Repository interface {
	Latest(ctx context.Context, userID int64) (Session, error)
	Start(ctx context.Context, userID int64, at time.Time) (Session, error)
	Extend(ctx context.Context, id int64, at time.Time) error
	Members(ctx context.Context, companyID *int64) ([]Member, error)
	Sessions(ctx context.Context, companyID *int64, from, to time.Time) ([]Session, error)
}

// ErrNoSession is returned by Latest when the user has no session yet.
var ErrNoSession = errors.New("attendance: no session")

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Latest(ctx context.Context, userID int64) (Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, started_at, last_seen_at FROM attendance_sessions
		WHERE user_id = $1 ORDER BY last_seen_at DESC LIMIT 1`, userID).
		Scan(&s.ID, &s.UserID, &s.StartedAt, &s.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	return s, err
}

func (r *repository) Start(ctx context.Context, userID int64, at time.Time) (Session, error) {
	s := Session{UserID: userID, StartedAt: at, LastSeenAt: at}
	err := r.pool.QueryRow(ctx, `INSERT INTO attendance_sessions (user_id, started_at, last_seen_at)
		VALUES ($1, $2, $2) RETURNING id`, userID, at).Scan(&s.ID)
	return s, err
}

func (r *repository) Extend(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE attendance_sessions SET last_seen_at = GREATEST(last_seen_at, $2) WHERE id = $1`, id, at)
	return err
}

func (r *repository) Members(ctx context.Context, companyID *int64) ([]Member, error) {
	var where db.Where
	where.Raw("u.status = 'active'")
	if companyID != nil {
		where.Add("u.company_id = ?", *companyID)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, TRIM(u.first_name || ' ' || u.last_name), ro.name
		FROM users u JOIN roles ro ON ro.id = u.role_id`+where.SQL()+` ORDER BY ro.name, u.first_name`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Name, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) Sessions(ctx context.Context, companyID *int64, from, to time.Time) ([]Session, error) {
	var where db.Where
	where.Add("s.started_at < ?", to)
	where.Add("s.last_seen_at > ?", from)
	if companyID != nil {
		where.Add("u.company_id = ?", *companyID)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.user_id, s.started_at, s.last_seen_at
		FROM attendance_sessions s JOIN users u ON u.id = s.user_id`+where.SQL()+` ORDER BY s.started_at`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.StartedAt, &s.LastSeenAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
