package attendance

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mini-erp/telecrm/internal/csvio"
	"github.com/mini-erp/telecrm/internal/xlsx"
)

// SessionGap is the longest silence that still continues a session.
const SessionGap = 5 * time.Minute

// Throttle limits how often a user's heartbeat reaches the database.
type Throttle interface {
	Allow(ctx context.Context, userID int64, now time.Time) (bool, error)
}

// Service records heartbeats and builds time sheets.
type Service struct {
	repo     Repository
	throttle Throttle
	loc      *time.Location
	now      func() time.Time
}

// NewService wires the service. A nil throttle admits every heartbeat and a
// nil location means time.Local.
func NewService(repo Repository, throttle Throttle, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, throttle: throttle, loc: loc, now: time.Now}
}

// Heartbeat extends the user's current session, or starts a new one when the
// previous beat is SessionGap or more ago.
func (s *Service) Heartbeat(ctx context.Context, userID int64) (HeartbeatResult, error) {
	now := s.now()
	if s.throttle != nil {
		ok, err := s.throttle.Allow(ctx, userID, now)
		if err != nil {
			return HeartbeatResult{}, err
		}
		if !ok {
			return HeartbeatResult{}, nil
		}
	}
	last, err := s.repo.Latest(ctx, userID)
	switch {
	case errors.Is(err, ErrNoSession):
	case err != nil:
		return HeartbeatResult{}, err
	case now.Sub(last.LastSeenAt) < SessionGap:
		if err := s.repo.Extend(ctx, last.ID, now); err != nil {
			return HeartbeatResult{}, err
		}
		if now.After(last.LastSeenAt) {
			last.LastSeenAt = now
		}
		return HeartbeatResult{Recorded: true, Session: &last}, nil
	}
	started, err := s.repo.Start(ctx, userID, now)
	if err != nil {
		return HeartbeatResult{}, err
	}
	return HeartbeatResult{Recorded: true, Session: &started}, nil
}

// Report builds the time sheet for a month.
func (s *Service) Report(ctx context.Context, companyID *int64, year, month int) (Report, error) {
	from, to := MonthBounds(year, month, s.loc)
	members, err := s.repo.Members(ctx, companyID)
	if err != nil {
		return Report{}, err
	}
	sessions, err := s.repo.Sessions(ctx, companyID, from, to)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(year, month, s.loc, members, sessions), nil
}

// WriteCSV writes the time sheet as CSV.
func WriteCSV(r Report, out io.Writer) error {
	return csvio.NewWriter(out).WriteAll(Header(r.DaysInMonth), Rows(r))
}

// WriteXLSX writes the time sheet as a single-sheet workbook.
func WriteXLSX(r Report, out io.Writer) error {
	rows := Rows(r)
	cells := make([][]any, len(rows))
	for i, row := range rows {
		cells[i] = make([]any, len(row))
		for j, v := range row {
			cells[i][j] = v
		}
		cells[i][len(row)-1] = r.workDaysAt(i)
	}
	return xlsx.Write(out, xlsx.Sheet{Name: "Attendance", Header: Header(r.DaysInMonth), Rows: cells, Widths: map[int]float64{0: 24, 1: 16}})
}

// workDaysAt returns the work days of the i-th row in Rows order.
func (r Report) workDaysAt(i int) int {
	for _, role := range r.Roles {
		if i < len(r.Data[role]) {
			return r.Data[role][i].WorkDays
		}
		i -= len(r.Data[role])
	}
	return 0
}
