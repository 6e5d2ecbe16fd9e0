package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mini-erp/telecrm/internal/shared"
)

const dateLayout = "2006-01-02"

type locationKey struct{}

// WithLocation makes loc the time zone in which query-string dates are read.
func WithLocation(loc *time.Location) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loc != nil {
				r = r.WithContext(context.WithValue(r.Context(), locationKey{}, loc))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Location returns the business time zone attached to r, or time.Local.
func Location(r *http.Request) *time.Location {
	if loc, ok := r.Context().Value(locationKey{}).(*time.Location); ok {
		return loc
	}
	return time.Local
}

// Now is the current time in the request's business time zone.
func Now(r *http.Request) time.Time {
	return time.Now().In(Location(r))
}

// ParseListParams reads page, pageSize, search, sort and the date window from the query string.
func ParseListParams(r *http.Request) (shared.ListParams, error) {
	q := r.URL.Query()
	params := shared.ListParams{
		Page:    atoiDefault(q.Get("page"), 1),
		Search:  strings.TrimSpace(q.Get("search")),
		SortBy:  strings.TrimSpace(q.Get("sort")),
		SortDir: strings.ToLower(strings.TrimSpace(q.Get("dir"))),
	}
	size := q.Get("pageSize")
	if size == "" {
		size = q.Get("limit")
	}
	params.PageSize = atoiDefault(size, shared.DefaultPageSize)
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = shared.DefaultPageSize
	}
	if params.PageSize > shared.MaxPageSize {
		params.PageSize = shared.MaxPageSize
	}
	if params.SortDir != "asc" && params.SortDir != "desc" {
		params.SortDir = ""
	}

	from, to, err := ParseDateWindow(r)
	if err != nil {
		return params, err
	}
	params.From, params.To = from, to
	return params, nil
}

// ParseDateWindow resolves from/to or month/year into a half-open range in
// the request's business time zone.
func ParseDateWindow(r *http.Request) (*time.Time, *time.Time, error) {
	return ParseDateWindowIn(r, Location(r))
}

// ParseDateWindowIn is ParseDateWindow with an explicit time zone.
func ParseDateWindowIn(r *http.Request, loc *time.Location) (*time.Time, *time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	q := r.URL.Query()
	if m, y := q.Get("month"), q.Get("year"); m != "" && y != "" {
		month, err1 := strconv.Atoi(m)
		year, err2 := strconv.Atoi(y)
		if err1 != nil || err2 != nil || month < 1 || month > 12 {
			return nil, nil, fmt.Errorf("%w: invalid month/year", ErrValidation)
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 1, 0)
		return &start, &end, nil
	}
	var from, to *time.Time
	if raw := q.Get("from"); raw != "" {
		t, err := parseInstant(raw, false, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid from", ErrValidation)
		}
		from = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := parseInstant(raw, true, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid to", ErrValidation)
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("%w: to is before from", ErrValidation)
	}
	return from, to, nil
}

// Int64Query returns a positive int64 query parameter or nil.
func Int64Query(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%w: invalid %s", ErrValidation, name)
	}
	return &v, nil
}

// BoolQuery returns a bool query parameter or nil.
func BoolQuery(r *http.Request, name string) *bool {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	v := raw == "true" || raw == "1"
	return &v
}

// StringQuery returns a trimmed query parameter.
func StringQuery(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

func parseInstant(raw string, endOfDay bool, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		if endOfDay {
			return t.AddDate(0, 0, 1), nil
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
