package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhereNumbersPlaceholders(t *testing.T) {
	var w Where
	w.Add("company_id = ?", int64(3))
	w.Search("som", "name", "phone")
	w.Raw("deleted_at IS NULL")

	require.Equal(t, " WHERE company_id = $1 AND (name ILIKE $2 OR phone ILIKE $2) AND deleted_at IS NULL", w.SQL())
	require.Equal(t, []any{int64(3), "%som%"}, w.Args())

	clause, args := w.Page(20, 40)
	require.Equal(t, " LIMIT $3 OFFSET $4", clause)
	require.Equal(t, []any{int64(3), "%som%", 20, 40}, args)
	require.Len(t, w.Args(), 2)
}

func TestWhereEmpty(t *testing.T) {
	var w Where
	w.Search("", "name")
	require.Empty(t, w.SQL())
}

func TestOrderByWhitelist(t *testing.T) {
	allowed := map[string]string{"name": "c.name"}
	require.Equal(t, " ORDER BY c.name DESC", OrderBy(allowed, "name", true, "c.id DESC"))
	require.Equal(t, " ORDER BY c.id DESC", OrderBy(allowed, "name; DROP TABLE x", false, "c.id DESC"))
}
