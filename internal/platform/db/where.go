package db

import (
	"fmt"
	"strings"
)

// Where accumulates AND-ed predicates with positional arguments.
type Where struct {
	conds []string
	args  []any
}

// Add appends a predicate. Every "?" in expr is bound to the same argument.
func (w *Where) Add(expr string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(expr, "?", fmt.Sprintf("$%d", len(w.args))))
}

// Raw appends a predicate without arguments.
func (w *Where) Raw(expr string) {
	w.conds = append(w.conds, expr)
}

// Search adds an ILIKE predicate across the given columns.
func (w *Where) Search(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + " ILIKE ?"
	}
	w.Add("("+strings.Join(parts, " OR ")+")", "%"+term+"%")
}

// SQL renders the WHERE clause, or an empty string.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the bound arguments.
func (w *Where) Args() []any {
	return w.args
}

// Page appends LIMIT/OFFSET placeholders and returns the clause with full args.
func (w *Where) Page(limit, offset int) (string, []any) {
	n := len(w.args)
	args := append(append([]any{}, w.args...), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

// OrderBy whitelists sort columns, falling back to def.
func OrderBy(allowed map[string]string, sortBy string, desc bool, def string) string {
	col, ok := allowed[sortBy]
	if !ok {
		return " ORDER BY " + def
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir
}
