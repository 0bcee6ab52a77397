package storage

import (
	"strconv"
	"strings"

	"salesdash/internal/core"
)

const selectColumns = "id, title, description, price, category, sold, date_of_sale, images"

// dialect captures the differences between the SQL backends. Both share one
// WHERE builder so a Filter means the same thing everywhere.
type dialect struct {
	placeholder func(n int) string
	contains    func(column, ph string) string
	boolArg     func(b bool) any
	noLimit     any
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	contains:    func(column, ph string) string { return "instr(" + column + ", " + ph + ") > 0" },
	boolArg: func(b bool) any {
		if b {
			return 1
		}
		return 0
	},
	noLimit: -1,
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	contains:    func(column, ph string) string { return "strpos(" + column + ", " + ph + ") > 0" },
	boolArg:     func(b bool) any { return b },
	noLimit:     nil,
}

var foldedColumns = map[string]string{
	core.FieldTitle:       "title_fold",
	core.FieldDescription: "description_fold",
}

type queryBuilder struct {
	d    dialect
	args []any
}

func (q *queryBuilder) arg(v any) string {
	q.args = append(q.args, v)
	return q.d.placeholder(len(q.args))
}

// where renders f as a WHERE clause (empty when f has no constraints).
func (q *queryBuilder) where(f core.Filter) string {
	var conds []string
	if f.Month != 0 {
		conds = append(conds, "sale_month = "+q.arg(f.Month))
	}
	if f.Sold != nil {
		conds = append(conds, "sold = "+q.arg(q.d.boolArg(*f.Sold)))
	}
	if b := f.PriceRange; b != nil {
		lo, inclusive := b.Lower()
		op := " > "
		if inclusive {
			op = " >= "
		}
		conds = append(conds, "price"+op+q.arg(lo))
		if !b.Unbounded() {
			conds = append(conds, "price <= "+q.arg(b.Max))
		}
	}
	if len(f.AnyOf) > 0 {
		var ors []string
		for _, p := range f.AnyOf {
			switch p.Kind {
			case core.TextContains:
				col, ok := foldedColumns[p.Field]
				if !ok {
					continue
				}
				ors = append(ors, q.d.contains(col, q.arg(p.Text)))
			case core.PriceEquals:
				ors = append(ors, "price = "+q.arg(p.Price))
			}
		}
		if len(ors) == 0 {
			ors = append(ors, "1 = 0")
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (q *queryBuilder) limit(skip, limit int64) string {
	var l any = q.d.noLimit
	if limit > 0 {
		l = limit
	}
	if skip < 0 {
		skip = 0
	}
	return " LIMIT " + q.arg(l) + " OFFSET " + q.arg(skip)
}

func findQuery(d dialect, f core.Filter, skip, limit int64) (string, []any) {
	q := &queryBuilder{d: d}
	sql := "SELECT " + selectColumns + " FROM transactions" + q.where(f) + " ORDER BY row_id" + q.limit(skip, limit)
	return sql, q.args
}

func countQuery(d dialect, f core.Filter) (string, []any) {
	q := &queryBuilder{d: d}
	return "SELECT COUNT(*) FROM transactions" + q.where(f), q.args
}

func sumPriceQuery(d dialect, f core.Filter) (string, []any) {
	q := &queryBuilder{d: d}
	return "SELECT COALESCE(SUM(price), 0.0) FROM transactions" + q.where(f), q.args
}

func categoryCountQuery(d dialect, f core.Filter) (string, []any) {
	q := &queryBuilder{d: d}
	return "SELECT category, COUNT(*) FROM transactions" + q.where(f) + " GROUP BY category ORDER BY category", q.args
}

func distinctCategoryQuery(d dialect, f core.Filter) (string, []any) {
	q := &queryBuilder{d: d}
	return "SELECT DISTINCT category FROM transactions" + q.where(f) + " ORDER BY category", q.args
}
