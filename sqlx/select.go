package sqlx

import (
	"context"
	"fmt"
	"strings"

	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Query selects rows of a table.
type Query struct {
	Table *xschema.Table
	Where mo.Option[predicate.Predicate]
	// OrderBy overrides the table's natural ordering when not empty.
	OrderBy []xschema.Order
	// Limit caps the number of rows when positive.
	Limit int
}

// SelectSQL renders q with '?' placeholders.
func SelectSQL(q Query) (string, []any, error) {
	t := q.Table
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s.* FROM %s", t.Name(), t.Name())
	var args []any
	if where, ok := q.Where.Get(); ok {
		clause, whereArgs := where.Build()
		if clause != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(clause)
			args = whereArgs
		}
	}
	orders := lo.Ternary(len(q.OrderBy) > 0, q.OrderBy, t.NaturalOrdering())
	if len(orders) > 0 {
		terms := make([]string, 0, len(orders))
		for _, o := range orders {
			f, ok := t.GetColumn(o.Member).Get()
			if !ok || f.Kind() == xschema.KindAssociationRecord {
				return "", nil, fmt.Errorf("order by %s.%s: %w", t.ID(), o.Member, xschema.ErrUnknownMember)
			}
			terms = append(terms, fmt.Sprintf("%s %s", predicate.Col(t.Name(), f.Member()), lo.Ternary(o.Desc, "DESC", "ASC")))
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args, nil
}

// Select runs q and returns the storage rows keyed by column name.
func Select(ctx context.Context, db DB, q Query) ([]xschema.Row, error) {
	query, args, err := SelectSQL(q)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, Rebind(db.Driver(), query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]xschema.Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := lo.Map(vals, func(_ any, i int) any { return &vals[i] })
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(xschema.Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Fetch computes the table's where clause for filter and cc, then selects
// the matching rows.
func Fetch(ctx context.Context, db DB, t *xschema.Table, filter xschema.FilterModel, cc xschema.ClientContext) ([]xschema.Row, error) {
	where, err := t.CalculateWhereClause(ctx, xschema.WhereInput{Filter: filter, Context: cc})
	if err != nil {
		return nil, err
	}
	return Select(ctx, db, Query{Table: t, Where: where})
}

// Columns returns the column names of the table's storage.
func Columns(ctx context.Context, db DB, t *xschema.Table) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1=0", t.Name()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return rows.Columns()
}
