package predicate

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Predicate is a node of a structured query condition.
//
// Nodes are plain values so callers (query executors, tests) may inspect the
// tree with type switches, and every node can render itself as a SQL fragment
// with '?' placeholders through Build. The interface is sealed: only the node
// types declared in this package implement it.
type Predicate interface {
	// Build returns the SQL clause string and its corresponding arguments.
	// An empty clause means the node contributes nothing.
	Build() (string, []any)
	seal()
}

// Col returns the qualified "table.column" reference used by every node.
func Col(table, column string) string {
	if table == "" {
		return column
	}
	return fmt.Sprintf("%s.%s", table, column)
}

// Comparison is a binary operator condition such as "events.name = ?".
type Comparison struct {
	Column string
	Op     string
	Value  any
}

func (c Comparison) Build() (string, []any) {
	return fmt.Sprintf("%s %s ?", c.Column, c.Op), []any{c.Value}
}

func (Comparison) seal() {}

// Eq creates an "equal to" condition.
func Eq(column string, value any) Predicate {
	return Comparison{Column: column, Op: "=", Value: value}
}

// Ne creates a "not equal to" condition.
func Ne(column string, value any) Predicate {
	return Comparison{Column: column, Op: "!=", Value: value}
}

// Gt creates a "greater than" condition.
func Gt(column string, value any) Predicate {
	return Comparison{Column: column, Op: ">", Value: value}
}

// Gte creates a "greater than or equal to" condition.
func Gte(column string, value any) Predicate {
	return Comparison{Column: column, Op: ">=", Value: value}
}

// Lt creates a "less than" condition.
func Lt(column string, value any) Predicate {
	return Comparison{Column: column, Op: "<", Value: value}
}

// Lte creates a "less than or equal to" condition.
func Lte(column string, value any) Predicate {
	return Comparison{Column: column, Op: "<=", Value: value}
}

// InList is an "IN (...)" condition.
type InList struct {
	Column string
	Values []any
}

// Build renders the IN list. An empty list renders an always-false condition
// to prevent SQL syntax errors with an empty IN ().
func (in InList) Build() (string, []any) {
	if len(in.Values) == 0 {
		return "1=0", nil
	}
	placeholders := strings.Join(lo.RepeatBy(len(in.Values), func(_ int) string {
		return "?"
	}), ",")
	return fmt.Sprintf("%s IN (%s)", in.Column, placeholders), append([]any{}, in.Values...)
}

func (InList) seal() {}

// In creates an "IN (...)" condition.
func In[T any](column string, values ...T) Predicate {
	return InList{Column: column, Values: lo.Map(values, func(v T, _ int) any { return v })}
}

// NullCheck is an "IS NULL" / "IS NOT NULL" condition.
type NullCheck struct {
	Column string
	Null   bool
}

func (n NullCheck) Build() (string, []any) {
	return fmt.Sprintf("%s IS %s", n.Column, lo.Ternary(n.Null, "NULL", "NOT NULL")), nil
}

func (NullCheck) seal() {}

// IsNull creates an "IS NULL" condition.
func IsNull(column string) Predicate {
	return NullCheck{Column: column, Null: true}
}

// NotNull creates an "IS NOT NULL" condition.
func NotNull(column string) Predicate {
	return NullCheck{Column: column, Null: false}
}

// Substring is a case-insensitive "contains" match.
type Substring struct {
	Column string
	Text   string
}

func (s Substring) Build() (string, []any) {
	return fmt.Sprintf("LOWER(%s) LIKE ?", s.Column), []any{"%" + strings.ToLower(s.Text) + "%"}
}

func (Substring) seal() {}

// Contains creates a case-insensitive substring condition.
func Contains(column string, text string) Predicate {
	return Substring{Column: column, Text: text}
}

// AndGroup joins its items with AND. Items rendering to an empty clause are
// skipped, and a group without any clause renders empty.
type AndGroup struct {
	Items []Predicate
}

func (g AndGroup) Build() (string, []any) {
	clauses, args := buildItems(g.Items)
	if len(clauses) == 0 {
		return "", nil
	}
	return fmt.Sprintf("(%s)", strings.Join(clauses, " AND ")), args
}

func (AndGroup) seal() {}

// OrGroup joins its items with OR. A group without any clause matches nothing.
type OrGroup struct {
	Items []Predicate
}

func (g OrGroup) Build() (string, []any) {
	clauses, args := buildItems(g.Items)
	if len(clauses) == 0 {
		return "1=0", nil
	}
	return fmt.Sprintf("(%s)", strings.Join(clauses, " OR ")), args
}

func (OrGroup) seal() {}

// NotGroup negates its item.
type NotGroup struct {
	Item Predicate
}

func (n NotGroup) Build() (string, []any) {
	if n.Item == nil {
		return "", nil
	}
	clause, args := n.Item.Build()
	if clause == "" {
		return "", nil
	}
	return fmt.Sprintf("NOT (%s)", clause), args
}

func (NotGroup) seal() {}

// And combines conditions with AND, dropping nil items.
func And(items ...Predicate) Predicate {
	return AndGroup{Items: compact(items)}
}

// Or combines conditions with OR, dropping nil items.
func Or(items ...Predicate) Predicate {
	return OrGroup{Items: compact(items)}
}

// Not negates a condition.
func Not(item Predicate) Predicate {
	return NotGroup{Item: item}
}

// Subquery is an "EXISTS (SELECT 1 FROM table WHERE on AND where)" condition.
// It expresses conditions on related rows: On correlates the related table
// with the outer one, Where filters the related rows.
type Subquery struct {
	Table string
	On    string
	Where Predicate
}

func (s Subquery) Build() (string, []any) {
	conds := make([]string, 0, 2)
	if s.On != "" {
		conds = append(conds, s.On)
	}
	var args []any
	if s.Where != nil {
		clause, whereArgs := s.Where.Build()
		if clause != "" {
			conds = append(conds, clause)
			args = whereArgs
		}
	}
	if len(conds) == 0 {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s)", s.Table), nil
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s)", s.Table, strings.Join(conds, " AND ")), args
}

func (Subquery) seal() {}

// Exists creates a correlated EXISTS condition. on is a join predicate such as
// "venues.id = events.venueId".
func Exists(table string, on string, where Predicate) Predicate {
	return Subquery{Table: table, On: on, Where: where}
}

// JoinOn renders the correlation predicate "left = right" for Exists.
func JoinOn(left, right string) string {
	return fmt.Sprintf("%s = %s", left, right)
}

func buildItems(items []Predicate) ([]string, []any) {
	clauses := make([]string, 0, len(items))
	var allArgs []any
	for _, p := range items {
		if p == nil {
			continue
		}
		clause, args := p.Build()
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		allArgs = append(allArgs, args...)
	}
	return clauses, allArgs
}

func compact(items []Predicate) []Predicate {
	return lo.Filter(items, func(p Predicate, _ int) bool { return p != nil })
}
