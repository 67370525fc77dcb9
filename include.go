package xschema

import (
	"context"

	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/mo"
)

// Include describes the related data fetched together with a row, keyed by
// the member holding it.
type Include map[string]*IncludeNode

// IncludeNode is one related fetch, optionally filtered and with its own
// nested relations.
type IncludeNode struct {
	Where   mo.Option[predicate.Predicate]
	Include Include
}

// Clone returns a deep copy.
func (inc Include) Clone() Include {
	if inc == nil {
		return nil
	}
	out := make(Include, len(inc))
	for k, node := range inc {
		if node == nil {
			out[k] = nil
			continue
		}
		out[k] = &IncludeNode{Where: node.Where, Include: node.Include.Clone()}
	}
	return out
}

// CalculateInclude returns the table's include with relation filters
// applied, or None when the table fetches no related data.
func (t *Table) CalculateInclude(ctx context.Context, cc ClientContext) (mo.Option[Include], error) {
	if len(t.include) == 0 {
		return mo.None[Include](), nil
	}
	inc := t.include.Clone()
	if err := t.ApplyIncludeFiltering(ctx, inc, cc); err != nil {
		return mo.None[Include](), err
	}
	return mo.Some(inc), nil
}

// ApplyIncludeFiltering lets every field filter the include nodes it owns.
func (t *Table) ApplyIncludeFiltering(ctx context.Context, inc Include, cc ClientContext) error {
	for _, f := range t.fields {
		if err := f.ApplyIncludeFilter(ctx, inc, cc); err != nil {
			return err
		}
	}
	return nil
}

// filterNode adds the relation clause of t to node and filters its nested
// relations. cc is already descended.
func (t *Table) filterNode(ctx context.Context, node *IncludeNode, cc ClientContext) error {
	clause, err := t.relationClause(ctx, cc)
	if err != nil {
		return err
	}
	if p, ok := clause.Get(); ok {
		if prev, has := node.Where.Get(); has {
			p = predicate.And(prev, p)
		}
		node.Where = mo.Some(p)
	}
	if len(node.Include) == 0 {
		return nil
	}
	return t.ApplyIncludeFiltering(ctx, node.Include, cc)
}
