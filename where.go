package xschema

import (
	"context"
	"fmt"
	"strings"

	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

// FilterItem is a literal member = value condition. A nil value matches
// null.
type FilterItem struct {
	Member string `json:"member"`
	Value  any    `json:"value"`
}

// FilterModel is the filter a client sends with a query.
type FilterModel struct {
	// QuickFilter is free text, split on whitespace into tokens.
	QuickFilter string       `json:"quickFilter"`
	Items       []FilterItem `json:"items"`
	// Custom holds table specific structured filters keyed by member.
	Custom map[string]any `json:"custom"`
	// Params feeds the table's parameterized filter.
	Params map[string]any `json:"params"`
}

// WhereInput is the input of CalculateWhereClause.
type WhereInput struct {
	Filter         FilterModel
	Context        ClientContext
	SkipVisibility bool
}

// CalculateWhereClause combines, in this order, one OR group per quick
// filter token, the custom filters, the literal items, the parameterized
// filter, the overall clauses of the fields, the soft delete exclusion and
// the visibility restriction into one AND list. It returns None when no
// stage contributed.
func (t *Table) CalculateWhereClause(ctx context.Context, in WhereInput) (mo.Option[predicate.Predicate], error) {
	cc := in.Context
	var parts []predicate.Predicate
	for _, token := range strings.Fields(in.Filter.QuickFilter) {
		parts = append(parts, t.quickFilterGroup(token, cc))
	}
	for _, f := range t.fields {
		if p, ok := f.CustomFilter(in.Filter, cc).Get(); ok {
			parts = append(parts, p)
		}
	}
	for _, item := range in.Filter.Items {
		p, err := t.literal(item)
		if err != nil {
			return mo.None[predicate.Predicate](), err
		}
		parts = append(parts, p)
	}
	if t.paramFilter != nil && len(in.Filter.Params) > 0 {
		if ps, ok := t.paramFilter(in.Filter.Params, cc); ok {
			parts = append(parts, ps...)
		}
	}
	for _, f := range t.fields {
		if p, ok := f.OverallClause(cc).Get(); ok {
			parts = append(parts, p)
		}
	}
	if p, ok := t.softDeleteClause(cc).Get(); ok {
		parts = append(parts, p)
	}
	if !in.SkipVisibility {
		vis, err := t.visibilityClause(ctx, cc)
		if err != nil {
			return mo.None[predicate.Predicate](), err
		}
		if p, ok := vis.Get(); ok {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return mo.None[predicate.Predicate](), nil
	}
	return mo.Some(predicate.And(parts...)), nil
}

// quickFilterGroup ORs the fragments of every field for one token. A token
// nothing matches yields an always false group.
func (t *Table) quickFilterGroup(token string, cc ClientContext) predicate.Predicate {
	return predicate.Or(lo.FilterMap(t.fields, func(f Field, _ int) (predicate.Predicate, bool) {
		return f.QuickFilter(token, cc).Get()
	})...)
}

// quickFilterClause is quickFilterGroup for delegation from another table:
// None when no field takes part.
func (t *Table) quickFilterClause(token string, cc ClientContext) mo.Option[predicate.Predicate] {
	g := t.quickFilterGroup(token, cc)
	if or, ok := g.(predicate.OrGroup); ok && len(or.Items) == 0 {
		return mo.None[predicate.Predicate]()
	}
	return mo.Some(g)
}

func (t *Table) literal(item FilterItem) (predicate.Predicate, error) {
	f, ok := t.GetColumn(item.Member).Get()
	if !ok || f.Kind() == KindAssociationRecord {
		t.logger().Error("filter references an undeclared member", zap.String("table", t.id), zap.String("member", item.Member))
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMember, t.id, item.Member)
	}
	col := predicate.Col(t.name, f.Member())
	if item.Value == nil {
		return predicate.IsNull(col), nil
	}
	return predicate.Eq(col, item.Value), nil
}

// softDeleteClause excludes deleted rows, except for administrators.
func (t *Table) softDeleteClause(cc ClientContext) mo.Option[predicate.Predicate] {
	sd, ok := t.softDelete.Get()
	if !ok || cc.Intention == IntentionAdmin {
		return mo.None[predicate.Predicate]()
	}
	return mo.Some(predicate.Eq(predicate.Col(t.name, sd.Column), false))
}

// visibilityClause restricts rows to the ones the client may see. Public
// intention, or an anonymous client, sees rows visible to the public role.
// Otherwise the row's permission must be granted to the actor's role, or the
// row has no permission and belongs to the actor. Administrators see every
// row unless they ask with public intention.
func (t *Table) visibilityClause(ctx context.Context, cc ClientContext) (mo.Option[predicate.Predicate], error) {
	vis, ok := t.visibility.Get()
	if !ok || (cc.IsAdmin() && cc.Intention != IntentionPublic) {
		return mo.None[predicate.Predicate](), nil
	}
	if t.registry == nil {
		return mo.None[predicate.Predicate](), fmt.Errorf("%w: %s", ErrNotRegistered, t.id)
	}
	permCol := predicate.Col(t.name, vis.PermissionColumn)
	actor, hasActor := cc.Actor.Get()
	if cc.Intention == IntentionPublic || !hasActor {
		ids, err := t.registry.roles.PublicPermissionIDs(ctx)
		if err != nil {
			t.logger().Error("cannot resolve public role permissions", zap.String("table", t.id), zap.Error(err))
			return mo.None[predicate.Predicate](), fmt.Errorf("visibility of %s: %w", t.id, err)
		}
		return mo.Some(predicate.In(permCol, ids...)), nil
	}
	ids, err := t.registry.roles.RolePermissionIDs(ctx, actor.RoleID)
	if err != nil {
		t.logger().Error("cannot resolve role permissions", zap.String("table", t.id), zap.Int64("role", actor.RoleID), zap.Error(err))
		return mo.None[predicate.Predicate](), fmt.Errorf("visibility of %s: %w", t.id, err)
	}
	owned := predicate.And(predicate.IsNull(permCol), predicate.Eq(predicate.Col(t.name, vis.OwnerColumn), actor.ID))
	return mo.Some(predicate.Or(predicate.In(permCol, ids...), owned)), nil
}

// relationClause is the filter applied to rows fetched as relations of
// another row: soft delete and visibility.
func (t *Table) relationClause(ctx context.Context, cc ClientContext) (mo.Option[predicate.Predicate], error) {
	parts := lo.FilterMap([]mo.Option[predicate.Predicate]{t.softDeleteClause(cc)}, func(o mo.Option[predicate.Predicate], _ int) (predicate.Predicate, bool) {
		return o.Get()
	})
	vis, err := t.visibilityClause(ctx, cc)
	if err != nil {
		return mo.None[predicate.Predicate](), err
	}
	if p, ok := vis.Get(); ok {
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return mo.None[predicate.Predicate](), nil
	}
	return mo.Some(predicate.And(parts...)), nil
}
