package xschema

import (
	"context"
	"slices"

	"github.com/kcmvp/xschema/coerce"
	"github.com/kcmvp/xschema/constraint"
	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

type tagsField struct {
	column
	assocID       string
	foreignID     string
	localMember   string
	foreignMember string
	objectMember  string
}

var _ Field = (*tagsField)(nil)
var _ referrer = (*tagsField)(nil)

// TagsField is a many-to-many association. Clients send an array of
// association records, each linking this row (localMember) to a foreign row
// (foreignMember, with the object under foreignObjectMember). Storage only
// keeps the list of foreign ids.
func TagsField(member, assocTableID, foreignTableID, localMember, foreignMember, foreignObjectMember string, opts ...FieldOption) Field {
	f := &tagsField{
		column:        newColumn(member, KindAssociationRecord, opts),
		assocID:       assocTableID,
		foreignID:     foreignTableID,
		localMember:   localMember,
		foreignMember: foreignMember,
		objectMember:  foreignObjectMember,
	}
	if f.conf.def.IsAbsent() {
		f.conf.def = mo.Some[any]([]Row{})
	}
	return f
}

func (f *tagsField) references() []string {
	return []string{f.assocID, f.foreignID}
}

func (f *tagsField) assoc() *Table {
	return f.table.resolve(f.assocID)
}

func (f *tagsField) foreign() *Table {
	return f.table.resolve(f.foreignID)
}

// records reads the client value as association records.
func (f *tagsField) records(v any) ([]Row, error) {
	switch items := v.(type) {
	case nil:
		return nil, nil
	case []Row:
		return items, nil
	case []map[string]any:
		return lo.Map(items, func(m map[string]any, _ int) Row { return Row(m) }), nil
	case []int64:
		return lo.Map(items, func(id int64, _ int) Row { return Row{f.foreignMember: id} }), nil
	case []any:
		out := make([]Row, 0, len(items))
		for _, item := range items {
			switch rec := item.(type) {
			case Row:
				out = append(out, rec)
			case map[string]any:
				out = append(out, Row(rec))
			default:
				return nil, constraint.ErrNotArray
			}
		}
		return out, nil
	default:
		return nil, constraint.ErrNotArray
	}
}

// foreignIDOf returns the foreign id of an association record, read from the
// foreign member or from the nested foreign object.
func (f *tagsField) foreignIDOf(rec Row) mo.Option[int64] {
	if id, ok := rec.Int64(f.foreignMember).Get(); ok {
		return mo.Some(id)
	}
	if obj, ok := rec.Object(f.objectMember).Get(); ok {
		return obj.Int64(f.foreign().PrimaryKey())
	}
	return mo.None[int64]()
}

// ids returns the distinct foreign ids of a value in first-seen order.
func (f *tagsField) ids(v any) ([]int64, error) {
	recs, err := f.records(v)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(recs))
	for _, rec := range recs {
		id, ok := f.foreignIDOf(rec).Get()
		if !ok {
			return nil, constraint.ErrMissingForeignID
		}
		out = append(out, id)
	}
	return lo.Uniq(out), nil
}

func (f *tagsField) ValidateAndParse(row Row, _ Mode, _ ClientContext) ParseResult {
	v, ok := row[f.member]
	if !ok {
		return absent()
	}
	recs, err := f.records(v)
	if err != nil {
		return failure(err)
	}
	seen := map[int64]struct{}{}
	sanitized := make([]Row, 0, len(recs))
	for _, rec := range recs {
		id, ok := f.foreignIDOf(rec).Get()
		if !ok {
			return failure(constraint.ErrMissingForeignID)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		clean := rec.Clone()
		clean[f.foreignMember] = id
		sanitized = append(sanitized, clean)
	}
	return success(sanitized)
}

// IsEqual compares the sets of foreign ids, ignoring order.
func (f *tagsField) IsEqual(a, b any) bool {
	ia, errA := f.ids(a)
	ib, errB := f.ids(b)
	if errA != nil || errB != nil {
		return false
	}
	slices.Sort(ia)
	slices.Sort(ib)
	return slices.Equal(ia, ib)
}

// ClientToStorage reduces the records to the foreign ids.
func (f *tagsField) ClientToStorage(client, mutation Row, _ Mode, _ ClientContext) {
	v, ok := client[f.member]
	if !ok {
		return
	}
	if ids, err := f.ids(v); err == nil {
		mutation[f.member] = ids
	}
}

// StorageToClient exposes stored ids as association records.
func (f *tagsField) StorageToClient(storage, client Row, _ Mode, _ ClientContext) {
	v, ok := storage[f.member]
	if !ok {
		return
	}
	local, hasLocal := storage[f.table.PrimaryKey()]
	recs, err := f.records(v)
	if err != nil {
		client[f.member] = cloneValue(v)
		return
	}
	client[f.member] = lo.Map(recs, func(rec Row, _ int) Row {
		out := rec.Clone()
		if _, set := out[f.localMember]; !set && hasLocal {
			out[f.localMember] = local
		}
		return out
	})
}

// CustomFilter keeps rows associated with any of the foreign ids found under
// the member in the custom filter model.
func (f *tagsField) CustomFilter(fm FilterModel, _ ClientContext) mo.Option[predicate.Predicate] {
	raw, ok := fm.Custom[f.member]
	if !ok {
		return mo.None[predicate.Predicate]()
	}
	ids, err := coerce.Int64Slice(raw)
	if err != nil || len(ids) == 0 {
		return mo.None[predicate.Predicate]()
	}
	assoc := f.assoc()
	return mo.Some(predicate.Exists(assoc.Name(), f.joinAssoc(assoc), predicate.In(predicate.Col(assoc.Name(), f.foreignMember), ids...)))
}

func (f *tagsField) joinAssoc(assoc *Table) string {
	return predicate.JoinOn(predicate.Col(assoc.Name(), f.localMember), predicate.Col(f.table.Name(), f.table.PrimaryKey()))
}

// QuickFilter matches rows associated with a foreign row matching the token.
func (f *tagsField) QuickFilter(token string, cc ClientContext) mo.Option[predicate.Predicate] {
	if f.conf.noQuickFilter || cc.Mode == FetchRelation {
		return mo.None[predicate.Predicate]()
	}
	foreign := f.foreign()
	if foreign == f.table || cc.OnPath(foreign.ID()) {
		return mo.None[predicate.Predicate]()
	}
	sub, ok := foreign.quickFilterClause(token, cc.Descend(f.table.ID())).Get()
	if !ok {
		return mo.None[predicate.Predicate]()
	}
	assoc := f.assoc()
	inner := predicate.Exists(foreign.Name(),
		predicate.JoinOn(predicate.Col(foreign.Name(), foreign.PrimaryKey()), predicate.Col(assoc.Name(), f.foreignMember)), sub)
	return mo.Some(predicate.Exists(assoc.Name(), f.joinAssoc(assoc), inner))
}

// ApplyIncludeFilter filters the foreign objects nested in the association
// records.
func (f *tagsField) ApplyIncludeFilter(ctx context.Context, inc Include, cc ClientContext) error {
	node, ok := inc[f.member]
	if !ok || node == nil {
		return nil
	}
	nested, ok := node.Include[f.objectMember]
	if !ok || nested == nil {
		return nil
	}
	foreign := f.foreign()
	if foreign == f.table || cc.OnPath(foreign.ID()) {
		return nil
	}
	return foreign.filterNode(ctx, nested, cc.Descend(f.table.ID()))
}
