package xschema

import (
	"context"
	"strings"

	"github.com/kcmvp/xschema/coerce"
	"github.com/kcmvp/xschema/constraint"
	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/mo"
)

type foreignField struct {
	column
	object    string
	foreignID string
}

var _ Field = (*foreignField)(nil)
var _ referrer = (*foreignField)(nil)

// ForeignField references a row of another table. Clients see the foreign
// object under objectMember, storage only holds the id in fkMember. The
// foreign table is resolved through the registry on first use.
func ForeignField(fkMember, objectMember, foreignTableID string, opts ...FieldOption) Field {
	return &foreignField{
		column:    newColumn(fkMember, KindForeignObject, opts),
		object:    objectMember,
		foreignID: foreignTableID,
	}
}

func (f *foreignField) references() []string {
	return []string{f.foreignID}
}

func (f *foreignField) foreign() *Table {
	return f.table.resolve(f.foreignID)
}

func (f *foreignField) MatchesMember(name string) bool {
	return name == f.member || name == f.object
}

// rawID returns the foreign id as supplied, preferring the object.
func (f *foreignField) rawID(row Row) (any, bool) {
	if obj, ok := row[f.object]; ok && obj != nil {
		return f.normalize(obj), true
	}
	v, ok := row[f.member]
	if !ok {
		_, ok = row[f.object]
	}
	return v, ok
}

// idOf returns the foreign id held by row.
func (f *foreignField) idOf(row Row) mo.Option[int64] {
	v, ok := f.rawID(row)
	if !ok || v == nil {
		return mo.None[int64]()
	}
	id, err := coerce.Int64(v)
	if err != nil {
		return mo.None[int64]()
	}
	return mo.Some(id)
}

func (f *foreignField) ValidateAndParse(row Row, _ Mode, _ ClientContext) ParseResult {
	v, ok := f.rawID(row)
	if !ok {
		return absent()
	}
	if blank(v) {
		return f.null()
	}
	id, err := coerce.Int64(v)
	if err != nil {
		return failure(constraint.ErrNotInteger)
	}
	return success(id)
}

func (f *foreignField) IsEqual(a, b any) bool {
	return equalValues(f.normalize(a), f.normalize(b))
}

// normalize maps a foreign object to its id.
func (f *foreignField) normalize(v any) any {
	switch o := v.(type) {
	case Row:
		return o[f.foreign().PrimaryKey()]
	case map[string]any:
		return o[f.foreign().PrimaryKey()]
	default:
		return v
	}
}

// ClientToStorage writes the bare id, never the object.
func (f *foreignField) ClientToStorage(client, mutation Row, _ Mode, _ ClientContext) {
	if _, ok := f.rawID(client); !ok {
		return
	}
	if id, ok := f.idOf(client).Get(); ok {
		mutation[f.member] = id
	} else {
		mutation[f.member] = nil
	}
}

// StorageToClient keeps the id and the fetched object, if any.
func (f *foreignField) StorageToClient(storage, client Row, _ Mode, _ ClientContext) {
	if v, ok := storage[f.member]; ok {
		client[f.member] = v
	}
	if v, ok := storage[f.object]; ok {
		client[f.object] = cloneValue(v)
	}
}

// QuickFilter searches the foreign table's own quick filter through an
// EXISTS sub-query. Nested rows do not delegate further.
func (f *foreignField) QuickFilter(token string, cc ClientContext) mo.Option[predicate.Predicate] {
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
	on := predicate.JoinOn(predicate.Col(foreign.Name(), foreign.PrimaryKey()), f.qualified())
	return mo.Some(predicate.Exists(foreign.Name(), on, sub))
}

// Matches reports whether the referenced object matches free text. Unless a
// matcher is configured, the trimmed text is looked up case-insensitively in
// the foreign row name.
func (f *foreignField) Matches(item Row, text string) bool {
	if f.conf.matcher != nil {
		return f.conf.matcher(item, text)
	}
	obj, ok := item.Object(f.object).Get()
	if !ok {
		return false
	}
	name := f.foreign().RowInfo(obj).Name
	return strings.Contains(strings.ToLower(strings.TrimSpace(name)), strings.ToLower(strings.TrimSpace(text)))
}

// ApplyIncludeFilter hides soft deleted and invisible foreign rows from the
// include node of the object member.
func (f *foreignField) ApplyIncludeFilter(ctx context.Context, inc Include, cc ClientContext) error {
	node, ok := inc[f.object]
	if !ok || node == nil {
		return nil
	}
	foreign := f.foreign()
	if foreign == f.table || cc.OnPath(foreign.ID()) {
		return nil
	}
	return foreign.filterNode(ctx, node, cc.Descend(f.table.ID()))
}
