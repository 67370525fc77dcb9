package xschema

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

// SoftDelete names the boolean column marking a row as deleted.
type SoftDelete struct {
	Column string
}

// Visibility names the columns used to restrict rows to their audience:
// the owning user and the permission required to see the row.
type Visibility struct {
	OwnerColumn      string
	PermissionColumn string
}

// Order is one term of the natural ordering.
type Order struct {
	Member string
	Desc   bool
}

// RowInfo is the generic description of a row.
type RowInfo struct {
	Name        string
	Description string
	Color       string
	OwnerUserID mo.Option[int64]
}

// RowInfoFunc describes a row of the table.
type RowInfoFunc func(row Row) RowInfo

// ParameterizedFilter turns request parameters into clauses. Returning false
// means the filter does not apply to the parameters.
type ParameterizedFilter func(params map[string]any, cc ClientContext) ([]predicate.Predicate, bool)

// TableOption customizes a table at construction.
type TableOption func(*Table)

// WithSoftDelete marks rows deleted through column instead of removing them.
func WithSoftDelete(column string) TableOption {
	return func(t *Table) { t.softDelete = mo.Some(SoftDelete{Column: column}) }
}

// WithVisibility restricts rows by owner and visibility permission.
func WithVisibility(ownerColumn, permissionColumn string) TableOption {
	return func(t *Table) {
		t.visibility = mo.Some(Visibility{OwnerColumn: ownerColumn, PermissionColumn: permissionColumn})
	}
}

// WithPermissions sets the table permission map.
func WithPermissions(p TablePermissions) TableOption {
	return func(t *Table) { t.permissions = p }
}

// WithOrdering sets the natural ordering.
func WithOrdering(orders ...Order) TableOption {
	return func(t *Table) { t.ordering = orders }
}

// WithParameterizedFilter sets the filter built from request parameters.
func WithParameterizedFilter(fn ParameterizedFilter) TableOption {
	return func(t *Table) { t.paramFilter = fn }
}

// WithCreateFromString lets clients create a row from free text.
func WithCreateFromString(fn func(text string) Row) TableOption {
	return func(t *Table) { t.fromString = fn }
}

// WithInclude sets the related data fetched with every row.
func WithInclude(inc Include) TableOption {
	return func(t *Table) { t.include = inc }
}

// Table describes one logical table: its fields in declaration order and the
// row level rules applied around them.
type Table struct {
	id          string
	name        string
	fields      []Field
	pk          string
	softDelete  mo.Option[SoftDelete]
	visibility  mo.Option[Visibility]
	permissions TablePermissions
	ordering    []Order
	paramFilter ParameterizedFilter
	rowInfo     RowInfoFunc
	fromString  func(text string) Row
	include     Include
	registry    *Registry
}

// NewTable creates a table and connects its fields. It panics when the table
// has no or several primary keys, or declares a member twice.
func NewTable(id, name string, rowInfo RowInfoFunc, fields []Field, opts ...TableOption) *Table {
	lo.Assertf(strings.TrimSpace(id) != "", "xschema: table id must not be empty")
	lo.Assertf(rowInfo != nil, "xschema: table '%s' has no row info", id)
	pks := lo.Filter(fields, func(f Field, _ int) bool {
		_, ok := f.(*pkField)
		return ok
	})
	lo.Assertf(len(pks) == 1, "xschema: table '%s' must have exactly one primary key, got %d", id, len(pks))
	dup := lo.FindDuplicates(lo.Map(fields, func(f Field, _ int) string { return f.Member() }))
	lo.Assertf(len(dup) == 0, "xschema: table '%s' declares members %v more than once", id, dup)
	t := &Table{
		id:         id,
		name:       lo.Ternary(name != "", name, id),
		fields:     slices.Clone(fields),
		pk:         pks[0].Member(),
		softDelete: mo.None[SoftDelete](),
		visibility: mo.None[Visibility](),
		rowInfo:    rowInfo,
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, f := range t.fields {
		f.connect(t)
	}
	return t
}

// ID is the stable identifier, compared case-insensitively by the registry.
func (t *Table) ID() string {
	return t.id
}

// Name is the storage table name.
func (t *Table) Name() string {
	return t.name
}

// Fields returns the fields in declaration order.
func (t *Table) Fields() []Field {
	return slices.Clone(t.fields)
}

// PrimaryKey returns the member of the primary key field.
func (t *Table) PrimaryKey() string {
	return t.pk
}

func (t *Table) SoftDelete() mo.Option[SoftDelete] {
	return t.softDelete
}

func (t *Table) Visibility() mo.Option[Visibility] {
	return t.visibility
}

func (t *Table) Permissions() TablePermissions {
	return t.permissions
}

// NaturalOrdering returns the default ordering of the rows.
func (t *Table) NaturalOrdering() []Order {
	return slices.Clone(t.ordering)
}

// RowInfo describes row.
func (t *Table) RowInfo(row Row) RowInfo {
	return t.rowInfo(row)
}

// CreateFromString builds a partial row from free text, when the table
// supports it.
func (t *Table) CreateFromString(text string) mo.Option[Row] {
	if t.fromString == nil {
		return mo.None[Row]()
	}
	return mo.Some(t.fromString(text))
}

// GetColumn returns the field owning the member.
func (t *Table) GetColumn(name string) mo.Option[Field] {
	f, ok := lo.Find(t.fields, func(f Field) bool { return f.MatchesMember(name) })
	return lo.Ternary(ok, mo.Some(f), mo.None[Field]())
}

// Registry returns the registry the table is bound to, nil before Build.
func (t *Table) Registry() *Registry {
	return t.registry
}

func (t *Table) now() time.Time {
	if t.registry == nil {
		return time.Now().UTC()
	}
	return t.registry.clock().UTC()
}

func (t *Table) logger() *zap.Logger {
	if t.registry == nil {
		return zap.L()
	}
	return t.registry.logger
}

// resolve looks up a referenced table. References are checked when the
// registry is built, so a miss here is a wiring defect.
func (t *Table) resolve(id string) *Table {
	lo.Assertf(t.registry != nil, "xschema: table '%s' is not bound to a registry", t.id)
	ref, ok := t.registry.Table(id).Get()
	lo.Assertf(ok, "xschema: table '%s' references unknown table '%s'", t.id, id)
	return ref
}

func (t *Table) String() string {
	return fmt.Sprintf("Table(%s)", t.id)
}
