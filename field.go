package xschema

import (
	"context"
	"reflect"
	"strings"

	"github.com/kcmvp/xschema/coerce"
	"github.com/kcmvp/xschema/constraint"
	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Mode is the lifecycle stage a row is validated in.
type Mode int

const (
	ModeNew Mode = iota
	ModeView
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeView:
		return "view"
	case ModeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Kind is how a field maps onto storage.
type Kind int

const (
	KindPlainColumn Kind = iota
	KindForeignObject
	KindAssociationRecord
	KindCalculated
)

func (k Kind) String() string {
	switch k {
	case KindPlainColumn:
		return "plain-column"
	case KindForeignObject:
		return "foreign-object"
	case KindAssociationRecord:
		return "association-record"
	case KindCalculated:
		return "calculated"
	default:
		return "unknown"
	}
}

// ParseStatus is the outcome of validating one field of a row.
type ParseStatus int

const (
	// ParseAbsent means the field is not part of the request.
	ParseAbsent ParseStatus = iota
	ParseSuccess
	ParseError
)

// ParseResult carries the sanitized value on success and the user-facing
// message on error.
type ParseResult struct {
	Status  ParseStatus
	Value   any
	Message string
}

func absent() ParseResult {
	return ParseResult{Status: ParseAbsent}
}

func success(v any) ParseResult {
	return ParseResult{Status: ParseSuccess, Value: v}
}

func failure(err error) ParseResult {
	return ParseResult{Status: ParseError, Message: err.Error()}
}

// AuthorizeFieldInput is what a field needs to decide access.
type AuthorizeFieldInput struct {
	Row     Row
	Context AuthContext
	Client  ClientContext
}

// AuthorizeFunc replaces the permission map lookup of a field.
type AuthorizeFunc func(in AuthorizeFieldInput) bool

// OverallFunc returns a clause applied to every query of the table.
type OverallFunc func(cc ClientContext) mo.Option[predicate.Predicate]

// MatchFunc tells whether a row matches free text on the client side.
type MatchFunc func(item Row, text string) bool

// Field describes one member of a table: how it validates, authorizes,
// maps between client and storage, and contributes to queries.
//
// The set of implementations is closed; fields are created with the
// constructors of this package and are immutable once their table is built.
type Field interface {
	Member() string
	Kind() Kind
	Default() mo.Option[any]
	Label() string
	Nullable() bool
	// Table returns the owning table, nil until the field is connected.
	Table() *Table
	// MatchesMember reports whether the field owns the named member. Fields
	// spanning several physical members match each of them.
	MatchesMember(name string) bool

	ValidateAndParse(row Row, mode Mode, cc ClientContext) ParseResult
	IsEqual(a, b any) bool
	ClientToStorage(client, mutation Row, mode Mode, cc ClientContext)
	StorageToClient(storage, client Row, mode Mode, cc ClientContext)

	QuickFilter(token string, cc ClientContext) mo.Option[predicate.Predicate]
	CustomFilter(fm FilterModel, cc ClientContext) mo.Option[predicate.Predicate]
	OverallClause(cc ClientContext) mo.Option[predicate.Predicate]

	Authorize(in AuthorizeFieldInput) bool
	NewValue(cc ClientContext) mo.Option[any]
	ApplyIncludeFilter(ctx context.Context, inc Include, cc ClientContext) error

	connect(t *Table)
	seal()
}

type fieldConfig struct {
	nullable      bool
	def           mo.Option[any]
	authz         AuthMap
	authorize     AuthorizeFunc
	overall       OverallFunc
	label         string
	noQuickFilter bool
	matcher       MatchFunc
	checks        []any
}

// FieldOption customizes a field at construction.
type FieldOption func(*fieldConfig)

// Nullable lets the field hold null.
func Nullable() FieldOption {
	return func(c *fieldConfig) { c.nullable = true }
}

// Default sets the value the field contributes to a new row.
func Default(v any) FieldOption {
	return func(c *fieldConfig) { c.def = mo.Some(v) }
}

// Authz sets the permission required per authorization context. Without it
// the field follows the table permissions.
func Authz(m AuthMap) FieldOption {
	return func(c *fieldConfig) { c.authz = m }
}

// AuthorizeWith replaces the permission lookup with a custom predicate.
// Administrators are still always authorized.
func AuthorizeWith(fn AuthorizeFunc) FieldOption {
	return func(c *fieldConfig) { c.authorize = fn }
}

// WithOverall adds a clause applied to every query of the table.
func WithOverall(fn OverallFunc) FieldOption {
	return func(c *fieldConfig) { c.overall = fn }
}

// Label sets the display label.
func Label(s string) FieldOption {
	return func(c *fieldConfig) { c.label = s }
}

// NoQuickFilter excludes the field from free-text search.
func NoQuickFilter() FieldOption {
	return func(c *fieldConfig) { c.noQuickFilter = true }
}

// MatchWith overrides the client-side free-text matcher of a foreign field.
func MatchWith(fn MatchFunc) FieldOption {
	return func(c *fieldConfig) { c.matcher = fn }
}

// Checks attaches extra validators, run after the field's own rules. The
// validator type must match the field's value type: string for text, enum
// and color fields, int64 for integers and time.Time for dates.
func Checks[T constraint.Value](vfs ...constraint.ValidateFunc[T]) FieldOption {
	return func(c *fieldConfig) {
		c.checks = append(c.checks, lo.Map(vfs, func(vf constraint.ValidateFunc[T], _ int) any { return vf })...)
	}
}

func newConfig(opts []FieldOption) fieldConfig {
	conf := fieldConfig{def: mo.None[any]()}
	for _, opt := range opts {
		opt(&conf)
	}
	return conf
}

// compile turns the attached checks into validators of type T, panicking on
// a check of another type.
func compile[T constraint.Value](member string, builtin []constraint.ValidateFunc[T], checks []any) []constraint.Validator[T] {
	vfs := append([]constraint.ValidateFunc[T]{}, builtin...)
	for _, raw := range checks {
		vf, ok := raw.(constraint.ValidateFunc[T])
		lo.Assertf(ok, "xschema: field '%s' does not accept %T checks", member, raw)
		vfs = append(vfs, vf)
	}
	return constraint.Compile(member, vfs...)
}

// column is the part every field shares.
type column struct {
	member string
	kind   Kind
	conf   fieldConfig
	table  *Table
}

func newColumn(member string, kind Kind, opts []FieldOption) column {
	lo.Assertf(strings.TrimSpace(member) != "", "xschema: field member must not be empty")
	return column{member: member, kind: kind, conf: newConfig(opts)}
}

func (c *column) Member() string {
	return c.member
}

func (c *column) Kind() Kind {
	return c.kind
}

func (c *column) Default() mo.Option[any] {
	return c.conf.def
}

func (c *column) Label() string {
	return lo.Ternary(c.conf.label != "", c.conf.label, c.member)
}

func (c *column) Nullable() bool {
	return c.conf.nullable
}

func (c *column) Table() *Table {
	return c.table
}

func (c *column) MatchesMember(name string) bool {
	return name == c.member
}

func (c *column) connect(t *Table) {
	lo.Assertf(c.table == nil, "xschema: field '%s' is already connected to a table", c.member)
	c.table = t
}

func (c *column) IsEqual(a, b any) bool {
	return equalValues(a, b)
}

func (c *column) ClientToStorage(client, mutation Row, _ Mode, _ ClientContext) {
	if v, ok := client[c.member]; ok {
		mutation[c.member] = v
	}
}

func (c *column) StorageToClient(storage, client Row, _ Mode, _ ClientContext) {
	if v, ok := storage[c.member]; ok {
		client[c.member] = cloneValue(v)
	}
}

func (c *column) QuickFilter(string, ClientContext) mo.Option[predicate.Predicate] {
	return mo.None[predicate.Predicate]()
}

func (c *column) CustomFilter(FilterModel, ClientContext) mo.Option[predicate.Predicate] {
	return mo.None[predicate.Predicate]()
}

func (c *column) OverallClause(cc ClientContext) mo.Option[predicate.Predicate] {
	if c.conf.overall == nil {
		return mo.None[predicate.Predicate]()
	}
	return c.conf.overall(cc)
}

func (c *column) Authorize(in AuthorizeFieldInput) bool {
	if in.Client.IsAdmin() {
		return true
	}
	if c.conf.authorize != nil {
		return c.conf.authorize(in)
	}
	if c.conf.authz != nil {
		return c.conf.authz.Allows(in.Context, in.Client)
	}
	return c.table.permissions.AuthMap().Allows(in.Context, in.Client)
}

func (c *column) NewValue(ClientContext) mo.Option[any] {
	return c.conf.def
}

func (c *column) ApplyIncludeFilter(context.Context, Include, ClientContext) error {
	return nil
}

func (c *column) seal() {}

// qualified returns the "table.member" reference of the column.
func (c *column) qualified() string {
	return predicate.Col(c.table.Name(), c.member)
}

// null is the result for a null input.
func (c *column) null() ParseResult {
	if c.conf.nullable {
		return success(nil)
	}
	return failure(constraint.ErrNonNull)
}

// blank reports whether v is nil or a whitespace-only string.
func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// equalValues compares two values treating integers of any width alike.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr || bStr {
		return false
	}
	ia, errA := coerce.Int64(a)
	ib, errB := coerce.Int64(b)
	return errA == nil && errB == nil && ia == ib
}
