package xschema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kcmvp/xschema/coerce"
	"github.com/kcmvp/xschema/constraint"
	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

type pkField struct {
	column
}

var _ Field = (*pkField)(nil)

// PKField is the integer primary key. It is generated by the store, so it is
// absent from new rows, and it is never matched by free text.
func PKField(member string, opts ...FieldOption) Field {
	return &pkField{column: newColumn(member, KindPlainColumn, opts)}
}

func (f *pkField) ValidateAndParse(row Row, mode Mode, _ ClientContext) ParseResult {
	v, ok := row[f.member]
	if mode == ModeNew || !ok {
		return absent()
	}
	if v == nil {
		return failure(constraint.ErrNonNull)
	}
	id, err := coerce.Int64(v)
	if err != nil {
		return failure(constraint.ErrNotInteger)
	}
	return success(id)
}

// Format fixes the length, trimming and case rules of a string field.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatTitle    Format = "title"
	FormatEmail    Format = "email"
	FormatMarkdown Format = "markdown"
)

type formatRule struct {
	minLength     int
	trim          bool
	caseSensitive bool
	email         bool
}

var formatRules = map[Format]formatRule{
	FormatPlain:    {minLength: 0, trim: true, caseSensitive: true},
	FormatTitle:    {minLength: 1, trim: true, caseSensitive: false},
	FormatEmail:    {minLength: 1, trim: true, caseSensitive: false, email: true},
	FormatMarkdown: {minLength: 0, trim: false, caseSensitive: true},
}

type stringField struct {
	column
	format     Format
	rule       formatRule
	validators []constraint.Validator[string]
}

var _ Field = (*stringField)(nil)

// StringField is a text column. The format decides the minimum length,
// whether input is trimmed and whether comparisons are case sensitive.
func StringField(member string, format Format, opts ...FieldOption) Field {
	rule, ok := formatRules[format]
	lo.Assertf(ok, "xschema: unknown string format '%s' for field '%s'", format, member)
	var builtin []constraint.ValidateFunc[string]
	if rule.minLength > 0 {
		builtin = append(builtin, constraint.MinLength(rule.minLength))
	}
	if rule.email {
		builtin = append(builtin, constraint.Email())
	}
	f := &stringField{column: newColumn(member, KindPlainColumn, opts), format: format, rule: rule}
	f.validators = compile(member, builtin, f.conf.checks)
	return f
}

func (f *stringField) normalize(s string) string {
	if f.rule.trim {
		return strings.TrimSpace(s)
	}
	return s
}

func (f *stringField) ValidateAndParse(row Row, _ Mode, _ ClientContext) ParseResult {
	v, ok := row[f.member]
	if !ok {
		return absent()
	}
	if v == nil {
		return f.null()
	}
	s, ok := v.(string)
	if !ok {
		return failure(constraint.ErrNotString)
	}
	s = f.normalize(s)
	if s == "" && f.conf.nullable {
		return success(nil)
	}
	if err := constraint.Check(s, f.validators); err != nil {
		return failure(err)
	}
	return success(s)
}

// IsEqual treats null and the empty string alike.
func (f *stringField) IsEqual(a, b any) bool {
	sa, okA := a.(string)
	sb, okB := b.(string)
	if (a != nil && !okA) || (b != nil && !okB) {
		return equalValues(a, b)
	}
	sa, sb = f.normalize(sa), f.normalize(sb)
	if f.rule.caseSensitive {
		return sa == sb
	}
	return strings.EqualFold(sa, sb)
}

func (f *stringField) QuickFilter(token string, _ ClientContext) mo.Option[predicate.Predicate] {
	if f.conf.noQuickFilter || token == "" {
		return mo.None[predicate.Predicate]()
	}
	return mo.Some(predicate.Contains(f.qualified(), token))
}

type intField struct {
	column
	validators []constraint.Validator[int64]
}

var _ Field = (*intField)(nil)

// IntField is an integer column accepting numbers and numeric strings.
func IntField(member string, opts ...FieldOption) Field {
	f := &intField{column: newColumn(member, KindPlainColumn, opts)}
	f.validators = compile[int64](member, nil, f.conf.checks)
	return f
}

func (f *intField) ValidateAndParse(row Row, _ Mode, _ ClientContext) ParseResult {
	v, ok := row[f.member]
	if !ok {
		return absent()
	}
	if v == nil {
		return f.null()
	}
	if blank(v) {
		return lo.Ternary(f.conf.nullable, success(nil), failure(constraint.ErrNotInteger))
	}
	i, err := coerce.Int64(v)
	if err != nil {
		return failure(constraint.ErrNotInteger)
	}
	if err = constraint.Check(i, f.validators); err != nil {
		return failure(err)
	}
	return success(i)
}

func (f *intField) IsEqual(a, b any) bool {
	if blank(a) || blank(b) {
		return blank(a) && blank(b)
	}
	ia, errA := coerce.Int64(a)
	ib, errB := coerce.Int64(b)
	if errA != nil || errB != nil {
		return equalValues(a, b)
	}
	return ia == ib
}

// QuickFilter matches the column exactly when the token is a number.
func (f *intField) QuickFilter(token string, _ ClientContext) mo.Option[predicate.Predicate] {
	if f.conf.noQuickFilter {
		return mo.None[predicate.Predicate]()
	}
	i, err := coerce.Int64(token)
	if err != nil {
		return mo.None[predicate.Predicate]()
	}
	return mo.Some(predicate.Eq(f.qualified(), i))
}

type boolField struct {
	column
}

var _ Field = (*boolField)(nil)

// BoolField is a boolean column accepting booleans and parseable strings.
func BoolField(member string, opts ...FieldOption) Field {
	return &boolField{column: newColumn(member, KindPlainColumn, opts)}
}

func (f *boolField) ValidateAndParse(row Row, _ Mode, _ ClientContext) ParseResult {
	v, ok := row[f.member]
	if !ok {
		return absent()
	}
	if v == nil {
		return f.null()
	}
	if blank(v) {
		return lo.Ternary(f.conf.nullable, success(nil), failure(constraint.ErrNotBoolean))
	}
	b, err := coerce.Bool(v)
	if err != nil {
		return failure(constraint.ErrNotBoolean)
	}
	return success(b)
}

func (f *boolField) IsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ba, errA := coerce.Bool(a)
	bb, errB := coerce.Bool(b)
	return errA == nil && errB == nil && ba == bb
}

type enumField struct {
	column
	options    map[string]string
	validators []constraint.Validator[string]
}

var _ Field = (*enumField)(nil)

// EnumField is a string column restricted to a closed option set. options
// maps each stored value to its display label.
func EnumField(member string, options map[string]string, opts ...FieldOption) Field {
	lo.Assertf(len(options) > 0, "xschema: enum field '%s' has no options", member)
	f := &enumField{column: newColumn(member, KindPlainColumn, opts), options: maps.Clone(options)}
	builtin := []constraint.ValidateFunc[string]{constraint.OneOf(f.values()...)}
	f.validators = compile(member, builtin, f.conf.checks)
	return f
}

func (f *enumField) values() []string {
	return slices.Sorted(maps.Keys(f.options))
}

// Options returns the stored values in sorted order.
func (f *enumField) Options() []string {
	return f.values()
}

func (f *enumField) ValidateAndParse(row Row, _ Mode, _ ClientContext) ParseResult {
	v, ok := row[f.member]
	if !ok {
		return absent()
	}
	if v == nil {
		return f.null()
	}
	s, ok := v.(string)
	if !ok {
		return failure(fmt.Errorf("%w '%v'", constraint.ErrUnrecognizedOption, v))
	}
	s = strings.TrimSpace(s)
	if s == "" && f.conf.nullable {
		return success(nil)
	}
	if err := constraint.Check(s, f.validators); err != nil {
		return failure(err)
	}
	return success(s)
}

func (f *enumField) IsEqual(a, b any) bool {
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.TrimSpace(sa) == strings.TrimSpace(sb)
	}
	return equalValues(a, b)
}

// QuickFilter matches the options whose value or label contains the token.
func (f *enumField) QuickFilter(token string, _ ClientContext) mo.Option[predicate.Predicate] {
	if f.conf.noQuickFilter {
		return mo.None[predicate.Predicate]()
	}
	needle := strings.ToLower(token)
	hits := lo.Filter(f.values(), func(v string, _ int) bool {
		return strings.Contains(strings.ToLower(v), needle) || strings.Contains(strings.ToLower(f.options[v]), needle)
	})
	if len(hits) == 0 {
		return mo.None[predicate.Predicate]()
	}
	return mo.Some(predicate.In(f.qualified(), hits...))
}

type colorField struct {
	column
	palette    []string
	validators []constraint.Validator[string]
}

var _ Field = (*colorField)(nil)

// ColorField is a string column restricted to a palette. New rows get the
// first palette entry unless a default is configured.
func ColorField(member string, palette []string, opts ...FieldOption) Field {
	lo.Assertf(len(palette) > 0, "xschema: color field '%s' has an empty palette", member)
	f := &colorField{column: newColumn(member, KindPlainColumn, opts), palette: slices.Clone(palette)}
	if f.conf.def.IsAbsent() {
		f.conf.def = mo.Some[any](palette[0])
	}
	f.validators = compile(member, []constraint.ValidateFunc[string]{constraint.InPalette(palette...)}, f.conf.checks)
	return f
}

func (f *colorField) ValidateAndParse(row Row, _ Mode, _ ClientContext) ParseResult {
	v, ok := row[f.member]
	if !ok {
		return absent()
	}
	if v == nil {
		return f.null()
	}
	s, ok := v.(string)
	if !ok {
		return failure(fmt.Errorf("%w '%v'", constraint.ErrUnrecognizedColor, v))
	}
	s = strings.TrimSpace(s)
	if s == "" && f.conf.nullable {
		return success(nil)
	}
	if err := constraint.Check(s, f.validators); err != nil {
		return failure(err)
	}
	canonical, _ := lo.Find(f.palette, func(c string) bool { return strings.EqualFold(c, s) })
	return success(canonical)
}

func (f *colorField) IsEqual(a, b any) bool {
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.EqualFold(strings.TrimSpace(sa), strings.TrimSpace(sb))
	}
	return equalValues(a, b)
}
