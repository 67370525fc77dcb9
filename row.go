package xschema

import (
	"fmt"
	"maps"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/kcmvp/xschema/coerce"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/tidwall/gjson"
)

// Row is a flat record keyed by member name. It is used for client rows,
// storage rows, mutation rows and sanitized models alike.
type Row map[string]any

// Has reports whether the member is present, even with a nil value.
func (r Row) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Get returns the raw value of the member.
func (r Row) Get(name string) mo.Option[any] {
	v, ok := r[name]
	if !ok {
		return mo.None[any]()
	}
	return mo.Some(v)
}

// get retrieves a value of type T. It returns None when the key is absent,
// nil or holds a value of another type. Unvalidated client rows reach the
// getters through RowInfoFunc, so a mismatch must not panic.
func get[T any](r Row, name string) mo.Option[T] {
	value, ok := r[name]
	if !ok || value == nil {
		return mo.None[T]()
	}
	typedValue, ok := value.(T)
	if !ok {
		return mo.None[T]()
	}
	return mo.Some(typedValue)
}

// String returns the string value of the member.
func (r Row) String(name string) mo.Option[string] {
	return get[string](r, name)
}

// Bool returns the bool value of the member.
func (r Row) Bool(name string) mo.Option[bool] {
	return get[bool](r, name)
}

// Time returns the time.Time value of the member.
func (r Row) Time(name string) mo.Option[time.Time] {
	return get[time.Time](r, name)
}

// Object returns the nested row stored under the member.
func (r Row) Object(name string) mo.Option[Row] {
	switch v := r[name].(type) {
	case Row:
		return mo.Some(v)
	case map[string]any:
		return mo.Some(Row(v))
	default:
		return mo.None[Row]()
	}
}

// Int64 returns the member as an int64. Unlike the other getters it accepts
// any integral representation, since storage drivers and JSON decoders
// disagree on integer widths.
func (r Row) Int64(name string) mo.Option[int64] {
	v, ok := r[name]
	if !ok || v == nil {
		return mo.None[int64]()
	}
	i, err := coerce.Int64(v)
	if err != nil {
		return mo.None[int64]()
	}
	return mo.Some(i)
}

// Keys returns the member names in sorted order.
func (r Row) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Clone returns a deep copy. Nested rows and slices are copied, other values
// are shared.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Row:
		return t.Clone()
	case map[string]any:
		return Row(t).Clone()
	case []any:
		return lo.Map(t, func(item any, _ int) any { return cloneValue(item) })
	case []int64:
		return slices.Clone(t)
	case []Row:
		return lo.Map(t, func(item Row, _ int) Row { return item.Clone() })
	default:
		return v
	}
}

// RowFromJSON decodes a JSON object into a Row. Integral numbers become int64,
// other numbers float64, nested objects Row and arrays []any.
func RowFromJSON(body string) mo.Result[Row] {
	if !gjson.Valid(body) {
		return mo.Err[Row](ErrInvalidJSON)
	}
	res := gjson.Parse(body)
	if !res.IsObject() {
		return mo.Err[Row](fmt.Errorf("%w: expected an object but got %s", ErrInvalidJSON, res.Type))
	}
	return mo.Ok(fromObject(res))
}

func fromObject(res gjson.Result) Row {
	row := Row{}
	res.ForEach(func(key, value gjson.Result) bool {
		row[key.String()] = fromJSON(value)
		return true
	})
	return row
}

func fromJSON(res gjson.Result) any {
	switch res.Type {
	case gjson.Null:
		return nil
	case gjson.True, gjson.False:
		return res.Bool()
	case gjson.String:
		return res.String()
	case gjson.Number:
		bf, _, err := new(big.Float).Parse(res.Raw, 10)
		if err == nil && bf.IsInt() {
			if bi, _ := bf.Int(nil); bi.IsInt64() {
				return bi.Int64()
			}
		}
		return res.Float()
	default:
		if res.IsArray() {
			return lo.Map(res.Array(), func(item gjson.Result, _ int) any { return fromJSON(item) })
		}
		if res.IsObject() {
			return fromObject(res)
		}
		return res.Value()
	}
}

// validationError holds one error message per field.
type validationError struct {
	errors map[string]string
}

// Error implements the error interface, listing fields in sorted order.
func (e *validationError) Error() string {
	if e == nil || len(e.errors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("validation failed with the following errors:")
	for _, name := range slices.Sorted(maps.Keys(e.errors)) {
		b.WriteString(fmt.Sprintf(" - %s: %s", name, e.errors[name]))
	}
	return b.String()
}

// Add records the message for a field.
func (e *validationError) Add(fieldName string, msg string) {
	if e.errors == nil {
		e.errors = make(map[string]string)
	}
	e.errors[fieldName] = msg
}

// Err returns the validationError as a single error if it contains any errors.
func (e *validationError) Err() error {
	if e == nil || len(e.errors) == 0 {
		return nil
	}
	return e
}

// Unwrap lets callers test for ErrValidation.
func (e *validationError) Unwrap() error {
	return ErrValidation
}
