package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeLayouts are the layouts tried, in order, when a string is
// converted to a time.
var DefaultTimeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

var (
	ErrNotConvertible = errors.New("not convertible")
	ErrEmpty          = errors.New("empty input")
)

// Int64 converts integer kinds, integral floats, json.Number and numeric
// strings into an int64. Strings are trimmed; an empty string yields ErrEmpty.
func Int64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, ErrEmpty
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse '%s' as int: %w", n, ErrNotConvertible)
		}
		return i, nil
	case json.Number:
		return Int64(string(n))
	case float32:
		return Int64(float64(n))
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("float %v is not integral: %w", n, ErrNotConvertible)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("float %v overflows int64: %w", n, ErrNotConvertible)
		}
		return int64(n), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("for type %T: %w", v, ErrNotConvertible)
		}
		return int64(u), nil
	}
	return 0, fmt.Errorf("type %T: %w", v, ErrNotConvertible)
}

// Bool converts booleans and strconv.ParseBool compatible strings.
func Bool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		s := strings.TrimSpace(b)
		if s == "" {
			return false, ErrEmpty
		}
		parsed, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("could not parse '%s' as bool: %w", b, ErrNotConvertible)
		}
		return parsed, nil
	}
	if i, err := Int64(v); err == nil && (i == 0 || i == 1) {
		return i == 1, nil
	}
	return false, fmt.Errorf("type %T: %w", v, ErrNotConvertible)
}

// Time converts a time.Time, a *time.Time or a string in one of
// DefaultTimeLayouts.
func Time(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, ErrEmpty
		}
		return *t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, ErrEmpty
		}
		for _, layout := range DefaultTimeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("incorrect date format for string '%s': %w", t, ErrNotConvertible)
	}
	return time.Time{}, fmt.Errorf("type %T: %w", v, ErrNotConvertible)
}

// Int64Slice converts a slice of integer-like values.
func Int64Slice(v any) ([]int64, error) {
	switch s := v.(type) {
	case []int64:
		return append([]int64{}, s...), nil
	case nil:
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		i, err := Int64(v)
		if err != nil {
			return nil, err
		}
		return []int64{i}, nil
	}
	out := make([]int64, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		n, err := Int64(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
