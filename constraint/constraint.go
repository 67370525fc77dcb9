package constraint

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/tidwall/match"
)

// Field validation messages. They are shown to end users verbatim, so the
// text of each sentinel is part of the contract.
var (
	ErrNonNull            = errors.New("field must be non-null")
	ErrMinLength          = errors.New("minimum length not satisfied")
	ErrMaxLength          = errors.New("maximum length exceeded")
	ErrEmail              = errors.New("email not in the correct format")
	ErrNotString          = errors.New("value must be a string")
	ErrNotInteger         = errors.New("Input string was not convertible to integer")
	ErrNotBoolean         = errors.New("Input was not convertible to boolean")
	ErrUnrecognizedOption = errors.New("unrecognized option")
	ErrUnrecognizedColor  = errors.New("unrecognized color")
	ErrNotADate           = errors.New("Not a valid date")
	ErrInvalidDate        = errors.New("Date is invalid")
	ErrNotArray           = errors.New("value must be an array of association records")
	ErrMissingForeignID   = errors.New("association record is missing a foreign id")
	ErrNotMatch           = errors.New("does not match pattern")

	ErrMin = errors.New("must be at least")
	ErrMax = errors.New("must be at most")
)

// emailPattern is the conventional "something@something.tld" check.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// --- String Validators ---

// MinLength validates that a string has at least min characters.
func MinLength(min int) ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "min_length", func(str string) error {
			return lo.Ternary(utf8.RuneCountInString(str) < min, ErrMinLength, nil)
		}
	}
}

// MaxLength validates that a string has at most max characters.
func MaxLength(max int) ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "max_length", func(str string) error {
			return lo.Ternary(utf8.RuneCountInString(str) > max, ErrMaxLength, nil)
		}
	}
}

// Email validates that a string looks like an email address.
func Email() ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "email", func(str string) error {
			return lo.Ternary(!emailPattern.MatchString(str), ErrEmail, nil)
		}
	}
}

// Match validates that a string matches a given pattern.
// The pattern can include wildcards:
//   - `*`: matches any sequence of characters.
//   - `?`: matches any single character.
//
// Example: Match("SKU-*") will match "SKU-1", "SKU-ab", etc.
func Match(pattern string) ValidateFunc[string] {
	lo.Assertf(match.IsPattern(pattern), "invalid pattern `%s`: `?` stands for one character, `*` stands for any number of characters", pattern)
	return func() (string, Validator[string]) {
		return "match", func(str string) error {
			return lo.Ternary(!match.Match(str, pattern), fmt.Errorf("%w %s", ErrNotMatch, pattern), nil)
		}
	}
}

// OneOf validates that a string equals one of the allowed options. The error
// reads "unrecognized option '<value>'".
func OneOf(allowed ...string) ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "one_of", func(val string) error {
			return lo.Ternary(!lo.Contains(allowed, val), fmt.Errorf("%w '%s'", ErrUnrecognizedOption, val), nil)
		}
	}
}

// InPalette validates that a color is one of the palette entries, ignoring case.
func InPalette(palette ...string) ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "in_palette", func(val string) error {
			_, ok := lo.Find(palette, func(c string) bool { return strings.EqualFold(c, val) })
			return lo.Ternary(!ok, fmt.Errorf("%w '%s'", ErrUnrecognizedColor, val), nil)
		}
	}
}

// --- Number and Date Validators ---

// Min validates that a number or time.Time is greater than or equal to a minimum value.
func Min[T Number | time.Time](min T) ValidateFunc[T] {
	return func() (string, Validator[T]) {
		return "min", func(val T) error {
			return lo.Ternary(isLessThan(val, min), fmt.Errorf("%w %v", ErrMin, min), nil)
		}
	}
}

// Max validates that a number or time.Time is less than or equal to a maximum value.
func Max[T Number | time.Time](max T) ValidateFunc[T] {
	return func() (string, Validator[T]) {
		return "max", func(val T) error {
			return lo.Ternary(isGreaterThan(val, max), fmt.Errorf("%w %v", ErrMax, max), nil)
		}
	}
}

// Compile turns validator factories into validators, panicking on a
// duplicated validator name.
func Compile[T Value](owner string, vfs ...ValidateFunc[T]) []Validator[T] {
	names := make(map[string]struct{}, len(vfs))
	out := make([]Validator[T], 0, len(vfs))
	for _, vf := range vfs {
		n, v := vf()
		_, exists := names[n]
		lo.Assertf(!exists, "constraint: duplicate validator '%s' for field '%s'", n, owner)
		names[n] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Check runs validators in order and returns the first failure.
func Check[T Value](val T, validators []Validator[T]) error {
	for _, v := range validators {
		if err := v(val); err != nil {
			return err
		}
	}
	return nil
}

// isGreaterThan reports whether a is strictly greater than b.
func isGreaterThan[T Number | time.Time](a, b T) bool {
	switch v := any(a).(type) {
	case time.Time:
		return v.After(any(b).(time.Time))
	case int:
		return v > any(b).(int)
	case int8:
		return v > any(b).(int8)
	case int16:
		return v > any(b).(int16)
	case int32:
		return v > any(b).(int32)
	case int64:
		return v > any(b).(int64)
	case uint:
		return v > any(b).(uint)
	case uint8:
		return v > any(b).(uint8)
	case uint16:
		return v > any(b).(uint16)
	case uint32:
		return v > any(b).(uint32)
	case uint64:
		return v > any(b).(uint64)
	case float32:
		return v > any(b).(float32)
	case float64:
		return v > any(b).(float64)
	}
	return false
}

// isLessThan reports whether a is strictly less than b.
func isLessThan[T Number | time.Time](a, b T) bool {
	switch v := any(a).(type) {
	case time.Time:
		return v.Before(any(b).(time.Time))
	case int:
		return v < any(b).(int)
	case int8:
		return v < any(b).(int8)
	case int16:
		return v < any(b).(int16)
	case int32:
		return v < any(b).(int32)
	case int64:
		return v < any(b).(int64)
	case uint:
		return v < any(b).(uint)
	case uint8:
		return v < any(b).(uint8)
	case uint16:
		return v < any(b).(uint16)
	case uint32:
		return v < any(b).(uint32)
	case uint64:
		return v < any(b).(uint64)
	case float32:
		return v < any(b).(float32)
	case float64:
		return v < any(b).(float64)
	}
	return false
}
