package constraint

import "time"

type Number interface {
	uint | uint8 | uint16 | uint32 | uint64 | int | int8 | int16 | int32 | int64 | float32 | float64
}

// Value is the set of Go types a field descriptor validates after coercion.
type Value interface {
	Number | string | time.Time | bool
}

// Validator checks a coerced value and returns a user-facing error.
type Validator[T Value] func(v T) error

// ValidateFunc names a Validator so a field can reject duplicates at
// construction time.
type ValidateFunc[T Value] func() (string, Validator[T])
