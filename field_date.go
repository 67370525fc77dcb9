package xschema

import (
	"errors"
	"time"

	"github.com/kcmvp/xschema/coerce"
	"github.com/kcmvp/xschema/constraint"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Granularity is the calendar precision a date field compares at.
type Granularity string

const (
	GranularityYear   Granularity = "year"
	GranularityDay    Granularity = "day"
	GranularityMinute Granularity = "minute"
	GranularitySecond Granularity = "second"
)

// Truncate drops everything finer than the granularity, in UTC.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GranularityYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranularityMinute:
		return t.Truncate(time.Minute)
	default:
		return t.Truncate(time.Second)
	}
}

func (g Granularity) valid() bool {
	return lo.Contains([]Granularity{GranularityYear, GranularityDay, GranularityMinute, GranularitySecond}, g)
}

// parseTime converts raw input into a time, mapping failures to the user
// facing messages.
func parseTime(v any) (time.Time, error) {
	t, err := coerce.Time(v)
	if err != nil {
		if _, isString := v.(string); isString {
			return time.Time{}, constraint.ErrInvalidDate
		}
		return time.Time{}, constraint.ErrNotADate
	}
	if t.IsZero() {
		return time.Time{}, constraint.ErrInvalidDate
	}
	return t.UTC(), nil
}

// sameTime compares two raw values at the given granularity.
func sameTime(g Granularity, a, b any) bool {
	if blank(a) || blank(b) {
		return blank(a) && blank(b)
	}
	ta, errA := coerce.Time(a)
	tb, errB := coerce.Time(b)
	if errA != nil || errB != nil {
		return equalValues(a, b)
	}
	return g.Truncate(ta).Equal(g.Truncate(tb))
}

type dateField struct {
	column
	granularity Granularity
	validators  []constraint.Validator[time.Time]
}

var _ Field = (*dateField)(nil)

// DateField is a date/time column. Values are compared at the given
// granularity, so a day field ignores the time of day.
func DateField(member string, granularity Granularity, opts ...FieldOption) Field {
	lo.Assertf(granularity.valid(), "xschema: unknown date granularity '%s' for field '%s'", granularity, member)
	f := &dateField{column: newColumn(member, KindPlainColumn, opts), granularity: granularity}
	f.validators = compile[time.Time](member, nil, f.conf.checks)
	return f
}

func (f *dateField) ValidateAndParse(row Row, _ Mode, _ ClientContext) ParseResult {
	v, ok := row[f.member]
	if !ok {
		return absent()
	}
	if blank(v) {
		return f.null()
	}
	t, err := parseTime(v)
	if err != nil {
		return failure(err)
	}
	if err = constraint.Check(t, f.validators); err != nil {
		return failure(err)
	}
	return success(t)
}

func (f *dateField) IsEqual(a, b any) bool {
	return sameTime(f.granularity, a, b)
}

type createdAtField struct {
	column
}

var _ Field = (*createdAtField)(nil)

// CreatedAtField is the creation timestamp. It is stamped on new rows and
// ignored on every other request.
func CreatedAtField(member string, opts ...FieldOption) Field {
	return &createdAtField{column: newColumn(member, KindCalculated, opts)}
}

func (f *createdAtField) ValidateAndParse(_ Row, mode Mode, _ ClientContext) ParseResult {
	if mode != ModeNew {
		return absent()
	}
	return success(f.table.now())
}

func (f *createdAtField) IsEqual(a, b any) bool {
	return sameTime(GranularitySecond, a, b)
}

func (f *createdAtField) NewValue(ClientContext) mo.Option[any] {
	return mo.Some[any](f.table.now())
}

type createdByField struct {
	column
}

var _ Field = (*createdByField)(nil)

// CreatedByField records the actor who created the row.
func CreatedByField(member string, opts ...FieldOption) Field {
	return &createdByField{column: newColumn(member, KindCalculated, opts)}
}

var errNoActor = errors.New("an authenticated user is required")

func (f *createdByField) ValidateAndParse(_ Row, mode Mode, cc ClientContext) ParseResult {
	if mode != ModeNew {
		return absent()
	}
	id, ok := cc.ActorID().Get()
	if !ok {
		return lo.Ternary(f.conf.nullable, success(nil), failure(errNoActor))
	}
	return success(id)
}

func (f *createdByField) NewValue(cc ClientContext) mo.Option[any] {
	id, ok := cc.ActorID().Get()
	if !ok {
		return mo.None[any]()
	}
	return mo.Some[any](id)
}
