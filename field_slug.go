package xschema

import (
	"strings"
	"unicode"

	"github.com/kcmvp/xschema/constraint"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify transliterates s to ASCII, lower-cases it and joins the remaining
// letters and digits with single hyphens: "Café Society!" becomes
// "cafe-society".
func Slugify(s string) string {
	// a transform.Chain keeps state, so it is built per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

type slugField struct {
	column
	source string
}

var _ Field = (*slugField)(nil)

// SlugField is derived from the source member when a row is created and
// accepts direct edits afterwards. It can never be empty.
func SlugField(member, source string, opts ...FieldOption) Field {
	return &slugField{column: newColumn(member, KindPlainColumn, opts), source: source}
}

func (f *slugField) ValidateAndParse(row Row, mode Mode, _ ClientContext) ParseResult {
	if mode == ModeNew {
		if src, ok := row.Get(f.source).Get(); ok {
			s, isString := src.(string)
			if !isString {
				return failure(constraint.ErrNotString)
			}
			return f.check(Slugify(s))
		}
	}
	v, ok := row[f.member]
	if !ok {
		return absent()
	}
	if v == nil {
		return failure(constraint.ErrNonNull)
	}
	s, isString := v.(string)
	if !isString {
		return failure(constraint.ErrNotString)
	}
	return f.check(strings.TrimSpace(s))
}

func (f *slugField) check(slug string) ParseResult {
	if slug == "" {
		return failure(constraint.ErrMinLength)
	}
	return success(slug)
}
