package constraint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMinLength(t *testing.T) {
	tests := []struct {
		name    string
		min     int
		str     string
		wantErr bool
	}{
		{"too short", 5, "abc", true},
		{"exact length", 5, "abcde", false},
		{"longer", 5, "abcdef", false},
		{"empty string below min", 1, "", true},
		{"empty string at min 0", 0, "", false},
		{"multibyte counts runes", 3, "äöü", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, v := MinLength(tt.min)()
			err := v(tt.str)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMinLength)
				require.Equal(t, "minimum length not satisfied", err.Error())
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMaxLength(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		str     string
		wantErr bool
	}{
		{"too long", 5, "abcdef", true},
		{"exact length", 5, "abcde", false},
		{"shorter", 5, "abc", false},
		{"max is 0", 0, "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, v := MaxLength(tt.max)()
			if err := v(tt.str); (err != nil) != tt.wantErr {
				t.Errorf("MaxLength() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid email", "test@example.com", false},
		{"valid with subdomain", "test@mail.example.com", false},
		{"valid with plus alias", "test+alias@example.com", false},
		{"display name", `"John Doe" <test@example.com>`, true},
		{"no domain", "test@", true},
		{"no local part", "@example.com", true},
		{"no at sign", "testexample.com", true},
		{"multiple at signs", "test@exa@mple.com", true},
		{"no tld", "test@example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, v := Email()()
			err := v(tt.email)
			if tt.wantErr {
				require.EqualError(t, err, "email not in the correct format")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		str     string
		wantErr bool
	}{
		{"match", "a*c", "abc", false},
		{"match long", "a*c", "adefbc", false},
		{"no match", "a*c", "abd", true},
		{"match with ?", "a?c", "abc", false},
		{"no match with ?", "a?c", "ac", true},
		{"empty str", "a*", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, f := Match(tt.pattern)()
			if err := f(tt.str); (err != nil) != tt.wantErr {
				t.Errorf("Match() for pattern '%s' and string '%s' error = %v, wantErr %v", tt.pattern, tt.str, err, tt.wantErr)
			}
		})
	}
}

func TestMatch_PanicOnInvalidPattern(t *testing.T) {
	for _, pattern := range []string{"[", ""} {
		t.Run(pattern, func(t *testing.T) {
			require.Panics(t, func() { _ = Match(pattern) })
		})
	}
}

func TestOneOf(t *testing.T) {
	_, v := OneOf("A", "B")()
	require.NoError(t, v("A"))
	require.EqualError(t, v("C"), "unrecognized option 'C'")
	require.ErrorIs(t, v("a"), ErrUnrecognizedOption)
}

func TestInPalette(t *testing.T) {
	_, v := InPalette("#ff0000", "#00ff00")()
	require.NoError(t, v("#FF0000"))
	require.EqualError(t, v("#123456"), "unrecognized color '#123456'")
}

func TestMinMax(t *testing.T) {
	_, minV := Min[int64](10)()
	require.NoError(t, minV(10))
	require.ErrorIs(t, minV(9), ErrMin)

	_, maxV := Max[int64](10)()
	require.NoError(t, maxV(10))
	require.ErrorIs(t, maxV(11), ErrMax)

	now := time.Now()
	_, minT := Min(now)()
	require.NoError(t, minT(now.Add(time.Second)))
	require.Error(t, minT(now.Add(-time.Second)))

	_, maxF := Max(1.5)()
	require.NoError(t, maxF(1.5))
	require.Error(t, maxF(1.6))
}

func TestCompile(t *testing.T) {
	vs := Compile("name", MinLength(2), MaxLength(4))
	require.Len(t, vs, 2)
	require.NoError(t, Check("abc", vs))
	require.ErrorIs(t, Check("a", vs), ErrMinLength)
	require.ErrorIs(t, Check("abcde", vs), ErrMaxLength)

	require.Panics(t, func() {
		Compile("password", MinLength(5), MinLength(10))
	})
}
