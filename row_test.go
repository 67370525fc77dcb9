package xschema

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRowFromJSON(t *testing.T) {
	row := RowFromJSON(`{"id": 12, "name": "Jazz", "ratio": 1.5, "ok": true, "none": null,
		"venue": {"id": 3, "name": "Hall"}, "tags": [{"tagId": 1}, {"tagId": 2}]}`).MustGet()
	require.Equal(t, int64(12), row["id"])
	require.Equal(t, "Jazz", row["name"])
	require.Equal(t, 1.5, row["ratio"])
	require.Equal(t, true, row["ok"])
	require.True(t, row.Has("none"))
	require.Nil(t, row["none"])
	require.Equal(t, Row{"id": int64(3), "name": "Hall"}, row["venue"])
	require.Equal(t, []any{Row{"tagId": int64(1)}, Row{"tagId": int64(2)}}, row["tags"])
}

func TestRowFromJSONInvalid(t *testing.T) {
	tests := []string{`{"id": }`, `[1, 2]`, `"text"`, ``}
	for _, body := range tests {
		res := RowFromJSON(body)
		require.True(t, res.IsError(), body)
		require.True(t, errors.Is(res.Error(), ErrInvalidJSON), body)
	}
}

func TestRowGetters(t *testing.T) {
	now := time.Now()
	row := Row{"name": "x", "count": 5, "big": int64(9), "flag": true, "at": now, "nil": nil, "obj": map[string]any{"id": 1}}
	require.Equal(t, "x", row.String("name").MustGet())
	require.Equal(t, int64(5), row.Int64("count").MustGet())
	require.Equal(t, int64(9), row.Int64("big").MustGet())
	require.True(t, row.Int64("name").IsAbsent())
	require.True(t, row.Bool("flag").MustGet())
	require.Equal(t, now, row.Time("at").MustGet())
	require.True(t, row.String("nil").IsAbsent())
	require.True(t, row.String("missing").IsAbsent())
	require.Equal(t, Row{"id": 1}, row.Object("obj").MustGet())
	require.True(t, row.Object("name").IsAbsent())
	require.True(t, row.String("count").IsAbsent())
	require.True(t, row.Bool("name").IsAbsent())
	require.True(t, row.Time("flag").IsAbsent())
	require.Equal(t, []string{"at", "big", "count", "flag", "name", "nil", "obj"}, row.Keys())
}

func TestRowClone(t *testing.T) {
	row := Row{"venue": Row{"id": 1}, "tags": []any{Row{"tagId": 1}}, "ids": []int64{1, 2}}
	clone := row.Clone()
	require.Equal(t, row, clone)
	clone["venue"].(Row)["id"] = 2
	clone["tags"].([]any)[0].(Row)["tagId"] = 9
	clone["ids"].([]int64)[0] = 5
	require.Equal(t, 1, row["venue"].(Row)["id"])
	require.Equal(t, 1, row["tags"].([]any)[0].(Row)["tagId"])
	require.Equal(t, []int64{1, 2}, row["ids"])
	require.Nil(t, Row(nil).Clone())
}

func TestValidationError(t *testing.T) {
	errs := &validationError{}
	require.NoError(t, errs.Err())
	errs.Add("name", "minimum length not satisfied")
	errs.Add("capacity", "Input string was not convertible to integer")
	err := errs.Err()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "validation failed with the following errors: - capacity: Input string was not convertible to integer - name: minimum length not satisfied", err.Error())
}
