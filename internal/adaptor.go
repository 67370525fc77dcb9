package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kcmvp/xschema"
)

// ErrParamConflict reports a name used both as a path and a query parameter.
var ErrParamConflict = errors.New("parameter is both a path and a query parameter")

// QuickFilterParam is the query parameter holding the quick filter text.
const QuickFilterParam = "q"

// PathParamFunc extracts the path parameters of a framework context.
type PathParamFunc func(ctx any) map[string]string

// QueryParamFunc extracts the query parameters of a framework context.
type QueryParamFunc func(ctx any) map[string][]string

// Unify returns a function merging path and query parameters. A query
// parameter with several values is kept as a slice.
func Unify(pathFunc PathParamFunc, queryFunc QueryParamFunc) func(ctx any) (map[string]any, error) {
	return func(ctx any) (map[string]any, error) {
		data := make(map[string]any)
		pathParams := pathFunc(ctx)
		for k, v := range pathParams {
			data[k] = v
		}
		queryParams := queryFunc(ctx)
		for key, values := range queryParams {
			if _, exists := pathParams[key]; exists {
				return nil, fmt.Errorf("%w: %s", ErrParamConflict, key)
			}
			switch {
			case len(values) == 1:
				data[key] = values[0]
			case len(values) > 1:
				data[key] = values
			}
		}
		return data, nil
	}
}

// FilterModel turns request parameters into a filter: "q" is the quick
// filter, every other parameter feeds the table's parameterized filter.
func FilterModel(params map[string]any) xschema.FilterModel {
	fm := xschema.FilterModel{Params: map[string]any{}}
	for k, v := range params {
		if k == QuickFilterParam {
			if s, ok := v.(string); ok {
				fm.QuickFilter = strings.TrimSpace(s)
			}
			continue
		}
		fm.Params[k] = v
	}
	return fm
}
