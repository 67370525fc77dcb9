package echo

import (
	"context"
	"io"
	"net/http"

	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/internal"
	"github.com/kcmvp/xschema/predicate"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

type (
	// Resolver builds the ClientContext of a request from its headers.
	Resolver = internal.Resolver
	// Loader loads the stored row an update applies to.
	Loader = internal.Loader
)

var params = internal.Unify(
	func(ctx any) map[string]string {
		c := ctx.(echo.Context)
		return lo.SliceToMap(c.ParamNames(), func(name string) (string, string) { return name, c.Param(name) })
	},
	func(ctx any) map[string][]string {
		return ctx.(echo.Context).QueryParams()
	},
)

func withValue(c echo.Context, key, value any) {
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), key, value)))
}

func fail(c echo.Context, res xschema.ValidateAndDiffResult, err error) error {
	status, body := internal.Status(res, err)
	return c.JSON(status, body)
}

// Client resolves the ClientContext of every request. A nil resolve reads
// the X-* client headers.
func Client(resolve Resolver) echo.MiddlewareFunc {
	if resolve == nil {
		resolve = internal.ResolveHeaders
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc, err := resolve(c.Request().Header.Get)
			if err != nil {
				return fail(c, xschema.ValidateAndDiffResult{}, err)
			}
			req := c.Request()
			c.SetRequest(req.WithContext(xschema.WithClientContext(req.Context(), cc)))
			return next(c)
		}
	}
}

// Bind authorizes, validates and diffs the JSON body against t and stores
// the result for Mutation.
func Bind(t *xschema.Table, mode xschema.Mode, load Loader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bts := mo.TupleToResult(io.ReadAll(c.Request().Body))
			if bts.IsError() {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
			}
			ps, err := params(c)
			if err != nil {
				return fail(c, xschema.ValidateAndDiffResult{}, err)
			}
			res, err := internal.Prepare(c.Request().Context(), t, string(bts.MustGet()), ps, mode, load)
			if err != nil {
				return fail(c, res, err)
			}
			withValue(c, xschema.MutationKey, res)
			return next(c)
		}
	}
}

// Filter computes the where clause of t from the path and query parameters.
func Filter(t *xschema.Table) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ps, err := params(c)
			if err != nil {
				return fail(c, xschema.ValidateAndDiffResult{}, err)
			}
			where, err := t.CalculateWhereClause(c.Request().Context(), xschema.WhereInput{
				Filter:  internal.FilterModel(ps),
				Context: ClientContext(c),
			})
			if err != nil {
				return fail(c, xschema.ValidateAndDiffResult{}, err)
			}
			withValue(c, xschema.WhereKey, where)
			return next(c)
		}
	}
}

// ClientContext returns the ClientContext resolved by Client.
func ClientContext(c echo.Context) xschema.ClientContext {
	return xschema.ClientContextFrom(c.Request().Context())
}

// Mutation returns the result stored by Bind.
func Mutation(c echo.Context) mo.Option[xschema.ValidateAndDiffResult] {
	res, ok := c.Request().Context().Value(xschema.MutationKey).(xschema.ValidateAndDiffResult)
	return lo.Ternary(ok, mo.Some(res), mo.None[xschema.ValidateAndDiffResult]())
}

// Where returns the clause computed by Filter.
func Where(c echo.Context) mo.Option[predicate.Predicate] {
	where, _ := c.Request().Context().Value(xschema.WhereKey).(mo.Option[predicate.Predicate])
	return where
}
