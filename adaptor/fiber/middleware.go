package fiber

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/internal"
	"github.com/kcmvp/xschema/predicate"
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
		c := ctx.(fiber.Ctx)
		return lo.SliceToMap(c.Route().Params, func(name string) (string, string) { return name, c.Params(name) })
	},
	func(ctx any) map[string][]string {
		return lo.MapValues(ctx.(fiber.Ctx).Queries(), func(v string, _ string) []string { return []string{v} })
	},
)

func fail(c fiber.Ctx, res xschema.ValidateAndDiffResult, err error) error {
	status, body := internal.Status(res, err)
	return c.Status(status).JSON(body)
}

// Client resolves the ClientContext of every request. A nil resolve reads
// the X-* client headers.
func Client(resolve Resolver) fiber.Handler {
	if resolve == nil {
		resolve = internal.ResolveHeaders
	}
	return func(c fiber.Ctx) error {
		cc, err := resolve(func(key string) string { return c.Get(key) })
		if err != nil {
			return fail(c, xschema.ValidateAndDiffResult{}, err)
		}
		c.Locals(xschema.ClientContextKey, cc)
		return c.Next()
	}
}

// Bind authorizes, validates and diffs the JSON body against t and stores
// the result for Mutation.
func Bind(t *xschema.Table, mode xschema.Mode, load Loader) fiber.Handler {
	return func(c fiber.Ctx) error {
		ps, err := params(c)
		if err != nil {
			return fail(c, xschema.ValidateAndDiffResult{}, err)
		}
		res, err := internal.Prepare(requestContext(c), t, string(c.Body()), ps, mode, load)
		if err != nil {
			return fail(c, res, err)
		}
		c.Locals(xschema.MutationKey, res)
		return c.Next()
	}
}

// Filter computes the where clause of t from the path and query parameters.
func Filter(t *xschema.Table) fiber.Handler {
	return func(c fiber.Ctx) error {
		ps, err := params(c)
		if err != nil {
			return fail(c, xschema.ValidateAndDiffResult{}, err)
		}
		where, err := t.CalculateWhereClause(requestContext(c), xschema.WhereInput{
			Filter:  internal.FilterModel(ps),
			Context: ClientContext(c),
		})
		if err != nil {
			return fail(c, xschema.ValidateAndDiffResult{}, err)
		}
		c.Locals(xschema.WhereKey, where)
		return c.Next()
	}
}

// requestContext is the fasthttp request context carrying the ClientContext
// stored by Client.
func requestContext(c fiber.Ctx) context.Context {
	return xschema.WithClientContext(c.RequestCtx(), ClientContext(c))
}

// ClientContext returns the ClientContext resolved by Client, or the
// anonymous public context.
func ClientContext(c fiber.Ctx) xschema.ClientContext {
	if cc, ok := c.Locals(xschema.ClientContextKey).(xschema.ClientContext); ok {
		return cc
	}
	return xschema.PublicContext()
}

// Mutation returns the result stored by Bind.
func Mutation(c fiber.Ctx) mo.Option[xschema.ValidateAndDiffResult] {
	res, ok := c.Locals(xschema.MutationKey).(xschema.ValidateAndDiffResult)
	return lo.Ternary(ok, mo.Some(res), mo.None[xschema.ValidateAndDiffResult]())
}

// Where returns the clause computed by Filter.
func Where(c fiber.Ctx) mo.Option[predicate.Predicate] {
	where, _ := c.Locals(xschema.WhereKey).(mo.Option[predicate.Predicate])
	return where
}
