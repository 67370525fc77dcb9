package gin

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
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
		return lo.SliceToMap(ctx.(*gin.Context).Params, func(p gin.Param) (string, string) { return p.Key, p.Value })
	},
	func(ctx any) map[string][]string {
		return ctx.(*gin.Context).Request.URL.Query()
	},
)

func withValue(c *gin.Context, key, value any) {
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), key, value))
}

// Client resolves the ClientContext of every request. A nil resolve reads
// the X-* client headers.
func Client(resolve Resolver) gin.HandlerFunc {
	if resolve == nil {
		resolve = internal.ResolveHeaders
	}
	return func(c *gin.Context) {
		cc, err := resolve(c.GetHeader)
		if err != nil {
			status, body := internal.Status(xschema.ValidateAndDiffResult{}, err)
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Request = c.Request.WithContext(xschema.WithClientContext(c.Request.Context(), cc))
		c.Next()
	}
}

// Bind authorizes, validates and diffs the JSON body against t. On success
// the result is stored for Mutation. Validation failures abort with 400 and
// the per-member messages, denials with 403.
func Bind(t *xschema.Table, mode xschema.Mode, load Loader) gin.HandlerFunc {
	return func(c *gin.Context) {
		bts := mo.TupleToResult[[]byte](io.ReadAll(c.Request.Body))
		if bts.IsError() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": bts.Error().Error()})
			return
		}
		ps, err := params(c)
		if err != nil {
			status, body := internal.Status(xschema.ValidateAndDiffResult{}, err)
			c.AbortWithStatusJSON(status, body)
			return
		}
		res, err := internal.Prepare(c.Request.Context(), t, string(bts.MustGet()), ps, mode, load)
		if err != nil {
			status, body := internal.Status(res, err)
			c.AbortWithStatusJSON(status, body)
			return
		}
		withValue(c, xschema.MutationKey, res)
		c.Next()
	}
}

// Filter computes the where clause of t from the path and query parameters:
// "q" is the quick filter, the others feed the parameterized filter.
func Filter(t *xschema.Table) gin.HandlerFunc {
	return func(c *gin.Context) {
		ps, err := params(c)
		if err == nil {
			var where mo.Option[predicate.Predicate]
			where, err = t.CalculateWhereClause(c.Request.Context(), xschema.WhereInput{
				Filter:  internal.FilterModel(ps),
				Context: xschema.ClientContextFrom(c.Request.Context()),
			})
			if err == nil {
				withValue(c, xschema.WhereKey, where)
				c.Next()
				return
			}
		}
		status, body := internal.Status(xschema.ValidateAndDiffResult{}, err)
		c.AbortWithStatusJSON(status, body)
	}
}

// ClientContext returns the ClientContext resolved by Client.
func ClientContext(c *gin.Context) xschema.ClientContext {
	return xschema.ClientContextFrom(c.Request.Context())
}

// Mutation returns the result stored by Bind.
func Mutation(c *gin.Context) mo.Option[xschema.ValidateAndDiffResult] {
	res, ok := c.Request.Context().Value(xschema.MutationKey).(xschema.ValidateAndDiffResult)
	return lo.Ternary(ok, mo.Some(res), mo.None[xschema.ValidateAndDiffResult]())
}

// Where returns the clause computed by Filter.
func Where(c *gin.Context) mo.Option[predicate.Predicate] {
	where, _ := c.Request.Context().Value(xschema.WhereKey).(mo.Option[predicate.Predicate])
	return where
}
