package internal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/app"
	request "github.com/kcmvp/xschema/internal"
	"github.com/kcmvp/xschema/sample"
	"github.com/kcmvp/xschema/sqlx"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type sessionKey struct{}

// Session is the state shared by the subcommands of one invocation.
type Session struct {
	Registry *xschema.Registry
	DB       mo.Option[sqlx.DB]
	Logger   *zap.Logger
}

// NewSession builds the sample registry. With useDB the default datasource
// backs role resolution, otherwise the static sample roles do.
func NewSession(useDB bool) (*Session, error) {
	logger := app.Logger()
	s := &Session{Logger: logger, DB: mo.None[sqlx.DB]()}
	var roles xschema.RoleResolver = sample.Roles()
	if useDB {
		db, ok := sqlx.DefaultDS()
		if !ok {
			return nil, fmt.Errorf("datasource %s is not configured", sqlx.DefaultDSName)
		}
		s.DB = mo.Some(db)
		roles = sqlx.NewRoleStore(db, app.PublicRole())
	}
	reg, err := sample.NewRegistry(xschema.WithRoles(roles), xschema.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	s.Registry = reg
	return s, nil
}

// Table returns the named table or ErrUnknownTable.
func (s *Session) Table(id string) (*xschema.Table, error) {
	t, ok := s.Registry.Table(id).Get()
	if !ok {
		return nil, fmt.Errorf("%w: %s", xschema.ErrUnknownTable, id)
	}
	return t, nil
}

// WithSession stores s in the command context.
func WithSession(cmd *cobra.Command, s *Session) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	cmd.SetContext(context.WithValue(parent, sessionKey{}, s))
}

// SessionOf returns the session stored by WithSession.
func SessionOf(cmd *cobra.Command) *Session {
	s, ok := cmd.Context().Value(sessionKey{}).(*Session)
	lo.Assertf(ok, "session is not initialized for %s", cmd.Name())
	return s
}

// ClientFlags describe the client a command acts as.
type ClientFlags struct {
	Intention   string
	Actor       int64
	Role        int64
	Admin       bool
	Permissions []string
}

// Bind registers the client flags on cmd.
func (f *ClientFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Intention, "intention", "", "public, user or admin (default user with --actor, public otherwise)")
	cmd.Flags().Int64Var(&f.Actor, "actor", 0, "actor user id, 0 for anonymous")
	cmd.Flags().Int64Var(&f.Role, "role", 0, "actor role id")
	cmd.Flags().BoolVar(&f.Admin, "admin", false, "actor is an administrator")
	cmd.Flags().StringSliceVar(&f.Permissions, "perm", nil, "permissions granted to the actor")
}

// Context converts the flags into a ClientContext with the same rules the
// HTTP adaptors apply to request headers.
func (f *ClientFlags) Context() (xschema.ClientContext, error) {
	h := map[string]string{
		request.HeaderIntention:   f.Intention,
		request.HeaderPermissions: strings.Join(f.Permissions, ","),
		request.HeaderAdmin:       strconv.FormatBool(f.Admin),
	}
	if f.Actor != 0 {
		h[request.HeaderActorID] = strconv.FormatInt(f.Actor, 10)
	}
	if f.Role != 0 {
		h[request.HeaderRoleID] = strconv.FormatInt(f.Role, 10)
	}
	return request.ResolveHeaders(func(k string) string { return h[k] })
}

// ParsePairs splits "key=value" arguments. Integral values become int64 and
// "null" becomes nil.
func ParsePairs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value but got %q", pair)
		}
		k = strings.TrimSpace(k)
		switch {
		case v == "null":
			out[k] = nil
		default:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				out[k] = n
			} else {
				out[k] = v
			}
		}
	}
	return out, nil
}
