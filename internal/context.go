package internal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kcmvp/xschema"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Headers read by ResolveHeaders. They are expected to be set by an
// authenticating proxy, never trusted from end users directly.
const (
	HeaderIntention   = "X-Intention"
	HeaderActorID     = "X-Actor-Id"
	HeaderRoleID      = "X-Role-Id"
	HeaderAdmin       = "X-Admin"
	HeaderPermissions = "X-Permissions"
)

// ErrBadClient reports malformed client headers.
var ErrBadClient = errors.New("invalid client headers")

// Resolver builds the ClientContext of a request from a header getter.
type Resolver func(header func(string) string) (xschema.ClientContext, error)

// ResolveHeaders is the default Resolver. Without an actor id the client is
// anonymous and public. The intention defaults to user for an actor.
func ResolveHeaders(header func(string) string) (xschema.ClientContext, error) {
	rawID := strings.TrimSpace(header(HeaderActorID))
	if rawID == "" {
		if i := header(HeaderIntention); i != "" && i != xschema.IntentionPublic.String() {
			return xschema.ClientContext{}, fmt.Errorf("%w: %s %q requires an actor", ErrBadClient, HeaderIntention, i)
		}
		return xschema.PublicContext(), nil
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return xschema.ClientContext{}, fmt.Errorf("%w: %s: %w", ErrBadClient, HeaderActorID, err)
	}
	actor := xschema.Actor{ID: id}
	if raw := strings.TrimSpace(header(HeaderRoleID)); raw != "" {
		if actor.RoleID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return xschema.ClientContext{}, fmt.Errorf("%w: %s: %w", ErrBadClient, HeaderRoleID, err)
		}
	}
	if raw := header(HeaderAdmin); raw != "" {
		if actor.Admin, err = strconv.ParseBool(raw); err != nil {
			return xschema.ClientContext{}, fmt.Errorf("%w: %s: %w", ErrBadClient, HeaderAdmin, err)
		}
	}
	actor.Permissions = lo.FilterMap(strings.Split(header(HeaderPermissions), ","), func(p string, _ int) (xschema.Permission, bool) {
		p = strings.TrimSpace(p)
		return xschema.Permission(p), p != ""
	})
	intention := xschema.IntentionUser
	if raw := header(HeaderIntention); raw != "" {
		var ok bool
		if intention, ok = xschema.ParseIntention(raw).Get(); !ok {
			return xschema.ClientContext{}, fmt.Errorf("%w: %s %q", ErrBadClient, HeaderIntention, raw)
		}
	}
	if intention == xschema.IntentionAdmin && !actor.Admin {
		return xschema.ClientContext{}, fmt.Errorf("%w: admin intention for a non admin actor", ErrBadClient)
	}
	return xschema.ClientContext{Intention: intention, Actor: mo.Some(actor)}, nil
}
