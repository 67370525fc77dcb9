package xschema

import (
	"context"
	"slices"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Intention is the scope a client claims for a request.
type Intention int

const (
	IntentionPublic Intention = iota
	IntentionUser
	IntentionAdmin
)

func (i Intention) String() string {
	switch i {
	case IntentionPublic:
		return "public"
	case IntentionUser:
		return "user"
	case IntentionAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseIntention maps "public", "user" and "admin" to an Intention.
func ParseIntention(s string) mo.Option[Intention] {
	for _, i := range []Intention{IntentionPublic, IntentionUser, IntentionAdmin} {
		if i.String() == s {
			return mo.Some(i)
		}
	}
	return mo.None[Intention]()
}

// FetchMode tells whether a row is fetched for itself or only because it is
// nested under another row.
type FetchMode int

const (
	FetchPrimary FetchMode = iota
	FetchRelation
)

// Permission is an opaque permission name granted to actors.
type Permission string

// PermissionPublic is held by everybody, including anonymous clients.
const PermissionPublic Permission = "public"

// Actor is the authenticated user behind a request.
type Actor struct {
	ID          int64
	RoleID      int64
	Admin       bool
	Permissions []Permission
}

// Has reports whether the actor holds p. Admin actors hold every permission.
func (a Actor) Has(p Permission) bool {
	return a.Admin || p == PermissionPublic || lo.Contains(a.Permissions, p)
}

// ClientContext describes who is asking and why. It is passed by value and
// never mutated; Descend derives the context used for nested relations.
type ClientContext struct {
	Intention    Intention
	Mode         FetchMode
	Actor        mo.Option[Actor]
	RelationPath []string
}

// PublicContext is an anonymous, public-intention context.
func PublicContext() ClientContext {
	return ClientContext{Intention: IntentionPublic, Actor: mo.None[Actor]()}
}

// UserContext is a user-intention context for actor.
func UserContext(actor Actor) ClientContext {
	return ClientContext{Intention: IntentionUser, Actor: mo.Some(actor)}
}

// AdminContext is an admin-intention context for actor.
func AdminContext(actor Actor) ClientContext {
	return ClientContext{Intention: IntentionAdmin, Actor: mo.Some(actor)}
}

// Descend returns a relation-mode copy of cc with segment appended to the
// relation path.
func (cc ClientContext) Descend(segment string) ClientContext {
	path := slices.Clone(cc.RelationPath)
	return ClientContext{
		Intention:    cc.Intention,
		Mode:         FetchRelation,
		Actor:        cc.Actor,
		RelationPath: append(path, segment),
	}
}

// OnPath reports whether segment already appears on the relation path.
func (cc ClientContext) OnPath(segment string) bool {
	return lo.Contains(cc.RelationPath, segment)
}

// IsAdmin reports whether the actor is an administrator.
func (cc ClientContext) IsAdmin() bool {
	actor, ok := cc.Actor.Get()
	return ok && actor.Admin
}

// ActorID returns the actor id, or None for an anonymous client.
func (cc ClientContext) ActorID() mo.Option[int64] {
	actor, ok := cc.Actor.Get()
	if !ok {
		return mo.None[int64]()
	}
	return mo.Some(actor.ID)
}

// Has reports whether the client holds p.
func (cc ClientContext) Has(p Permission) bool {
	if p == PermissionPublic {
		return true
	}
	if p == "" {
		return false
	}
	actor, ok := cc.Actor.Get()
	return ok && actor.Has(p)
}

// AuthContext is one of the five resolved permission-check situations.
type AuthContext int

const (
	AuthPostQuery AuthContext = iota
	AuthPostQueryAsOwner
	AuthPreInsert
	AuthPreMutate
	AuthPreMutateAsOwner
)

func (a AuthContext) String() string {
	switch a {
	case AuthPostQuery:
		return "PostQuery"
	case AuthPostQueryAsOwner:
		return "PostQueryAsOwner"
	case AuthPreInsert:
		return "PreInsert"
	case AuthPreMutate:
		return "PreMutate"
	case AuthPreMutateAsOwner:
		return "PreMutateAsOwner"
	default:
		return "unknown"
	}
}

// general maps an owner context to its non-owner counterpart.
func (a AuthContext) general() AuthContext {
	switch a {
	case AuthPostQueryAsOwner:
		return AuthPostQuery
	case AuthPreMutateAsOwner:
		return AuthPreMutate
	default:
		return a
	}
}

// RowMode is the operation a raw row arrives with.
type RowMode int

const (
	RowQuery RowMode = iota
	RowInsert
	RowMutate
)

// ResolveAuthContext picks the authorization context for a row operation.
func ResolveAuthContext(mode RowMode, owner bool) AuthContext {
	switch mode {
	case RowInsert:
		return AuthPreInsert
	case RowMutate:
		return lo.Ternary(owner, AuthPreMutateAsOwner, AuthPreMutate)
	default:
		return lo.Ternary(owner, AuthPostQueryAsOwner, AuthPostQuery)
	}
}

// AuthMap lists the permission required in each authorization context.
// A context without an entry is denied to everybody but administrators.
type AuthMap map[AuthContext]Permission

// Allows reports whether cc may act in ac. Owner contexts are also granted
// by the permission of the matching non-owner context, so being the owner
// never takes access away.
func (m AuthMap) Allows(ac AuthContext, cc ClientContext) bool {
	if cc.IsAdmin() {
		return true
	}
	if p, ok := m[ac]; ok && cc.Has(p) {
		return true
	}
	if g := ac.general(); g != ac {
		if p, ok := m[g]; ok && cc.Has(p) {
			return true
		}
	}
	return false
}

// TablePermissions is the table-level permission map.
type TablePermissions struct {
	View    Permission
	ViewOwn Permission
	Edit    Permission
	EditOwn Permission
	Insert  Permission
}

// AuthMap expresses the table permissions as a field authorization map. It
// is the default for fields declared without their own map.
func (p TablePermissions) AuthMap() AuthMap {
	m := AuthMap{}
	set := func(ac AuthContext, perm Permission) {
		if perm != "" {
			m[ac] = perm
		}
	}
	set(AuthPostQuery, p.View)
	set(AuthPostQueryAsOwner, p.ViewOwn)
	set(AuthPreInsert, p.Insert)
	set(AuthPreMutate, p.Edit)
	set(AuthPreMutateAsOwner, p.EditOwn)
	return m
}

// WithClientContext returns a copy of ctx carrying cc.
func WithClientContext(ctx context.Context, cc ClientContext) context.Context {
	return context.WithValue(ctx, ClientContextKey, cc)
}

// ClientContextFrom returns the ClientContext stored in ctx, or the
// anonymous public context.
func ClientContextFrom(ctx context.Context) ClientContext {
	if cc, ok := ctx.Value(ClientContextKey).(ClientContext); ok {
		return cc
	}
	return PublicContext()
}
