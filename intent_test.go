package xschema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIntention(t *testing.T) {
	require.Equal(t, IntentionAdmin, ParseIntention("admin").MustGet())
	require.Equal(t, IntentionPublic, ParseIntention("public").MustGet())
	require.True(t, ParseIntention("root").IsAbsent())
}

func TestDescend(t *testing.T) {
	root := UserContext(Actor{ID: 7})
	first := root.Descend("events")
	second := first.Descend("venues")
	require.Equal(t, FetchPrimary, root.Mode)
	require.Empty(t, root.RelationPath)
	require.Equal(t, FetchRelation, first.Mode)
	require.Equal(t, []string{"events"}, first.RelationPath)
	require.Equal(t, []string{"events", "venues"}, second.RelationPath)
	require.True(t, second.OnPath("events"))
	require.False(t, first.OnPath("venues"))
	require.Equal(t, int64(7), second.ActorID().MustGet())
}

func TestClientContextHas(t *testing.T) {
	anonymous := PublicContext()
	require.True(t, anonymous.Has(PermissionPublic))
	require.False(t, anonymous.Has("events:edit"))
	require.False(t, anonymous.Has(""))

	user := UserContext(Actor{ID: 1, Permissions: []Permission{"events:edit"}})
	require.True(t, user.Has("events:edit"))
	require.False(t, user.Has("events:insert"))

	admin := AdminContext(Actor{ID: 2, Admin: true})
	require.True(t, admin.Has("anything"))
	require.True(t, admin.IsAdmin())
	require.False(t, user.IsAdmin())
}

func TestResolveAuthContext(t *testing.T) {
	tests := []struct {
		mode  RowMode
		owner bool
		want  AuthContext
	}{
		{RowQuery, false, AuthPostQuery},
		{RowQuery, true, AuthPostQueryAsOwner},
		{RowInsert, false, AuthPreInsert},
		{RowInsert, true, AuthPreInsert},
		{RowMutate, false, AuthPreMutate},
		{RowMutate, true, AuthPreMutateAsOwner},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			require.Equal(t, tt.want, ResolveAuthContext(tt.mode, tt.owner))
		})
	}
}

func TestAuthMapAdminOverride(t *testing.T) {
	admin := AdminContext(Actor{ID: 1, Admin: true})
	for _, ac := range []AuthContext{AuthPostQuery, AuthPostQueryAsOwner, AuthPreInsert, AuthPreMutate, AuthPreMutateAsOwner} {
		require.True(t, AuthMap{}.Allows(ac, admin), ac.String())
	}
}

func TestAuthMapOwnerMonotonic(t *testing.T) {
	perms := []Permission{"", PermissionPublic, "edit", "edit-own"}
	actors := []ClientContext{
		PublicContext(),
		UserContext(Actor{ID: 1}),
		UserContext(Actor{ID: 1, Permissions: []Permission{"edit"}}),
		UserContext(Actor{ID: 1, Permissions: []Permission{"edit-own"}}),
	}
	pairs := map[AuthContext]AuthContext{
		AuthPostQueryAsOwner: AuthPostQuery,
		AuthPreMutateAsOwner: AuthPreMutate,
	}
	for owner, general := range pairs {
		for _, ownerPerm := range perms {
			for _, generalPerm := range perms {
				m := AuthMap{}
				if ownerPerm != "" {
					m[owner] = ownerPerm
				}
				if generalPerm != "" {
					m[general] = generalPerm
				}
				for _, cc := range actors {
					if m.Allows(general, cc) {
						require.True(t, m.Allows(owner, cc), "owner context must not deny what %s grants", general)
					}
				}
			}
		}
	}
}

func TestTablePermissionsAuthMap(t *testing.T) {
	m := TablePermissions{View: PermissionPublic, Edit: "edit", EditOwn: "edit-own"}.AuthMap()
	require.Equal(t, AuthMap{AuthPostQuery: PermissionPublic, AuthPreMutate: "edit", AuthPreMutateAsOwner: "edit-own"}, m)
	user := UserContext(Actor{ID: 3})
	require.True(t, m.Allows(AuthPostQuery, user))
	require.True(t, m.Allows(AuthPostQueryAsOwner, user))
	require.False(t, m.Allows(AuthPreInsert, user))
	require.False(t, m.Allows(AuthPreMutate, user))
	require.True(t, m.Allows(AuthPreMutateAsOwner, UserContext(Actor{ID: 3, Permissions: []Permission{"edit-own"}})))
}

func TestClientContextFrom(t *testing.T) {
	require.Equal(t, PublicContext(), ClientContextFrom(t.Context()))
	cc := UserContext(Actor{ID: 3, RoleID: 10})
	ctx := WithClientContext(t.Context(), cc)
	require.Equal(t, cc, ClientContextFrom(ctx))
}

func TestActorID(t *testing.T) {
	require.True(t, PublicContext().ActorID().IsAbsent())
	require.Equal(t, int64(7), UserContext(Actor{ID: 7}).ActorID().MustGet())
}

func TestEnumStrings(t *testing.T) {
	require.Equal(t, "PreMutateAsOwner", AuthPreMutateAsOwner.String())
	require.Equal(t, "unknown", AuthContext(99).String())
	require.Equal(t, "update", ModeUpdate.String())
	require.Equal(t, "unknown", Mode(-1).String())
	require.Equal(t, "calculated", KindCalculated.String())
	require.Equal(t, "unknown", Kind(42).String())
	require.Equal(t, "unknown", Intention(9).String())
}
