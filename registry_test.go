package xschema

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func simple(id string) *Table {
	return NewTable(id, id, nameInfo, []Field{PKField("id"), StringField("name", FormatTitle)})
}

func TestRegistryLookup(t *testing.T) {
	a, b := simple("Events"), simple("venues")
	reg, err := NewRegistry().Add(a).Add(b).Build()
	require.NoError(t, err)
	require.Same(t, a, reg.Table("events").MustGet())
	require.Same(t, a, reg.Table("EVENTS").MustGet())
	require.True(t, reg.Table("songs").IsAbsent())
	require.Equal(t, []*Table{a, b}, reg.Tables())
	require.Same(t, reg, a.Registry())
	require.Panics(t, func() { reg.MustTable("songs") })
	require.NotNil(t, reg.Logger())
	require.NotNil(t, reg.Roles())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry().Add(simple("events"), simple("EVENTS")).Build()
	require.ErrorIs(t, err, ErrDuplicateTable)

	shared := simple("events")
	_, err = NewRegistry().Add(shared).Build()
	require.NoError(t, err)
	_, err = NewRegistry().Add(shared).Build()
	require.ErrorIs(t, err, ErrDuplicateTable, "a table belongs to one registry")
}

func TestRegistryChecksReferences(t *testing.T) {
	events := NewTable("events", "events", nameInfo, []Field{PKField("id"), ForeignField("venueId", "venue", "venues")})
	_, err := NewRegistry().Add(events).Build()
	require.ErrorIs(t, err, ErrBrokenReference)
	require.Nil(t, events.Registry(), "a failed build binds nothing")

	tagged := NewTable("events", "events", nameInfo, []Field{PKField("id"), TagsField("tags", "event_tags", "tags", "eventId", "tagId", "tag")})
	_, err = NewRegistry().Add(tagged, simple("tags")).Build()
	require.ErrorIs(t, err, ErrBrokenReference)
}

func TestRegistryClock(t *testing.T) {
	table := simple("events")
	require.WithinDuration(t, time.Now(), table.now(), time.Minute)
	at := time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC)
	_, err := NewRegistry(WithClock(func() time.Time { return at })).Add(table).Build()
	require.NoError(t, err)
	require.Equal(t, at, table.now())
}

func TestStaticRoles(t *testing.T) {
	ctx := context.Background()
	_, err := StaticRoles{}.PublicPermissionIDs(ctx)
	require.ErrorIs(t, err, ErrNoPublicRole)

	roles := StaticRoles{Public: []int64{}, Roles: map[int64][]int64{3: {4, 5}}}
	ids, err := roles.PublicPermissionIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)
	ids, err = roles.RolePermissionIDs(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{4, 5}, ids)
	ids, err = roles.RolePermissionIDs(ctx, 9)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestVisibilityRequiresRegistry(t *testing.T) {
	table := NewTable("events", "events", nameInfo, []Field{PKField("id")}, WithVisibility("ownerId", "permId"))
	_, err := table.CalculateWhereClause(context.Background(), WhereInput{Context: PublicContext()})
	require.ErrorIs(t, err, ErrNotRegistered)
	clause, err := table.CalculateWhereClause(context.Background(), WhereInput{Context: PublicContext(), SkipVisibility: true})
	require.NoError(t, err)
	require.True(t, clause.IsAbsent())
}
