package sqlx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/app"
	"github.com/kcmvp/xschema/predicate"
	"github.com/kcmvp/xschema/sample"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

var fixtureTables = []string{"roles", "role_permissions", "users", "venues", "events", "tags", "event_tags"}

type SQLXTestSuite struct {
	suite.Suite
	db       DB
	registry *xschema.Registry
}

func (s *SQLXTestSuite) SetupSuite() {
	// DefaultDS comes from application_test.yml, which also runs sample/schema.sql.
	db, ok := DefaultDS()
	s.Require().True(ok && db != nil, "datasource.DefaultDS is not configured in application_test.yml")
	s.db = db

	b, err := os.ReadFile(filepath.Join("..", "testdata", "sample_data.json"))
	s.Require().NoError(err)
	ctx := context.Background()
	for _, tbl := range fixtureTables {
		gjson.GetBytes(b, tbl).ForEach(func(_, v gjson.Result) bool {
			row := xschema.RowFromJSON(v.Raw).MustGet()
			cols := row.Keys()
			insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tbl, strings.Join(cols, ", "),
				strings.Join(lo.Map(cols, func(string, int) string { return "?" }), ", "))
			_, err := db.ExecContext(ctx, insert, lo.Map(cols, func(c string, _ int) any { return row[c] })...)
			s.Require().NoError(err, "insert into %s", tbl)
			return true
		})
	}

	s.registry, err = sample.NewRegistry(xschema.WithRoles(NewRoleStore(db, app.PublicRole())))
	s.Require().NoError(err)
}

func (s *SQLXTestSuite) TearDownSuite() {
	require.NoError(s.T(), CloseAllDataSources())
}

func (s *SQLXTestSuite) events() *xschema.Table {
	return s.registry.MustTable(sample.TableEvents)
}

func (s *SQLXTestSuite) names(rows []xschema.Row) []string {
	return lo.Map(rows, func(r xschema.Row, _ int) string { return r.String("name").OrEmpty() })
}

func (s *SQLXTestSuite) TestRoleStore() {
	ctx := s.T().Context()
	store := NewRoleStore(s.db, app.PublicRole())
	public, err := store.PublicPermissionIDs(ctx)
	s.Require().NoError(err)
	s.Equal([]int64{1, 2}, public)

	member, err := store.RolePermissionIDs(ctx, 10)
	s.Require().NoError(err)
	s.Equal([]int64{1, 2, 3}, member)

	none, err := store.RolePermissionIDs(ctx, 99)
	s.Require().NoError(err)
	s.Empty(none)

	_, err = NewRoleStore(s.db, mo.None[int64]()).PublicPermissionIDs(ctx)
	s.ErrorIs(err, xschema.ErrNoPublicRole)
}

func (s *SQLXTestSuite) TestFetchByAudience() {
	tests := []struct {
		name string
		cc   xschema.ClientContext
		want []string
	}{
		{"public", xschema.PublicContext(), []string{"Jazz Night"}},
		{"owner sees unrestricted own rows", xschema.UserContext(xschema.Actor{ID: 7, RoleID: 10}), []string{"Draft Party", "Jazz Night", "Private Rehearsal"}},
		{"other member", xschema.UserContext(xschema.Actor{ID: 8, RoleID: 10}), []string{"Draft Party", "Jazz Night"}},
		{"admin sees deleted rows", xschema.AdminContext(xschema.Actor{ID: 1, RoleID: 10, Admin: true}), []string{"Deleted Gig", "Draft Party", "Jazz Night", "Private Rehearsal"}},
		{"admin asking as public", xschema.ClientContext{Intention: xschema.IntentionPublic, Actor: mo.Some(xschema.Actor{ID: 1, Admin: true})}, []string{"Jazz Night"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rows, err := Fetch(s.T().Context(), s.db, s.events(), xschema.FilterModel{}, tt.cc)
			s.Require().NoError(err)
			s.Equal(tt.want, s.names(rows))
		})
	}
}

func (s *SQLXTestSuite) TestFetchQuickFilter() {
	alice := xschema.UserContext(xschema.Actor{ID: 7, RoleID: 10})
	tests := []struct {
		filter string
		want   []string
	}{
		{"night", []string{"Jazz Night"}},
		{"hall", []string{"Jazz Night"}},
		{"live", []string{"Draft Party"}},
		{"rehearsal private", []string{"Private Rehearsal"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		s.Run(tt.filter, func() {
			rows, err := Fetch(s.T().Context(), s.db, s.events(), xschema.FilterModel{QuickFilter: tt.filter}, alice)
			s.Require().NoError(err)
			s.Equal(tt.want, s.names(rows))
		})
	}
}

func (s *SQLXTestSuite) TestFetchParamsAndItems() {
	alice := xschema.UserContext(xschema.Actor{ID: 7, RoleID: 10})
	rows, err := Fetch(s.T().Context(), s.db, s.events(), xschema.FilterModel{Params: map[string]any{"slug": "jazz-night"}}, alice)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(int64(1), rows[0]["id"])

	rows, err = Fetch(s.T().Context(), s.db, s.events(), xschema.FilterModel{Items: []xschema.FilterItem{{Member: "visiblePermissionId"}}}, alice)
	s.Require().NoError(err)
	s.Equal([]string{"Private Rehearsal"}, s.names(rows))

	_, err = Fetch(s.T().Context(), s.db, s.events(), xschema.FilterModel{Items: []xschema.FilterItem{{Member: "nope", Value: 1}}}, alice)
	s.ErrorIs(err, xschema.ErrUnknownMember)
}

func (s *SQLXTestSuite) TestSelectIntoClientModel() {
	events := s.events()
	rows, err := Select(s.T().Context(), s.db, Query{
		Table: events,
		Where: mo.Some(predicate.Eq(predicate.Col("events", "id"), int64(1))),
	})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	row := rows[0]
	s.Equal("jazz-night", row["slug"])
	s.Equal(false, row["isDeleted"])

	cc := xschema.UserContext(xschema.Actor{ID: 7, RoleID: 10})
	client := events.GetClientModel(row, xschema.ModeView, cc)
	s.Equal(int64(1), client["venueId"])
	s.True(events.AuthorizeRowForView(client, cc))
}

func (s *SQLXTestSuite) TestSelectOrderingAndLimit() {
	rows, err := Select(s.T().Context(), s.db, Query{
		Table:   s.events(),
		OrderBy: []xschema.Order{{Member: "name", Desc: true}},
		Limit:   2,
	})
	s.Require().NoError(err)
	s.Equal([]string{"Private Rehearsal", "Jazz Night"}, s.names(rows))
}

func (s *SQLXTestSuite) TestColumns() {
	cols, err := Columns(s.T().Context(), s.db, s.registry.MustTable(sample.TableTags))
	s.Require().NoError(err)
	s.Equal([]string{"id", "text", "color", "sortOrder"}, cols)
}

func TestSQLXTestSuite(t *testing.T) {
	suite.Run(t, new(SQLXTestSuite))
}
