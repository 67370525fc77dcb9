package sqlx

import (
	"database/sql"
	"testing"

	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/predicate"
	"github.com/kcmvp/xschema/sample"
	"github.com/samber/mo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDataSource_DSN_Substitution(t *testing.T) {
	ds := dataSource{
		User:     "u",
		Password: "p",
		Host:     "localhost:5432",
		URL:      "postgres://${user}:${password}@${host}/db?sslmode=disable",
	}
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", ds.DSN())

	dsn, err := ds.DSNChecked()
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", dsn)
}

func TestDataSource_DSNChecked(t *testing.T) {
	tests := []struct {
		name string
		ds   dataSource
		ok   bool
	}{
		{"no placeholders", dataSource{URL: "file::memory:?cache=shared"}, true},
		{"missing user", dataSource{URL: "postgres://${user}@${host}/db", Host: "localhost"}, false},
		{"missing password", dataSource{URL: "postgres://${user}:${password}@${host}/db", User: "u", Host: "localhost"}, false},
		{"missing host", dataSource{URL: "postgres://${user}@${host}/db", User: "u"}, false},
		{"requires url", dataSource{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ds.DSNChecked()
			require.Equal(t, tt.ok, err == nil)
		})
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM events WHERE a = ? AND b IN (?,?)"
	require.Equal(t, q, Rebind("sqlite3", q))
	require.Equal(t, q, Rebind("mysql", q))
	require.Equal(t, "SELECT * FROM events WHERE a = $1 AND b IN ($2,$3)", Rebind("postgres", q))
}

func TestSelectSQL(t *testing.T) {
	reg, err := sample.NewRegistry(xschema.WithRoles(sample.Roles()))
	require.NoError(t, err)
	events := reg.MustTable(sample.TableEvents)

	query, args, err := SelectSQL(Query{Table: events})
	require.NoError(t, err)
	require.Equal(t, "SELECT events.* FROM events ORDER BY events.startsAt DESC, events.name ASC", query)
	require.Nil(t, args)

	query, args, err = SelectSQL(Query{
		Table:   events,
		Where:   mo.Some(predicate.And(predicate.Eq("events.status", "draft"), predicate.Eq("events.isDeleted", false))),
		OrderBy: []xschema.Order{{Member: "venue"}},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Equal(t, "SELECT events.* FROM events WHERE (events.status = ? AND events.isDeleted = ?) ORDER BY events.venueId ASC LIMIT 10", query)
	require.Equal(t, []any{"draft", false}, args)

	_, _, err = SelectSQL(Query{Table: events, OrderBy: []xschema.Order{{Member: "tags"}}})
	require.ErrorIs(t, err, xschema.ErrUnknownMember)
	_, _, err = SelectSQL(Query{Table: events, OrderBy: []xschema.Order{{Member: "nope"}}})
	require.ErrorIs(t, err, xschema.ErrUnknownMember)
}

func TestLoggingDB(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	raw, err := sql.Open("sqlite3", "file:logging?mode=memory&cache=shared")
	require.NoError(t, err)
	db := WithSQLLogger(Open("sqlite3", raw), zap.New(core))
	t.Cleanup(func() { _ = db.Close() })

	require.Equal(t, "sqlite3", db.Driver())
	require.NoError(t, Exec(t.Context(), db, "CREATE TABLE t (id INTEGER);\nINSERT INTO t (id) VALUES (1);"))
	require.Equal(t, 2, logs.FilterMessage("sqlx exec").Len())

	require.Error(t, Exec(t.Context(), db, "INSERT INTO missing VALUES (1)"))
	failed := logs.FilterMessage("sqlx exec").FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, failed, 1)
	require.Equal(t, "INSERT INTO missing VALUES (1)", failed[0].ContextMap()["sql"])

	require.Same(t, raw, WithSQLLogger(Open("sqlite3", raw), nil).(stdDB).DB)
}

func TestRunScript(t *testing.T) {
	raw, err := sql.Open("sqlite3", "file:script?mode=memory&cache=shared")
	require.NoError(t, err)
	db := Open("sqlite3", raw)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunScript(t.Context(), db, "sample/schema.sql"))
	rows, err := Select(t.Context(), db, Query{Table: sample.Tags()})
	require.NoError(t, err)
	require.Empty(t, rows)

	require.Error(t, RunScript(t.Context(), db, "missing.sql"))
}

func TestGetDS_Close(t *testing.T) {
	raw, err := sql.Open("sqlite3", "file:close?mode=memory&cache=shared")
	require.NoError(t, err)
	dsMu.Lock()
	dsRegistry["other"] = Open("sqlite3", raw)
	dsMu.Unlock()

	got, ok := GetDS("Other")
	require.True(t, ok)
	require.NotNil(t, got)

	require.NoError(t, CloseDataSource("Other"))
	_, ok = GetDS("Other")
	require.False(t, ok)
	require.NoError(t, CloseDataSource("Other"))
}
