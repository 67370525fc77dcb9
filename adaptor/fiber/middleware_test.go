package fiber

import (
	"context"
	"encoding/json"
	"net/http"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/internal"
	"github.com/kcmvp/xschema/sample"
	"github.com/stretchr/testify/require"
)

var stored = xschema.Row{
	"id": int64(1), "name": "Jazz Night", "slug": "jazz-night", "status": "published",
	"isDeleted": false, "visiblePermissionId": int64(1), "createdByUserId": int64(7),
}

func load(_ context.Context, _ *xschema.Table, params map[string]any) (xschema.Row, error) {
	if params["id"] != "1" {
		return nil, internal.ErrNotFound
	}
	return stored.Clone(), nil
}

func setupRouter(t *testing.T) *fiber.App {
	t.Helper()
	reg, err := sample.NewRegistry(xschema.WithRoles(sample.Roles()))
	require.NoError(t, err)
	events := reg.MustTable(sample.TableEvents)

	mutated := func(c fiber.Ctx) error {
		res := Mutation(c).MustGet()
		return c.JSON(fiber.Map{"changeSet": res.ChangeSet, "changes": res.Changes})
	}
	app := fiber.New()
	app.Use(Client(nil))
	app.Post("/events", Bind(events, xschema.ModeNew, nil), mutated)
	app.Put("/events/:id", Bind(events, xschema.ModeUpdate, load), mutated)
	app.Get("/events", Filter(events), func(c fiber.Ctx) error {
		sql, args := Where(c).MustGet().Build()
		return c.JSON(fiber.Map{"sql": sql, "args": len(args), "actor": ClientContext(c).ActorID().OrElse(0)})
	})
	app.Get("/venues/:id/events", Filter(events), func(c fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	return app
}

func serve(t *testing.T, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()
	res, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, body
}

var (
	editor = map[string]string{internal.HeaderActorID: "8", internal.HeaderRoleID: "10", internal.HeaderPermissions: "events:edit, events:insert"}
	owner  = map[string]string{internal.HeaderActorID: "7", internal.HeaderRoleID: "10", internal.HeaderPermissions: "events:edit-own"}
	member = map[string]string{internal.HeaderActorID: "7", internal.HeaderRoleID: "10"}
)

func TestBind(t *testing.T) {
	router := setupRouter(t)
	tests := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
		body    string
		status  int
		check   func(t *testing.T, body map[string]any)
	}{
		{
			name: "insert", method: http.MethodPost, path: "/events", headers: editor,
			body: `{"name": "Café Gig"}`, status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				require.Equal(t, "cafe-gig", body["changes"].(map[string]any)["slug"])
				require.Contains(t, body["changeSet"], "createdByUserId")
			},
		},
		{
			name: "validation errors", method: http.MethodPost, path: "/events", headers: editor,
			body: `{"name": "", "capacity": -1}`, status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				errs := body["errors"].(map[string]any)
				require.Contains(t, errs, "name")
				require.Contains(t, errs, "capacity")
			},
		},
		{name: "insert denied", method: http.MethodPost, path: "/events", headers: member, body: `{"name": "Gig"}`, status: http.StatusForbidden},
		{name: "anonymous insert denied", method: http.MethodPost, path: "/events", body: `{"name": "Gig"}`, status: http.StatusForbidden},
		{name: "invalid json", method: http.MethodPost, path: "/events", headers: editor, body: `{"name":`, status: http.StatusBadRequest},
		{name: "not an object", method: http.MethodPost, path: "/events", headers: editor, body: `[1]`, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/events", headers: editor, body: `{"name": "Gig", "bogus": 1}`, status: http.StatusBadRequest},
		{name: "bad client headers", method: http.MethodPost, path: "/events", headers: map[string]string{internal.HeaderActorID: "x"}, body: `{}`, status: http.StatusUnauthorized},
		{
			name: "owner update", method: http.MethodPut, path: "/events/1", headers: owner,
			body: `{"name": "Late Jazz"}`, status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				require.Equal(t, []any{"name"}, body["changeSet"])
			},
		},
		{name: "missing row", method: http.MethodPut, path: "/events/2", headers: owner, body: `{"name": "Late Jazz"}`, status: http.StatusNotFound},
		{name: "update denied", method: http.MethodPut, path: "/events/1", headers: member, body: `{"name": "Late Jazz"}`, status: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			status, raw := serve(t, router, req)
			require.Equal(t, tc.status, status, string(raw))
			if tc.check != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(raw, &body))
				tc.check(t, body)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	router := setupRouter(t)

	get := func(path string, headers map[string]string) (int, map[string]any) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		status, raw := serve(t, router, req)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		return status, body
	}

	status, body := get("/events?q=jazz", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body["sql"], "LOWER(events.name) LIKE ?")
	require.Contains(t, body["sql"], "events.visiblePermissionId IN (?,?)")
	require.EqualValues(t, 0, body["actor"])

	status, body = get("/events?slug=jazz-night", member)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body["sql"], "events.slug = ?")
	require.EqualValues(t, 7, body["actor"])

	status, _ = get("/venues/3/events?id=4", nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = get("/events", map[string]string{internal.HeaderIntention: "admin", internal.HeaderActorID: "7"})
	require.Equal(t, http.StatusUnauthorized, status)
}
