// Package sample declares a small events application: users, venues, events
// and tags linked through event_tags. It drives the tests and the CLI.
package sample

import (
	_ "embed"
	"strings"

	"github.com/kcmvp/xschema"
	"github.com/kcmvp/xschema/constraint"
	"github.com/kcmvp/xschema/predicate"
	"github.com/samber/mo"
)

// DDL creates the sample tables in SQLite.
//
//go:embed schema.sql
var DDL string

const (
	TableUsers     = "users"
	TableVenues    = "venues"
	TableEvents    = "events"
	TableTags      = "tags"
	TableEventTags = "event_tags"
)

const (
	PermUsersView     xschema.Permission = "users:view"
	PermUsersEdit     xschema.Permission = "users:edit"
	PermVenuesEdit    xschema.Permission = "venues:edit"
	PermEventsEdit    xschema.Permission = "events:edit"
	PermEventsEditOwn xschema.Permission = "events:edit-own"
	PermEventsInsert  xschema.Permission = "events:insert"
	PermEventsNotes   xschema.Permission = "events:notes"
	PermEventsPublish xschema.Permission = "events:publish"
	PermTagsEdit      xschema.Permission = "tags:edit"
)

// Palette is the color palette of events and tags.
var Palette = []string{"#4a90d9", "#d94a4a", "#4ad97a", "#d9c84a"}

// hexColor requires colors in #rrggbb form.
var hexColor = xschema.Checks(constraint.Match("#??????"))

// EventStatus lists the event status options.
var EventStatus = map[string]string{
	"draft":     "Draft",
	"published": "Published",
	"cancelled": "Cancelled",
}

// Roles grants the public role permissions 1 and 2 and the member role (10)
// permissions 1 to 3.
func Roles() xschema.StaticRoles {
	return xschema.StaticRoles{
		Public: []int64{1, 2},
		Roles:  map[int64][]int64{10: {1, 2, 3}},
	}
}

func nameInfo(member string) xschema.RowInfoFunc {
	return func(row xschema.Row) xschema.RowInfo {
		return xschema.RowInfo{Name: row.String(member).OrEmpty(), OwnerUserID: mo.None[int64]()}
	}
}

// Users is the users table. A user owns their own row.
func Users() *xschema.Table {
	return xschema.NewTable(TableUsers, "users",
		func(row xschema.Row) xschema.RowInfo {
			return xschema.RowInfo{Name: row.String("name").OrEmpty(), Description: row.String("email").OrEmpty(), OwnerUserID: row.Int64("id")}
		},
		[]xschema.Field{
			xschema.PKField("id"),
			xschema.StringField("name", xschema.FormatTitle, xschema.Checks(constraint.MaxLength(100))),
			xschema.StringField("email", xschema.FormatEmail),
			xschema.IntField("roleId", xschema.Nullable(), xschema.NoQuickFilter(),
				xschema.Authz(xschema.AuthMap{xschema.AuthPostQuery: PermUsersView, xschema.AuthPreMutate: PermUsersEdit, xschema.AuthPreInsert: PermUsersEdit})),
			xschema.CreatedAtField("createdAt"),
		},
		xschema.WithPermissions(xschema.TablePermissions{
			View: PermUsersView, ViewOwn: xschema.PermissionPublic,
			Edit: PermUsersEdit, EditOwn: xschema.PermissionPublic,
			Insert: PermUsersEdit,
		}),
		xschema.WithOrdering(xschema.Order{Member: "name"}),
	)
}

// Venues is the venues table.
func Venues() *xschema.Table {
	return xschema.NewTable(TableVenues, "venues",
		func(row xschema.Row) xschema.RowInfo {
			return xschema.RowInfo{Name: row.String("name").OrEmpty(), Description: row.String("city").OrEmpty(), OwnerUserID: row.Int64("createdByUserId")}
		},
		[]xschema.Field{
			xschema.PKField("id"),
			xschema.StringField("name", xschema.FormatTitle),
			xschema.StringField("city", xschema.FormatPlain, xschema.Nullable()),
			xschema.BoolField("isDeleted", xschema.Default(false)),
			xschema.IntField("visiblePermissionId", xschema.Nullable(), xschema.NoQuickFilter()),
			xschema.CreatedByField("createdByUserId", xschema.Nullable()),
		},
		xschema.WithSoftDelete("isDeleted"),
		xschema.WithVisibility("createdByUserId", "visiblePermissionId"),
		xschema.WithPermissions(xschema.TablePermissions{
			View: xschema.PermissionPublic, ViewOwn: xschema.PermissionPublic,
			Edit: PermVenuesEdit, Insert: PermVenuesEdit,
		}),
		xschema.WithOrdering(xschema.Order{Member: "name"}),
		xschema.WithCreateFromString(func(text string) xschema.Row {
			return xschema.Row{"name": strings.TrimSpace(text)}
		}),
	)
}

// Tags is the tags table.
func Tags() *xschema.Table {
	return xschema.NewTable(TableTags, "tags", nameInfo("text"),
		[]xschema.Field{
			xschema.PKField("id"),
			xschema.StringField("text", xschema.FormatTitle),
			xschema.ColorField("color", Palette, hexColor),
			xschema.IntField("sortOrder", xschema.Nullable(), xschema.NoQuickFilter()),
		},
		xschema.WithPermissions(xschema.TablePermissions{
			View: xschema.PermissionPublic, Edit: PermTagsEdit, Insert: PermTagsEdit,
		}),
		xschema.WithOrdering(xschema.Order{Member: "sortOrder"}, xschema.Order{Member: "text"}),
		xschema.WithCreateFromString(func(text string) xschema.Row {
			return xschema.Row{"text": strings.TrimSpace(text)}
		}),
	)
}

// EventTags links events to tags.
func EventTags() *xschema.Table {
	return xschema.NewTable(TableEventTags, "event_tags", nameInfo("tagId"),
		[]xschema.Field{
			xschema.PKField("id"),
			xschema.IntField("eventId", xschema.NoQuickFilter()),
			xschema.IntField("tagId", xschema.NoQuickFilter()),
		},
		xschema.WithPermissions(xschema.TablePermissions{
			View: xschema.PermissionPublic, Edit: PermEventsEdit, EditOwn: PermEventsEditOwn, Insert: PermEventsInsert,
		}),
	)
}

// Events is the events table: soft deleted, visibility restricted, and
// filterable by id or slug through the "eventId" and "slug" parameters.
func Events() *xschema.Table {
	return xschema.NewTable(TableEvents, "events",
		func(row xschema.Row) xschema.RowInfo {
			return xschema.RowInfo{
				Name:        row.String("name").OrEmpty(),
				Description: row.String("description").OrEmpty(),
				Color:       row.String("color").OrEmpty(),
				OwnerUserID: row.Int64("createdByUserId"),
			}
		},
		[]xschema.Field{
			xschema.PKField("id"),
			xschema.StringField("name", xschema.FormatTitle, xschema.Checks(constraint.MaxLength(200))),
			xschema.SlugField("slug", "name"),
			xschema.StringField("description", xschema.FormatMarkdown, xschema.Nullable()),
			xschema.EnumField("status", EventStatus, xschema.Default("draft"),
				xschema.Authz(xschema.AuthMap{
					xschema.AuthPostQuery:        xschema.PermissionPublic,
					xschema.AuthPreInsert:        PermEventsInsert,
					xschema.AuthPreMutate:        PermEventsPublish,
					xschema.AuthPreMutateAsOwner: PermEventsPublish,
				})),
			xschema.IntField("capacity", xschema.Nullable(), xschema.Checks(constraint.Min[int64](0))),
			xschema.BoolField("isAllDay", xschema.Default(false)),
			xschema.DateField("startsAt", xschema.GranularityMinute, xschema.Nullable()),
			xschema.ColorField("color", Palette, hexColor),
			xschema.ForeignField("venueId", "venue", TableVenues, xschema.Nullable()),
			xschema.TagsField("tags", TableEventTags, TableTags, "eventId", "tagId", "tag"),
			xschema.StringField("notes", xschema.FormatPlain, xschema.Nullable(), xschema.NoQuickFilter(),
				xschema.Authz(xschema.AuthMap{
					xschema.AuthPostQuery:        PermEventsNotes,
					xschema.AuthPostQueryAsOwner: xschema.PermissionPublic,
					xschema.AuthPreInsert:        PermEventsInsert,
					xschema.AuthPreMutate:        PermEventsNotes,
					xschema.AuthPreMutateAsOwner: PermEventsEditOwn,
				})),
			xschema.BoolField("isDeleted", xschema.Default(false)),
			xschema.IntField("visiblePermissionId", xschema.Nullable(), xschema.NoQuickFilter()),
			xschema.CreatedAtField("createdAt"),
			xschema.CreatedByField("createdByUserId"),
		},
		xschema.WithSoftDelete("isDeleted"),
		xschema.WithVisibility("createdByUserId", "visiblePermissionId"),
		xschema.WithPermissions(xschema.TablePermissions{
			View: xschema.PermissionPublic, ViewOwn: xschema.PermissionPublic,
			Edit: PermEventsEdit, EditOwn: PermEventsEditOwn,
			Insert: PermEventsInsert,
		}),
		xschema.WithOrdering(xschema.Order{Member: "startsAt", Desc: true}, xschema.Order{Member: "name"}),
		xschema.WithParameterizedFilter(eventParams),
		xschema.WithInclude(xschema.Include{
			"venue": {},
			"tags":  {Include: xschema.Include{"tag": {}}},
		}),
		xschema.WithCreateFromString(func(text string) xschema.Row {
			return xschema.Row{"name": strings.TrimSpace(text)}
		}),
	)
}

func eventParams(params map[string]any, _ xschema.ClientContext) ([]predicate.Predicate, bool) {
	row := xschema.Row(params)
	if id, ok := row.Int64("eventId").Get(); ok {
		return []predicate.Predicate{predicate.Eq(predicate.Col("events", "id"), id)}, true
	}
	if slug, ok := params["slug"].(string); ok && slug != "" {
		return []predicate.Predicate{predicate.Eq(predicate.Col("events", "slug"), slug)}, true
	}
	return nil, false
}

// Tables returns fresh, unbound instances of every sample table.
func Tables() []*xschema.Table {
	return []*xschema.Table{Users(), Venues(), Events(), Tags(), EventTags()}
}

// NewRegistry builds a registry of the sample tables.
func NewRegistry(opts ...xschema.RegistryOption) (*xschema.Registry, error) {
	return xschema.NewRegistry(opts...).Add(Tables()...).Build()
}
