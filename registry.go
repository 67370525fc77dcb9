package xschema

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

// RoleResolver provides the permission ids used by visibility clauses.
type RoleResolver interface {
	// PublicPermissionIDs returns the permissions granted to the public role.
	PublicPermissionIDs(ctx context.Context) ([]int64, error)
	// RolePermissionIDs returns the permissions granted to a role.
	RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
}

// StaticRoles is an in-memory RoleResolver. A nil Public means the public
// role is not configured.
type StaticRoles struct {
	Public []int64
	Roles  map[int64][]int64
}

var _ RoleResolver = StaticRoles{}

func (s StaticRoles) PublicPermissionIDs(context.Context) ([]int64, error) {
	if s.Public == nil {
		return nil, ErrNoPublicRole
	}
	return slices.Clone(s.Public), nil
}

func (s StaticRoles) RolePermissionIDs(_ context.Context, roleID int64) ([]int64, error) {
	return slices.Clone(s.Roles[roleID]), nil
}

// RegistryOption customizes a registry.
type RegistryOption func(*Registry)

// WithRoles sets the resolver used for visibility clauses.
func WithRoles(roles RoleResolver) RegistryOption {
	return func(r *Registry) { r.roles = roles }
}

// WithLogger sets the logger used to report schema defects.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithClock sets the clock used for audit timestamps.
func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// RegistryBuilder collects tables until Build.
type RegistryBuilder struct {
	opts   []RegistryOption
	tables []*Table
}

// NewRegistry starts a registry.
func NewRegistry(opts ...RegistryOption) *RegistryBuilder {
	return &RegistryBuilder{opts: opts}
}

// Add queues tables for registration.
func (b *RegistryBuilder) Add(tables ...*Table) *RegistryBuilder {
	b.tables = append(b.tables, tables...)
	return b
}

// Build registers the tables under their lower-cased id, binds them to the
// registry and checks that every table referenced by a field exists.
func (b *RegistryBuilder) Build() (*Registry, error) {
	r := &Registry{
		tables: make(map[string]*Table, len(b.tables)),
		roles:  StaticRoles{},
		logger: zap.L(),
		clock:  time.Now,
	}
	for _, opt := range b.opts {
		opt(r)
	}
	for _, t := range b.tables {
		key := strings.ToLower(t.ID())
		if _, exists := r.tables[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, t.ID())
		}
		if t.registry != nil {
			return nil, fmt.Errorf("%w: %s is already bound to another registry", ErrDuplicateTable, t.ID())
		}
		r.tables[key] = t
		r.order = append(r.order, key)
	}
	for _, t := range b.tables {
		for _, f := range t.fields {
			ref, ok := f.(referrer)
			if !ok {
				continue
			}
			for _, id := range ref.references() {
				if _, exists := r.tables[strings.ToLower(id)]; !exists {
					r.logger.Error("field references an unregistered table",
						zap.String("table", t.ID()), zap.String("field", f.Member()), zap.String("target", id))
					return nil, fmt.Errorf("%w: %s.%s -> %s", ErrBrokenReference, t.ID(), f.Member(), id)
				}
			}
		}
	}
	for _, t := range b.tables {
		t.registry = r
	}
	return r, nil
}

// referrer is implemented by fields pointing at other tables.
type referrer interface {
	references() []string
}

// Registry is the immutable set of tables of an application.
type Registry struct {
	tables map[string]*Table
	order  []string
	roles  RoleResolver
	logger *zap.Logger
	clock  func() time.Time
}

// Table looks a table up by id, ignoring case.
func (r *Registry) Table(id string) mo.Option[*Table] {
	t, ok := r.tables[strings.ToLower(id)]
	return lo.Ternary(ok, mo.Some(t), mo.None[*Table]())
}

// MustTable looks a table up and panics when it is missing.
func (r *Registry) MustTable(id string) *Table {
	t, ok := r.Table(id).Get()
	lo.Assertf(ok, "xschema: %s: %s", ErrUnknownTable, id)
	return t
}

// Tables returns the tables in registration order.
func (r *Registry) Tables() []*Table {
	return lo.Map(r.order, func(key string, _ int) *Table { return r.tables[key] })
}

// Roles returns the role resolver.
func (r *Registry) Roles() RoleResolver {
	return r.roles
}

// Logger returns the registry logger.
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}
