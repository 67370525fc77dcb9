package sqlx

import (
	"context"
	"fmt"

	"github.com/kcmvp/xschema"
	"github.com/samber/mo"
)

const rolePermissionsSQL = "SELECT permissionId FROM role_permissions WHERE roleId = ? ORDER BY permissionId"

// RoleStore resolves role permissions from the role_permissions table.
type RoleStore struct {
	db         DB
	publicRole mo.Option[int64]
}

var _ xschema.RoleResolver = (*RoleStore)(nil)

// NewRoleStore creates a RoleStore. publicRole is usually app.PublicRole().
func NewRoleStore(db DB, publicRole mo.Option[int64]) *RoleStore {
	return &RoleStore{db: db, publicRole: publicRole}
}

// PublicPermissionIDs returns the permissions of the public role, or
// ErrNoPublicRole when no public role is configured.
func (s *RoleStore) PublicPermissionIDs(ctx context.Context) ([]int64, error) {
	role, ok := s.publicRole.Get()
	if !ok {
		return nil, xschema.ErrNoPublicRole
	}
	return s.RolePermissionIDs(ctx, role)
}

func (s *RoleStore) RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, Rebind(s.db.Driver(), rolePermissionsSQL), roleID)
	if err != nil {
		return nil, fmt.Errorf("role %d permissions: %w", roleID, err)
	}
	defer func() { _ = rows.Close() }()
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
