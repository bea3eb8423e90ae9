// Package role stores roles and their permission grants.
package role

import (
	"context"
	"errors"

	"github.com/webbase/adminapi/internal/listquery"
)

// ErrRoleNotFound is returned when a role record is not found.
var ErrRoleNotFound = errors.New("role not found")

// ErrDuplicateRoleCode is returned when a role with the same code already exists.
var ErrDuplicateRoleCode = errors.New("role code already exists")

// ErrRoleInUse is returned when the store rejects a delete because rows
// still reference the role.
var ErrRoleInUse = errors.New("role is still referenced")

// ErrUnknownPermission is returned when a grant names a missing permission.
var ErrUnknownPermission = errors.New("permission does not exist")

// Repository provides CRUD operations on the roles table and the
// role_permissions join table.
type Repository interface {
	Create(ctx context.Context, r *Role) (*Role, error)
	GetByID(ctx context.Context, id int64) (*Role, error)
	GetByCode(ctx context.Context, code string) (*Role, error)
	List(ctx context.Context, filter ListFilter, req listquery.Request) (*listquery.Result[Role], error)
	Update(ctx context.Context, id int64, fields UpdateFields) (*Role, error)
	Delete(ctx context.Context, id int64) error
	PermissionIDs(ctx context.Context, id int64) ([]int64, error)
	SetPermissions(ctx context.Context, id int64, permissionIDs []int64) error
}
