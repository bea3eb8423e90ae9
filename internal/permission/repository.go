// Package permission stores the permission tree.
package permission

import (
	"context"
	"errors"

	"github.com/webbase/adminapi/internal/listquery"
)

// ErrPermissionNotFound is returned when a permission record is not found.
var ErrPermissionNotFound = errors.New("permission not found")

// ErrPermissionInUse is returned when the store rejects a delete because
// grants still reference the permission.
var ErrPermissionInUse = errors.New("permission is still referenced")

// ErrSelfParent is returned when an update would make a permission its own parent.
var ErrSelfParent = errors.New("permission cannot be its own parent")

// Repository provides CRUD operations on the permissions table.
type Repository interface {
	Create(ctx context.Context, p *Permission) (*Permission, error)
	GetByID(ctx context.Context, id int64) (*Permission, error)
	List(ctx context.Context, filter ListFilter, req listquery.Request) (*listquery.Result[Permission], error)
	Update(ctx context.Context, id int64, fields UpdateFields) (*Permission, error)
	Delete(ctx context.Context, id int64) error
}
