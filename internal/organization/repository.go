// Package organization stores the organization tree users belong to.
package organization

import (
	"context"
	"errors"

	"github.com/webbase/adminapi/internal/listquery"
)

// ErrOrganizationNotFound is returned when an organization record is not found.
var ErrOrganizationNotFound = errors.New("organization not found")

// ErrOrganizationInUse is returned when the store rejects a delete because
// users still reference the organization.
var ErrOrganizationInUse = errors.New("organization is still referenced")

// ErrSelfParent is returned when an update would make an organization its own parent.
var ErrSelfParent = errors.New("organization cannot be its own parent")

// Repository provides CRUD operations on the organizations table.
type Repository interface {
	Create(ctx context.Context, o *Organization) (*Organization, error)
	GetByID(ctx context.Context, id int64) (*Organization, error)
	List(ctx context.Context, filter ListFilter, req listquery.Request) (*listquery.Result[Organization], error)
	Tree(ctx context.Context) ([]*Node, error)
	Update(ctx context.Context, id int64, fields UpdateFields) (*Organization, error)
	Delete(ctx context.Context, id int64) error
}
