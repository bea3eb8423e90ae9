// Package user stores application users and their credentials.
package user

import (
	"context"
	"errors"

	"github.com/webbase/adminapi/internal/listquery"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUserName is returned when a user with the same name already exists.
var ErrDuplicateUserName = errors.New("user name already exists")

// ErrInvalidReference is returned when the role or organization of a user
// does not exist at write time.
var ErrInvalidReference = errors.New("user references a missing role or organization")

// Repository provides CRUD operations on the users table.
type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, filter ListFilter, req listquery.Request) (*listquery.Result[User], error)
	Update(ctx context.Context, id int64, fields UpdateFields) (*User, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	CountAll(ctx context.Context) (int, error)

	GetCredentialByName(ctx context.Context, name string) (*Credential, error)
	GetCredentialByID(ctx context.Context, id int64) (*Credential, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	CurrentRoleCode(ctx context.Context, id int64) (string, error)
}
