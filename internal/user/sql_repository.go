package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/store"
)

const selectColumns = `
	SELECT u.id, u.name, u.organization_id, o.name, u.role_id, r.code, r.name,
	       u.status, u.created_at, u.updated_at
	FROM users u
	JOIN roles r ON r.id = u.role_id
	JOIN organizations o ON o.id = u.organization_id`

// Entity is the list schema for users.
var Entity = listquery.MustEntity(listquery.EntityConfig{
	Name: "users",
	From: "users u JOIN roles r ON r.id = u.role_id JOIN organizations o ON o.id = u.organization_id",
	Columns: []string{
		"u.id", "u.name", "u.organization_id", "o.name", "u.role_id", "r.code", "r.name",
		"u.status", "u.created_at", "u.updated_at",
	},
	Fields: map[string]string{
		"id":               "u.id",
		"name":             "u.name",
		"status":           "u.status",
		"roleId":           "u.role_id",
		"roleCode":         "r.code",
		"organizationId":   "u.organization_id",
		"organizationName": "o.name",
		"createdAt":        "u.created_at",
		"updatedAt":        "u.updated_at",
	},
})

// SQLRepository implements Repository using database/sql.
type SQLRepository struct {
	db store.Querier
}

// NewRepository creates a new Repository backed by the given store.
func NewRepository(db store.Querier) Repository {
	return &SQLRepository{db: db}
}

func scanUser(s listquery.Scanner) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Name, &u.OrganizationID, &u.OrganizationName, &u.RoleID,
		&u.RoleCode, &u.RoleName, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func mapWriteError(err error, op string) error {
	switch {
	case store.IsUniqueViolation(err):
		return ErrDuplicateUserName
	case store.IsForeignKeyViolation(err):
		return ErrInvalidReference
	default:
		return fmt.Errorf("%s user: %w", op, err)
	}
}

// Create inserts a new user record and returns it with joined names.
func (r *SQLRepository) Create(ctx context.Context, u *User) (*User, error) {
	query := `
		INSERT INTO users (name, password_hash, organization_id, role_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		u.Name,
		u.PasswordHash,
		u.OrganizationID,
		u.RoleID,
		u.Status,
	).Scan(&id)
	if err != nil {
		return nil, mapWriteError(err, "inserting")
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a single user by id.
func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectColumns+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// List retrieves a filtered page of users.
func (r *SQLRepository) List(ctx context.Context, filter ListFilter, req listquery.Request) (*listquery.Result[User], error) {
	return listquery.Run(ctx, r.db, Entity, req, scanUser,
		listquery.Contains("name", filter.Name),
		listquery.Contains("status", filter.Status),
		listquery.Equal("roleId", filter.RoleID),
		listquery.Equal("organizationId", filter.OrganizationID),
	)
}

// Update overwrites the mutable columns of a user.
func (r *SQLRepository) Update(ctx context.Context, id int64, fields UpdateFields) (*User, error) {
	query := `
		UPDATE users
		SET name = $1, organization_id = $2, role_id = $3, status = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		fields.Name,
		fields.OrganizationID,
		fields.RoleID,
		fields.Status,
		id,
	)
	if err != nil {
		return nil, mapWriteError(err, "updating")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrUserNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes a user by id.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteMany removes every listed user that exists and returns how many
// rows were deleted.
func (r *SQLRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM users WHERE id IN (%s)`, store.Placeholders(1, len(ids)))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting users: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting users: %w", err)
	}
	return n, nil
}

// CountAll returns the number of users.
func (r *SQLRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

const selectCredential = `
	SELECT u.id, u.name, u.password_hash, r.code
	FROM users u
	JOIN roles r ON r.id = u.role_id`

func (r *SQLRepository) getCredential(ctx context.Context, where string, arg any) (*Credential, error) {
	var c Credential
	err := r.db.QueryRowContext(ctx, selectCredential+" WHERE "+where, arg).
		Scan(&c.UserID, &c.Name, &c.PasswordHash, &c.RoleCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	return &c, nil
}

// GetCredentialByName loads the password hash and role code by user name.
func (r *SQLRepository) GetCredentialByName(ctx context.Context, name string) (*Credential, error) {
	return r.getCredential(ctx, "u.name = $1", name)
}

// GetCredentialByID loads the password hash and role code by user id.
func (r *SQLRepository) GetCredentialByID(ctx context.Context, id int64) (*Credential, error) {
	return r.getCredential(ctx, "u.id = $1", id)
}

// UpdatePasswordHash stores a new password hash.
func (r *SQLRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CurrentRoleCode returns the code of the role the user holds now.
func (r *SQLRepository) CurrentRoleCode(ctx context.Context, id int64) (string, error) {
	c, err := r.GetCredentialByID(ctx, id)
	if err != nil {
		return "", err
	}
	return c.RoleCode, nil
}
