package role

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/store"
)

// Entity is the list schema for roles.
var Entity = listquery.MustEntity(listquery.EntityConfig{
	Name:    "roles",
	From:    "roles",
	Columns: []string{"id", "code", "name", "description", "status", "created_at", "updated_at"},
	Fields: map[string]string{
		"id":          "id",
		"code":        "code",
		"name":        "name",
		"description": "description",
		"status":      "status",
		"createdAt":   "created_at",
		"updatedAt":   "updated_at",
	},
})

// SQLRepository implements Repository using database/sql.
type SQLRepository struct {
	db store.TxQuerier
}

// NewRepository creates a new Repository backed by the given store.
func NewRepository(db store.TxQuerier) Repository {
	return &SQLRepository{db: db}
}

func scanRole(s listquery.Scanner) (Role, error) {
	var r Role
	err := s.Scan(&r.ID, &r.Code, &r.Name, &r.Description, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const selectRole = `
	SELECT id, code, name, description, status, created_at, updated_at
	FROM roles`

// Create inserts a new role record.
func (r *SQLRepository) Create(ctx context.Context, ro *Role) (*Role, error) {
	query := `
		INSERT INTO roles (code, name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	created := *ro
	err := r.db.QueryRowContext(ctx, query, ro.Code, ro.Name, ro.Description, ro.Status).
		Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrDuplicateRoleCode
		}
		return nil, fmt.Errorf("inserting role: %w", err)
	}

	return &created, nil
}

func (r *SQLRepository) getOne(ctx context.Context, where string, arg any) (*Role, error) {
	ro, err := scanRole(r.db.QueryRowContext(ctx, selectRole+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("querying role: %w", err)
	}
	return &ro, nil
}

// GetByID retrieves a single role by id.
func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*Role, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByCode retrieves a single role by its code.
func (r *SQLRepository) GetByCode(ctx context.Context, code string) (*Role, error) {
	return r.getOne(ctx, "code = $1", code)
}

// List retrieves a filtered page of roles.
func (r *SQLRepository) List(ctx context.Context, filter ListFilter, req listquery.Request) (*listquery.Result[Role], error) {
	return listquery.Run(ctx, r.db, Entity, req, scanRole,
		listquery.Contains("code", filter.Code),
		listquery.Contains("name", filter.Name),
		listquery.Contains("status", filter.Status),
	)
}

// Update overwrites the mutable columns of a role.
func (r *SQLRepository) Update(ctx context.Context, id int64, fields UpdateFields) (*Role, error) {
	query := `
		UPDATE roles
		SET code = $1, name = $2, description = $3, status = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, fields.Code, fields.Name, fields.Description, fields.Status, id)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrDuplicateRoleCode
		}
		return nil, fmt.Errorf("updating role: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrRoleNotFound
	}

	return r.GetByID(ctx, id)
}

func references(ctx context.Context, q store.Querier, id int64) (map[string]int64, error) {
	var users, permissions int64
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role_id = $1),
			(SELECT COUNT(*) FROM role_permissions WHERE role_id = $1)`
	if err := q.QueryRowContext(ctx, query, id).Scan(&users, &permissions); err != nil {
		return nil, fmt.Errorf("counting role references: %w", err)
	}
	return map[string]int64{"users": users, "permissions": permissions}, nil
}

func exists(ctx context.Context, q store.Querier, id int64) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM roles WHERE id = $1`, id).Scan(&n); err != nil {
		return fmt.Errorf("querying role: %w", err)
	}
	if n == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// Delete removes a role that no user or permission grant references. A
// referenced role yields an *apperr.ConflictError carrying the counts.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(q store.Querier) error {
		if err := exists(ctx, q, id); err != nil {
			return err
		}

		refs, err := references(ctx, q, id)
		if err != nil {
			return err
		}
		if apperr.HasReferences(refs) {
			return apperr.ReferenceConflict("role", refs)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
			if store.IsForeignKeyViolation(err) {
				return ErrRoleInUse
			}
			return fmt.Errorf("deleting role: %w", err)
		}
		return nil
	})
}

// PermissionIDs returns the ids of the permissions granted to the role.
func (r *SQLRepository) PermissionIDs(ctx context.Context, id int64) ([]int64, error) {
	if err := exists(ctx, r.db, id); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT permission_id FROM role_permissions WHERE role_id = $1 ORDER BY permission_id`, id)
	if err != nil {
		return nil, fmt.Errorf("listing role permissions: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scanning role permission: %w", err)
		}
		ids = append(ids, pid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating role permissions: %w", err)
	}
	return ids, nil
}

// SetPermissions replaces the role's grants with permissionIDs in one
// transaction. Duplicate ids are ignored.
func (r *SQLRepository) SetPermissions(ctx context.Context, id int64, permissionIDs []int64) error {
	return r.db.WithTx(ctx, func(q store.Querier) error {
		if err := exists(ctx, q, id); err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("clearing role permissions: %w", err)
		}

		seen := make(map[int64]struct{}, len(permissionIDs))
		for _, pid := range permissionIDs {
			if _, dup := seen[pid]; dup {
				continue
			}
			seen[pid] = struct{}{}

			_, err := q.ExecContext(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, id, pid)
			if err != nil {
				if store.IsForeignKeyViolation(err) {
					return ErrUnknownPermission
				}
				return fmt.Errorf("granting permission %d: %w", pid, err)
			}
		}
		return nil
	})
}
