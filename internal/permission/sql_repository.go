package permission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/store"
)

// Entity is the list schema for permissions. Lists default to menu order.
var Entity = listquery.MustEntity(listquery.EntityConfig{
	Name: "permissions",
	From: "permissions",
	Columns: []string{
		"id", "code", "action", "name", "parent_id", "icon", "path", "property",
		"description", "sort_order", "status", "created_at", "updated_at",
	},
	Fields: map[string]string{
		"id":        "id",
		"code":      "code",
		"action":    "action",
		"name":      "name",
		"parentId":  "parent_id",
		"path":      "path",
		"order":     "sort_order",
		"status":    "status",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	DefaultSort: "order asc",
})

// SQLRepository implements Repository using database/sql.
type SQLRepository struct {
	db store.TxQuerier
}

// NewRepository creates a new Repository backed by the given store.
func NewRepository(db store.TxQuerier) Repository {
	return &SQLRepository{db: db}
}

func scanPermission(s listquery.Scanner) (Permission, error) {
	var p Permission
	err := s.Scan(&p.ID, &p.Code, &p.Action, &p.Name, &p.ParentID, &p.Icon, &p.Path, &p.Property,
		&p.Description, &p.Order, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a new permission record.
func (r *SQLRepository) Create(ctx context.Context, p *Permission) (*Permission, error) {
	query := `
		INSERT INTO permissions (code, action, name, parent_id, icon, path, property, description, sort_order, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	created := *p
	err := r.db.QueryRowContext(ctx, query,
		p.Code, p.Action, p.Name, p.ParentID, p.Icon, p.Path, p.Property, p.Description, p.Order, p.Status,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting permission: %w", err)
	}

	return &created, nil
}

// GetByID retrieves a single permission by id.
func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*Permission, error) {
	query := `
		SELECT id, code, action, name, parent_id, icon, path, property,
		       description, sort_order, status, created_at, updated_at
		FROM permissions
		WHERE id = $1`

	p, err := scanPermission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("querying permission: %w", err)
	}
	return &p, nil
}

// List retrieves a filtered page of permissions.
func (r *SQLRepository) List(ctx context.Context, filter ListFilter, req listquery.Request) (*listquery.Result[Permission], error) {
	return listquery.Run(ctx, r.db, Entity, req, scanPermission,
		listquery.Contains("name", filter.Name),
		listquery.Contains("status", filter.Status),
		listquery.Equal("parentId", filter.ParentID),
	)
}

// Update overwrites the mutable columns of a permission.
func (r *SQLRepository) Update(ctx context.Context, id int64, f UpdateFields) (*Permission, error) {
	if f.ParentID == id {
		return nil, ErrSelfParent
	}

	query := `
		UPDATE permissions
		SET code = $1, action = $2, name = $3, parent_id = $4, icon = $5, path = $6,
		    property = $7, description = $8, sort_order = $9, status = $10,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $11`

	result, err := r.db.ExecContext(ctx, query,
		f.Code, f.Action, f.Name, f.ParentID, f.Icon, f.Path, f.Property, f.Description, f.Order, f.Status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating permission: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrPermissionNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes a permission that has no children and is granted to no
// role. Otherwise an *apperr.ConflictError carrying the counts is returned.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(q store.Querier) error {
		var found int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM permissions WHERE id = $1`, id).Scan(&found); err != nil {
			return fmt.Errorf("querying permission: %w", err)
		}
		if found == 0 {
			return ErrPermissionNotFound
		}

		var children, roles int64
		query := `
			SELECT
				(SELECT COUNT(*) FROM permissions WHERE parent_id = $1),
				(SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1)`
		if err := q.QueryRowContext(ctx, query, id).Scan(&children, &roles); err != nil {
			return fmt.Errorf("counting permission references: %w", err)
		}

		refs := map[string]int64{"children": children, "roles": roles}
		if apperr.HasReferences(refs) {
			return apperr.ReferenceConflict("permission", refs)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id); err != nil {
			if store.IsForeignKeyViolation(err) {
				return ErrPermissionInUse
			}
			return fmt.Errorf("deleting permission: %w", err)
		}
		return nil
	})
}
