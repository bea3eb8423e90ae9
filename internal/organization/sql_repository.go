package organization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/store"
)

// Entity is the list schema for organizations.
var Entity = listquery.MustEntity(listquery.EntityConfig{
	Name:    "organizations",
	From:    "organizations",
	Columns: []string{"id", "code", "name", "parent_id", "description", "status", "created_at", "updated_at"},
	Fields: map[string]string{
		"id":        "id",
		"code":      "code",
		"name":      "name",
		"parentId":  "parent_id",
		"status":    "status",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
})

const selectOrganization = `
	SELECT id, code, name, parent_id, description, status, created_at, updated_at
	FROM organizations`

// SQLRepository implements Repository using database/sql.
type SQLRepository struct {
	db store.TxQuerier
}

// NewRepository creates a new Repository backed by the given store.
func NewRepository(db store.TxQuerier) Repository {
	return &SQLRepository{db: db}
}

func scanOrganization(s listquery.Scanner) (Organization, error) {
	var o Organization
	err := s.Scan(&o.ID, &o.Code, &o.Name, &o.ParentID, &o.Description, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts a new organization record.
func (r *SQLRepository) Create(ctx context.Context, o *Organization) (*Organization, error) {
	query := `
		INSERT INTO organizations (code, name, parent_id, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	created := *o
	err := r.db.QueryRowContext(ctx, query, o.Code, o.Name, o.ParentID, o.Description, o.Status).
		Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting organization: %w", err)
	}

	return &created, nil
}

// GetByID retrieves a single organization by id.
func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*Organization, error) {
	o, err := scanOrganization(r.db.QueryRowContext(ctx, selectOrganization+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("querying organization: %w", err)
	}
	return &o, nil
}

// List retrieves a filtered page of organizations.
func (r *SQLRepository) List(ctx context.Context, filter ListFilter, req listquery.Request) (*listquery.Result[Organization], error) {
	return listquery.Run(ctx, r.db, Entity, req, scanOrganization,
		listquery.Contains("code", filter.Code),
		listquery.Contains("name", filter.Name),
		listquery.Contains("status", filter.Status),
		listquery.Equal("parentId", filter.ParentID),
	)
}

// Tree returns every organization nested under its parent. Organizations
// whose parent no longer exists are returned as roots.
func (r *SQLRepository) Tree(ctx context.Context) ([]*Node, error) {
	rows, err := r.db.QueryContext(ctx, selectOrganization+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	defer rows.Close()

	var all []Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning organization row: %w", err)
		}
		all = append(all, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating organization rows: %w", err)
	}

	return BuildTree(all), nil
}

// BuildTree nests orgs by ParentID, preserving input order among siblings.
func BuildTree(orgs []Organization) []*Node {
	nodes := make(map[int64]*Node, len(orgs))
	for _, o := range orgs {
		nodes[o.ID] = &Node{Organization: o, Children: []*Node{}}
	}

	roots := []*Node{}
	for _, o := range orgs {
		n := nodes[o.ID]
		parent, ok := nodes[o.ParentID]
		if o.ParentID == 0 || !ok || o.ParentID == o.ID {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// Update overwrites the mutable columns of an organization.
func (r *SQLRepository) Update(ctx context.Context, id int64, f UpdateFields) (*Organization, error) {
	if f.ParentID == id {
		return nil, ErrSelfParent
	}

	query := `
		UPDATE organizations
		SET code = $1, name = $2, parent_id = $3, description = $4, status = $5,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query, f.Code, f.Name, f.ParentID, f.Description, f.Status, id)
	if err != nil {
		return nil, fmt.Errorf("updating organization: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrOrganizationNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes an organization with no sub-organizations and no users.
// Otherwise an *apperr.ConflictError carrying the counts is returned.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(q store.Querier) error {
		var found int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM organizations WHERE id = $1`, id).Scan(&found); err != nil {
			return fmt.Errorf("querying organization: %w", err)
		}
		if found == 0 {
			return ErrOrganizationNotFound
		}

		var children, users int64
		query := `
			SELECT
				(SELECT COUNT(*) FROM organizations WHERE parent_id = $1),
				(SELECT COUNT(*) FROM users WHERE organization_id = $1)`
		if err := q.QueryRowContext(ctx, query, id).Scan(&children, &users); err != nil {
			return fmt.Errorf("counting organization references: %w", err)
		}

		refs := map[string]int64{"children": children, "users": users}
		if apperr.HasReferences(refs) {
			return apperr.ReferenceConflict("organization", refs)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id); err != nil {
			if store.IsForeignKeyViolation(err) {
				return ErrOrganizationInUse
			}
			return fmt.Errorf("deleting organization: %w", err)
		}
		return nil
	})
}
