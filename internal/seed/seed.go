// Package seed creates the records a fresh installation needs before anyone
// can log in: the administrator and user roles, a root organization and an
// administrator account.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/organization"
	"github.com/webbase/adminapi/internal/role"
	"github.com/webbase/adminapi/internal/user"
)

// Defaults for Options fields left empty.
const (
	DefaultAdminName = "admin"
	DefaultAdminRole = "admin"
	DefaultUserRole  = "user"
	DefaultRootOrg   = "root"
	activeStatus     = "active"
)

// Hasher produces the stored form of a password.
type Hasher interface {
	HashPassword(password string) (string, error)
}

// Deps are the repositories the seed writes through.
type Deps struct {
	Users         user.Repository
	Roles         role.Repository
	Organizations organization.Repository
	Hasher        Hasher
}

// Options control what gets created.
type Options struct {
	AdminRole     string
	UserRole      string
	RootOrg       string
	AdminName     string
	AdminPassword string
}

// Result reports what the run created. GeneratedPassword is set only when
// the admin account was created without an explicit password.
type Result struct {
	CreatedRoles      []string
	CreatedRootOrg    bool
	CreatedAdmin      bool
	AdminName         string
	GeneratedPassword string
}

// Run creates whatever is missing. Existing records are left untouched, so
// running it twice is safe.
func Run(ctx context.Context, deps Deps, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	res := &Result{AdminName: opts.AdminName}

	var adminRole *role.Role
	for _, def := range []struct{ code, name string }{
		{opts.AdminRole, "Administrator"},
		{opts.UserRole, "User"},
	} {
		r, created, err := ensureRole(ctx, deps.Roles, def.code, def.name)
		if err != nil {
			return nil, err
		}
		if created {
			res.CreatedRoles = append(res.CreatedRoles, def.code)
		}
		if def.code == opts.AdminRole {
			adminRole = r
		}
	}

	org, created, err := ensureRootOrg(ctx, deps.Organizations, opts.RootOrg)
	if err != nil {
		return nil, err
	}
	res.CreatedRootOrg = created

	_, err = deps.Users.GetCredentialByName(ctx, opts.AdminName)
	switch {
	case err == nil:
		return res, nil
	case !errors.Is(err, user.ErrUserNotFound):
		return nil, fmt.Errorf("looking up admin user: %w", err)
	}

	password := opts.AdminPassword
	if password == "" {
		if password, err = generatePassword(); err != nil {
			return nil, err
		}
		res.GeneratedPassword = password
	}

	hash, err := deps.Hasher.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}

	if _, err := deps.Users.Create(ctx, &user.User{
		Name:           opts.AdminName,
		PasswordHash:   hash,
		OrganizationID: org.ID,
		RoleID:         adminRole.ID,
		Status:         activeStatus,
	}); err != nil {
		return nil, fmt.Errorf("creating admin user: %w", err)
	}
	res.CreatedAdmin = true

	slog.Info("admin user created", "name", opts.AdminName, "role", opts.AdminRole)
	return res, nil
}

func (o Options) withDefaults() Options {
	if o.AdminRole == "" {
		o.AdminRole = DefaultAdminRole
	}
	if o.UserRole == "" {
		o.UserRole = DefaultUserRole
	}
	if o.RootOrg == "" {
		o.RootOrg = DefaultRootOrg
	}
	if o.AdminName == "" {
		o.AdminName = DefaultAdminName
	}
	return o
}

func ensureRole(ctx context.Context, roles role.Repository, code, name string) (*role.Role, bool, error) {
	r, err := roles.GetByCode(ctx, code)
	if err == nil {
		return r, false, nil
	}
	if !errors.Is(err, role.ErrRoleNotFound) {
		return nil, false, fmt.Errorf("looking up role %q: %w", code, err)
	}

	r, err = roles.Create(ctx, &role.Role{Code: code, Name: name, Status: activeStatus})
	if err != nil {
		return nil, false, fmt.Errorf("creating role %q: %w", code, err)
	}
	slog.Info("role created", "code", code)
	return r, true, nil
}

func ensureRootOrg(ctx context.Context, orgs organization.Repository, code string) (*organization.Organization, bool, error) {
	page, err := orgs.List(ctx, organization.ListFilter{Code: code}, listquery.Request{PageSize: listquery.MaxPageSize})
	if err != nil {
		return nil, false, fmt.Errorf("looking up organization %q: %w", code, err)
	}
	for i := range page.Items {
		if page.Items[i].Code == code {
			return &page.Items[i], false, nil
		}
	}

	o, err := orgs.Create(ctx, &organization.Organization{Code: code, Name: "Root", Status: activeStatus})
	if err != nil {
		return nil, false, fmt.Errorf("creating organization %q: %w", code, err)
	}
	slog.Info("organization created", "code", code)
	return o, true, nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating admin password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
