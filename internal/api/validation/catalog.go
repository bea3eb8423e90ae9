package validation

import (
	"context"
	"strings"

	"github.com/webbase/adminapi/internal/refcheck"
)

// RoleRequest mirrors the fields needed for role validation.
type RoleRequest struct {
	Code        string
	Name        string
	Description string
	Status      string
}

// ValidateRole validates a role create (currentCode empty) or replacement.
// The code is re-checked for uniqueness only when it changed.
func ValidateRole(ctx context.Context, c Checker, currentCode string, req RoleRequest) ([]FieldError, error) {
	v := newCollector(ctx, c)
	v.required("code", req.Code)
	v.maxLen("code", req.Code, maxTextLength)
	v.required("name", req.Name)
	v.maxLen("name", req.Name, maxTextLength)
	v.maxLen("status", req.Status, maxStatusLength)

	if code := strings.TrimSpace(req.Code); code != currentCode {
		v.constraint("code", refcheck.RoleCode, code)
	}
	return v.result()
}

// PermissionRequest mirrors the fields needed for permission validation.
type PermissionRequest struct {
	Code     string
	Action   string
	Name     string
	ParentID int64
	Path     string
	Status   string
}

// ValidatePermission validates a permission create or replacement.
func ValidatePermission(ctx context.Context, c Checker, req PermissionRequest) ([]FieldError, error) {
	v := newCollector(ctx, c)
	v.required("code", req.Code)
	v.maxLen("code", req.Code, maxTextLength)
	v.required("name", req.Name)
	v.maxLen("name", req.Name, maxTextLength)
	v.maxLen("action", req.Action, maxTextLength)
	v.maxLen("path", req.Path, maxTextLength)
	v.maxLen("status", req.Status, maxStatusLength)
	if req.ParentID < 0 {
		v.add("parentId", "parentId must not be negative")
	}

	v.constraint("parentId", refcheck.PermissionParent, req.ParentID)
	return v.result()
}

// OrganizationRequest mirrors the fields needed for organization validation.
type OrganizationRequest struct {
	Code     string
	Name     string
	ParentID int64
	Status   string
}

// ValidateOrganization validates an organization create or replacement.
func ValidateOrganization(ctx context.Context, c Checker, req OrganizationRequest) ([]FieldError, error) {
	v := newCollector(ctx, c)
	v.required("code", req.Code)
	v.maxLen("code", req.Code, maxTextLength)
	v.required("name", req.Name)
	v.maxLen("name", req.Name, maxTextLength)
	v.maxLen("status", req.Status, maxStatusLength)
	if req.ParentID < 0 {
		v.add("parentId", "parentId must not be negative")
	}

	v.constraint("parentId", refcheck.OrganizationParent, req.ParentID)
	return v.result()
}
