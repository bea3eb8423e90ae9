package validation

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/webbase/adminapi/internal/refcheck"
)

// User name and password bounds.
const (
	MinUserNameLength = 4
	MaxUserNameLength = 14
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

// UserRequest mirrors the fields needed for user validation.
type UserRequest struct {
	Name           string
	Password       string
	OrganizationID int64
	RoleID         int64
	Status         string
}

// ValidateCreateUser validates a new user, including its password.
func ValidateCreateUser(ctx context.Context, c Checker, req UserRequest) ([]FieldError, error) {
	v := newCollector(ctx, c)
	validateUserShape(v, req)
	validatePassword(v, "password", req.Password)
	v.constraint("name", refcheck.UserName, strings.TrimSpace(req.Name))
	validateUserRefs(v, req)
	return v.result()
}

// ValidateUpdateUser validates a user replacement. The name is only
// re-checked for uniqueness when it differs from currentName.
func ValidateUpdateUser(ctx context.Context, c Checker, currentName string, req UserRequest) ([]FieldError, error) {
	v := newCollector(ctx, c)
	validateUserShape(v, req)
	if name := strings.TrimSpace(req.Name); name != currentName {
		v.constraint("name", refcheck.UserName, name)
	}
	validateUserRefs(v, req)
	return v.result()
}

// ValidateChangePassword validates a self-service password change.
func ValidateChangePassword(oldPassword, newPassword string) []FieldError {
	v := &collector{}
	if oldPassword == "" {
		v.add("oldPassword", "oldPassword is required")
	}
	validatePassword(v, "newPassword", newPassword)
	return v.errs
}

// ValidateResetPassword validates an administrative password reset.
func ValidateResetPassword(newPassword string) []FieldError {
	v := &collector{}
	validatePassword(v, "newPassword", newPassword)
	return v.errs
}

func validateUserShape(v *collector, req UserRequest) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		v.add("name", "name is required")
	} else if n := utf8.RuneCountInString(name); n < MinUserNameLength || n > MaxUserNameLength {
		v.add("name", "name must be between %d and %d characters", MinUserNameLength, MaxUserNameLength)
	}
	v.positive("organizationId", req.OrganizationID)
	v.positive("roleId", req.RoleID)
	v.maxLen("status", req.Status, maxStatusLength)
}

func validateUserRefs(v *collector, req UserRequest) {
	v.constraint("organizationId", refcheck.UserOrganization, req.OrganizationID)
	v.constraint("roleId", refcheck.UserRole, req.RoleID)
}

func validatePassword(v *collector, field, password string) {
	if password == "" {
		v.add(field, "%s is required", field)
	} else if utf8.RuneCountInString(password) < MinPasswordLength {
		v.add(field, "%s must be at least %d characters", field, MinPasswordLength)
	} else if len(password) > MaxPasswordBytes {
		v.add(field, "%s must be at most %d bytes", field, MaxPasswordBytes)
	}
}
