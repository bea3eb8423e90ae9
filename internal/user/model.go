package user

import "time"

// User represents a row in the users table joined with its role and
// organization names.
type User struct {
	ID               int64
	Name             string
	PasswordHash     string
	OrganizationID   int64
	OrganizationName string
	RoleID           int64
	RoleCode         string
	RoleName         string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Credential is what the login flow needs to verify a password and seed a
// token.
type Credential struct {
	UserID       int64
	Name         string
	PasswordHash string
	RoleCode     string
}

// ListFilter holds optional list filters. Zero values are ignored.
type ListFilter struct {
	Name           string
	Status         string
	RoleID         int64
	OrganizationID int64
}

// UpdateFields holds the mutable user columns. The password is changed
// through UpdatePasswordHash only.
type UpdateFields struct {
	Name           string
	OrganizationID int64
	RoleID         int64
	Status         string
}
