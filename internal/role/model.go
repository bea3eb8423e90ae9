package role

import "time"

// Role represents a row in the roles table. Code is what tokens carry.
type Role struct {
	ID          int64
	Code        string
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter holds optional substring filters. Empty values are ignored.
type ListFilter struct {
	Code   string
	Name   string
	Status string
}

// UpdateFields holds the mutable role columns.
type UpdateFields struct {
	Code        string
	Name        string
	Description string
	Status      string
}
