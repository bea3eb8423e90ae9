package organization

import "time"

// Organization represents a row in the organizations table. ParentID is 0
// for a top-level organization.
type Organization struct {
	ID          int64
	Code        string
	Name        string
	ParentID    int64
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Node is an organization with its sub-organizations.
type Node struct {
	Organization
	Children []*Node
}

// ListFilter holds optional list filters. Zero values are ignored.
type ListFilter struct {
	Code     string
	Name     string
	Status   string
	ParentID int64
}

// UpdateFields holds the mutable organization columns.
type UpdateFields struct {
	Code        string
	Name        string
	ParentID    int64
	Description string
	Status      string
}
