package permission

import "time"

// Permission represents a row in the permissions table: a menu entry or
// action, arranged in a tree through ParentID (0 for a root entry).
type Permission struct {
	ID          int64
	Code        string
	Action      string
	Name        string
	ParentID    int64
	Icon        string
	Path        string
	Property    string
	Description string
	Order       int
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter holds optional list filters. Zero values are ignored.
type ListFilter struct {
	Name     string
	Status   string
	ParentID int64
}

// UpdateFields holds the mutable permission columns.
type UpdateFields struct {
	Code        string
	Action      string
	Name        string
	ParentID    int64
	Icon        string
	Path        string
	Property    string
	Description string
	Order       int
	Status      string
}
