package refcheck

// Constraint keys used by request validation.
const (
	UserName           Key = "user.name"
	UserOrganization   Key = "user.organizationId"
	UserRole           Key = "user.roleId"
	RoleCode           Key = "role.code"
	PermissionParent   Key = "permission.parentId"
	PermissionID       Key = "permission.id"
	OrganizationParent Key = "organization.parentId"
)

// Defaults returns the constraints validated by the API.
func Defaults() []Constraint {
	return []Constraint{
		{Key: UserName, Table: "users", Column: "name", Mode: Unique, Message: "user name already exists"},
		{Key: UserOrganization, Table: "organizations", Column: "id", Mode: Exists, Message: "organization does not exist"},
		{Key: UserRole, Table: "roles", Column: "id", Mode: Exists, Message: "role does not exist"},
		{Key: RoleCode, Table: "roles", Column: "code", Mode: Unique, Message: "role code already exists"},
		{Key: PermissionParent, Table: "permissions", Column: "id", Mode: Exists, Optional: true, Message: "parent permission does not exist"},
		{Key: PermissionID, Table: "permissions", Column: "id", Mode: Exists, Message: "permission does not exist"},
		{Key: OrganizationParent, Table: "organizations", Column: "id", Mode: Exists, Optional: true, Message: "parent organization does not exist"},
	}
}
