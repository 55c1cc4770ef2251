package dto

// PermissionMatrix maps "{area}_{action}" to the lowest role level holding it.
// A level of 0 means no role below developer holds the key.
type PermissionMatrixResponse struct {
	Matrix      map[string]int `json:"matrix"`
	ManageLevel int            `json:"manage_level"`
	Roles       []RoleResponse `json:"roles"`
}

// UpdatePermissionMatrixRequest assigns each key to a minimum role.
type UpdatePermissionMatrixRequest struct {
	Assignments map[string]string `json:"assignments" validate:"required,min=1"`
}

type PermissionSummary struct {
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	Level       int    `json:"level"`
	Granted     int    `json:"granted"`
	Total       int    `json:"total"`
}

type MyPermissionsResponse struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}
