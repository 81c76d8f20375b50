package models

// PermissionModules are the ERP modules the matrix editor covers.
var PermissionModules = []string{
	"hr",
	"sales",
	"consulting",
	"attendance",
	"travel",
	"chat",
	"reports",
}

// ModulePermission is one cell of the role-by-module matrix.
type ModulePermission struct {
	View bool `json:"view"`
	Edit bool `json:"edit"`
}

// PermissionMatrix maps role -> module -> permission.
type PermissionMatrix map[string]map[string]ModulePermission

// IsValidModule checks if a module name is part of the matrix.
func IsValidModule(module string) bool {
	for _, m := range PermissionModules {
		if m == module {
			return true
		}
	}
	return false
}

// Validate rejects matrices that reference unknown roles or modules.
func (pm PermissionMatrix) Validate() error {
	for role, modules := range pm {
		if !IsValidRole(role) {
			return &MatrixError{Role: role}
		}
		for module := range modules {
			if !IsValidModule(module) {
				return &MatrixError{Role: role, Module: module}
			}
		}
	}
	return nil
}

// MatrixError reports the offending cell of an invalid matrix.
type MatrixError struct {
	Role   string
	Module string
}

func (e *MatrixError) Error() string {
	if e.Module != "" {
		return "unknown module " + e.Module + " for role " + e.Role
	}
	return "unknown role " + e.Role
}
