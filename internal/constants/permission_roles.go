package constants

import roles "taxqual-backend/internal/pkg/constants"

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:             {roles.Admin, roles.Analyst, roles.Auditor, roles.Broker},
	EditQualifications:   {roles.Admin, roles.Analyst, roles.Broker},
	DeleteQualifications: {roles.Admin},
	BulkImport:           {roles.Admin, roles.Analyst, roles.Broker},
	ManageUsers:          {roles.Admin},
	ViewAudit:            {roles.Admin, roles.Auditor},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	allowed, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
