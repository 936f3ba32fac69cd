// Package rbac maps operator roles to the permissions they grant.
package rbac

// PermAdminister grants unscoped access to every notification event.
const PermAdminister = "notificationevents.administer"

// Policy maps a role to its permissions. "*" grants everything.
type Policy map[string][]string

// NewPolicy grants every permission to adminRole.
func NewPolicy(adminRole string) Policy {
	return Policy{adminRole: {"*"}}
}

// CheckPermission checks if a role has a specific permission
func (p Policy) CheckPermission(role, permission string) bool {
	perms, ok := p[role]
	if !ok {
		return false
	}
	for _, perm := range perms {
		if perm == "*" || perm == permission {
			return true
		}
	}
	return false
}

// Allows reports whether any of roles grants permission.
func (p Policy) Allows(roles []string, permission string) bool {
	for _, r := range roles {
		if p.CheckPermission(r, permission) {
			return true
		}
	}
	return false
}
