// Package authz resolves role-based permissions and enforces organization
// scope for every operation in the system.
package authz

// Permission is an enumerated capability. The set is fixed at compile time.
type Permission string

const (
	PermissionTransformMessages Permission = "transform:messages"
	PermissionReadPatientData   Permission = "read:patient-data"
	PermissionManageConsent     Permission = "manage:consent"
	PermissionReadConsent       Permission = "read:consent"
	PermissionReadAudit         Permission = "read:audit"
	PermissionPurgeAudit        Permission = "purge:audit"
	PermissionManageSystem      Permission = "manage:system"
)

// PermissionSet is an unordered set of capabilities.
type PermissionSet map[Permission]struct{}

func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}
