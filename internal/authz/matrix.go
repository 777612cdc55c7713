package authz

import "hl7bridge/pkg/domain"

// Matrix maps roles to their capability sets. It is assembled once at
// startup and never mutated afterwards; callers hold it by reference.
type Matrix struct {
	grants map[domain.Role]PermissionSet
}

// NewMatrix builds the standard role assignments.
func NewMatrix() *Matrix {
	m := &Matrix{grants: make(map[domain.Role]PermissionSet)}

	m.grant(domain.RoleSystemAdmin,
		PermissionTransformMessages,
		PermissionReadPatientData,
		PermissionManageConsent,
		PermissionReadConsent,
		PermissionReadAudit,
		PermissionPurgeAudit,
		PermissionManageSystem,
	)
	m.grant(domain.RoleAPIClient,
		PermissionTransformMessages,
		PermissionReadPatientData,
	)
	m.grant(domain.RolePhysician,
		PermissionTransformMessages,
		PermissionReadPatientData,
		PermissionReadConsent,
	)
	m.grant(domain.RoleNurse,
		PermissionReadPatientData,
		PermissionReadConsent,
	)
	m.grant(domain.RoleComplianceOfficer,
		PermissionReadAudit,
		PermissionReadConsent,
		PermissionManageConsent,
	)
	m.grant(domain.RoleDataAnalyst,
		PermissionReadPatientData,
		PermissionReadAudit,
	)
	m.grant(domain.RoleNetworkParticipant,
		PermissionTransformMessages,
		PermissionReadPatientData,
	)
	m.grant(domain.RolePatient,
		PermissionReadConsent,
		PermissionManageConsent,
	)

	return m
}

func (m *Matrix) grant(role domain.Role, permissions ...Permission) {
	set := make(PermissionSet, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	m.grants[role] = set
}

// PermissionsFor resolves the union of capabilities across the actor's
// roles. Unknown roles contribute nothing.
func (m *Matrix) PermissionsFor(actor domain.Actor) PermissionSet {
	union := make(PermissionSet)
	for _, role := range actor.Roles {
		for p := range m.grants[role] {
			union[p] = struct{}{}
		}
	}
	return union
}
