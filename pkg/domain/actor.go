package domain

// Role is a healthcare role assigned to an actor. Permissions are resolved
// from roles through the authz matrix; roles themselves carry no permissions.
type Role string

const (
	RoleSystemAdmin        Role = "SYSTEM_ADMIN"
	RoleAPIClient          Role = "API_CLIENT"
	RolePhysician          Role = "PHYSICIAN"
	RoleNurse              Role = "NURSE"
	RoleComplianceOfficer  Role = "COMPLIANCE_OFFICER"
	RoleDataAnalyst        Role = "DATA_ANALYST"
	RoleNetworkParticipant Role = "NETWORK_PARTICIPANT"
	RolePatient            Role = "PATIENT"
)

// Actor is an authenticated caller. It is resolved by the transport layer
// from a credential; the core never parses credentials itself and never
// persists actors.
type Actor struct {
	ID             string
	Name           string
	OrganizationID string
	Roles          []Role
	Enabled        bool
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
