package authz_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hl7bridge/internal/audit"
	"hl7bridge/internal/authz"
	"hl7bridge/pkg/domain"
)

func newGate(store audit.Store) *authz.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(store, nil, logger, nil)
	return authz.NewService(authz.NewMatrix(), recorder, logger, nil)
}

func enabledActor(org string, roles ...domain.Role) domain.Actor {
	return domain.Actor{ID: "actor-1", OrganizationID: org, Roles: roles, Enabled: true}
}

func TestAuthorize_DisabledActorDeniedEveryPermission(t *testing.T) {
	gate := newGate(audit.NewInMemoryStore())
	actor := enabledActor("org-1", domain.RoleSystemAdmin)
	actor.Enabled = false

	for _, p := range []authz.Permission{
		authz.PermissionTransformMessages,
		authz.PermissionReadPatientData,
		authz.PermissionManageConsent,
		authz.PermissionReadAudit,
		authz.PermissionPurgeAudit,
		authz.PermissionManageSystem,
	} {
		decision := gate.Authorize(context.Background(), actor, p, authz.Scope{})
		assert.False(t, decision.Allowed, "disabled actor must be denied %s", p)
	}
}

func TestAuthorize_PermissionsAreRoleUnion(t *testing.T) {
	gate := newGate(audit.NewInMemoryStore())
	actor := enabledActor("org-1", domain.RoleNurse, domain.RoleDataAnalyst)

	// Nurse alone holds neither audit read nor transform; the analyst role
	// contributes audit read, and neither contributes transform.
	assert.True(t, gate.Authorize(context.Background(), actor, authz.PermissionReadAudit, authz.Scope{}).Allowed)
	assert.True(t, gate.Authorize(context.Background(), actor, authz.PermissionReadConsent, authz.Scope{}).Allowed)
	assert.False(t, gate.Authorize(context.Background(), actor, authz.PermissionTransformMessages, authz.Scope{}).Allowed)
}

func TestAuthorize_UnknownRoleGrantsNothing(t *testing.T) {
	gate := newGate(audit.NewInMemoryStore())
	actor := enabledActor("org-1", domain.Role("MYSTERY_ROLE"))

	decision := gate.Authorize(context.Background(), actor, authz.PermissionReadPatientData, authz.Scope{})
	assert.False(t, decision.Allowed)
}

func TestAuthorize_OrganizationScope(t *testing.T) {
	gate := newGate(audit.NewInMemoryStore())

	t.Run("matching organization allows", func(t *testing.T) {
		actor := enabledActor("org-1", domain.RolePhysician)
		decision := gate.Authorize(context.Background(), actor, authz.PermissionTransformMessages, authz.Scope{OrganizationID: "org-1"})
		assert.True(t, decision.Allowed)
	})

	t.Run("foreign organization denies", func(t *testing.T) {
		actor := enabledActor("org-1", domain.RolePhysician)
		decision := gate.Authorize(context.Background(), actor, authz.PermissionTransformMessages, authz.Scope{OrganizationID: "org-2"})
		assert.False(t, decision.Allowed)
		assert.Contains(t, decision.Reason, "organization")
	})

	t.Run("network participant crosses organizations", func(t *testing.T) {
		actor := enabledActor("org-1", domain.RoleNetworkParticipant)
		decision := gate.Authorize(context.Background(), actor, authz.PermissionTransformMessages, authz.Scope{OrganizationID: "org-2"})
		assert.True(t, decision.Allowed)
	})

	t.Run("cross-organization capability does not invent permissions", func(t *testing.T) {
		actor := enabledActor("org-1", domain.RoleNetworkParticipant)
		decision := gate.Authorize(context.Background(), actor, authz.PermissionPurgeAudit, authz.Scope{OrganizationID: "org-2"})
		assert.False(t, decision.Allowed)
	})
}

func TestAuthorize_EveryDecisionIsAudited(t *testing.T) {
	store := audit.NewInMemoryStore()
	gate := newGate(store)
	ctx := context.Background()

	allowed := gate.Authorize(ctx, enabledActor("org-1", domain.RolePhysician), authz.PermissionTransformMessages, authz.Scope{})
	denied := gate.Authorize(ctx, enabledActor("org-1", domain.RoleNurse), authz.PermissionTransformMessages, authz.Scope{})
	require.True(t, allowed.Allowed)
	require.False(t, denied.Allowed)

	events, err := store.List(ctx, audit.Query{Action: audit.ActionAuthorize})
	require.NoError(t, err)
	require.Len(t, events, 2, "allow and deny must both be audited")

	outcomes := map[audit.Outcome]int{}
	for _, e := range events {
		outcomes[e.Outcome]++
		assert.NotEmpty(t, e.ActorID)
		assert.False(t, e.Timestamp.IsZero())
	}
	assert.Equal(t, 1, outcomes[audit.OutcomeSuccess])
	assert.Equal(t, 1, outcomes[audit.OutcomeDenied])
}
