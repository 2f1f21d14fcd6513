package keycloak_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acie-dev/kcauth/pkg/kcadmin"
	"github.com/acie-dev/kcauth/pkg/kcauth"
)

// TestSessionLifecycle drives a session through its full surface against
// a real server: lazy authentication, authenticated requests through the
// handle, refresh, and scoped entry.
func TestSessionLifecycle(t *testing.T) {
	skipShort(t)

	admin := newAdminClient(t)
	realm := setupRealm(t, admin)
	clientID, secret := createServiceClient(t, admin, realm)
	username := createTestUser(t, admin, realm)

	cfg := serviceConfig(realm, clientID, secret)
	session, err := kcauth.NewSession(cfg, kcauth.WithPasswordGrant(username, testUserPassword))
	require.NoError(t, err)

	// Nothing has authenticated yet.
	_, ok := session.Peek()
	require.False(t, ok)

	handle, err := session.HandleContext(t.Context())
	require.NoError(t, err)

	// The handle must work against a protected endpoint.
	resp, err := handle.Do(t.Context(), http.MethodGet,
		"/realms/"+realm+"/protocol/openid-connect/userinfo", nil, nil)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "userinfo response: %s", body)
	require.Contains(t, string(body), username)

	// Refresh must produce a distinct working handle.
	before := handle.AccessToken()
	require.NoError(t, session.RefreshContext(t.Context()))

	refreshed, err := session.HandleContext(t.Context())
	require.NoError(t, err)
	require.NotEqual(t, before, refreshed.AccessToken())

	resp, err = refreshed.Do(t.Context(), http.MethodGet,
		"/realms/"+realm+"/protocol/openid-connect/userinfo", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Exit keeps the token around for a cheap later re-entry.
	session.ExitContext()
	tok, ok := session.Peek()
	require.True(t, ok)
	require.NotNil(t, tok)
}

// TestAdminFacadeRoundTrip exercises the admin services together: users,
// roles, groups and a realm export, all inside a throwaway realm.
func TestAdminFacadeRoundTrip(t *testing.T) {
	skipShort(t)

	admin := newAdminClient(t)
	realm := setupRealm(t, admin)

	username := createTestUser(t, admin, realm)

	users, err := admin.Users.List(t.Context(), realm, kcadmin.UserQuery{Username: username})
	require.NoError(t, err)
	require.Len(t, users, 1)
	userID := users[0].ID

	// Role: create, assign, verify by name.
	roleName := uniqueName("role")
	err = admin.Roles.Create(t.Context(), realm, kcadmin.RoleRepresentation{Name: roleName})
	require.NoError(t, err)

	role, err := admin.Roles.Get(t.Context(), realm, roleName)
	require.NoError(t, err)
	require.NotEmpty(t, role.ID)

	err = admin.Roles.AssignToUser(t.Context(), realm, userID, []kcadmin.RoleRepresentation{*role})
	require.NoError(t, err)

	// Group: create, add the user, confirm membership.
	groupID, err := admin.Groups.Create(t.Context(), realm, kcadmin.GroupRepresentation{Name: uniqueName("group")})
	require.NoError(t, err)
	require.NotEmpty(t, groupID)

	err = admin.Groups.AddUser(t.Context(), realm, userID, groupID)
	require.NoError(t, err)

	members, err := admin.Groups.Members(t.Context(), realm, groupID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, username, members[0].Username)

	// Export must produce a document naming the realm.
	doc, err := admin.Realms.Export(t.Context(), realm, true)
	require.NoError(t, err)
	require.Contains(t, string(doc), realm)
}
