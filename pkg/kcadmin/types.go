package kcadmin

// The representation types cover the fields the services here actually
// exercise. Keycloak's full representations run to hundreds of fields;
// unknown ones are dropped on decode and omitted on encode, so partial
// structs round-trip safely against any server version.

// UserRepresentation describes a user account.
type UserRepresentation struct {
	ID            string                     `json:"id,omitempty"`
	Username      string                     `json:"username,omitempty"`
	Email         string                     `json:"email,omitempty"`
	EmailVerified bool                       `json:"emailVerified,omitempty"`
	FirstName     string                     `json:"firstName,omitempty"`
	LastName      string                     `json:"lastName,omitempty"`
	Enabled       *bool                      `json:"enabled,omitempty"`
	Attributes    map[string][]string        `json:"attributes,omitempty"`
	Credentials   []CredentialRepresentation `json:"credentials,omitempty"`
}

// CredentialRepresentation is a credential attached to a user, typically
// a password set at creation time.
type CredentialRepresentation struct {
	Type      string `json:"type,omitempty"`
	Value     string `json:"value,omitempty"`
	Temporary bool   `json:"temporary"`
}

// RealmRepresentation describes a realm.
type RealmRepresentation struct {
	ID          string `json:"id,omitempty"`
	Realm       string `json:"realm,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

// ClientRepresentation describes an OAuth2/OIDC client registration.
type ClientRepresentation struct {
	ID                        string   `json:"id,omitempty"`
	ClientID                  string   `json:"clientId,omitempty"`
	Name                      string   `json:"name,omitempty"`
	Secret                    string   `json:"secret,omitempty"`
	Enabled                   *bool    `json:"enabled,omitempty"`
	PublicClient              *bool    `json:"publicClient,omitempty"`
	ServiceAccountsEnabled    *bool    `json:"serviceAccountsEnabled,omitempty"`
	DirectAccessGrantsEnabled *bool    `json:"directAccessGrantsEnabled,omitempty"`
	RedirectURIs              []string `json:"redirectUris,omitempty"`
	// Attributes carries the flat key-value switches Keycloak does not
	// expose as top-level fields, e.g. enabling the device grant with
	// "oauth2.device.authorization.grant.enabled": "true".
	Attributes map[string]string `json:"attributes,omitempty"`
}

// RoleRepresentation describes a realm or client role.
type RoleRepresentation struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Composite   bool   `json:"composite,omitempty"`
	ClientRole  bool   `json:"clientRole,omitempty"`
}

// GroupRepresentation describes a group. SubGroups are only populated on
// single-group reads; list endpoints return top-level groups flat.
type GroupRepresentation struct {
	ID        string                `json:"id,omitempty"`
	Name      string                `json:"name,omitempty"`
	Path      string                `json:"path,omitempty"`
	SubGroups []GroupRepresentation `json:"subGroups,omitempty"`
}

// Bool returns a pointer to b, for the optional representation fields.
func Bool(b bool) *bool {
	return &b
}
