package kcadmin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// RolesService manages realm-level roles. Role endpoints are addressed by
// role name, not id.
type RolesService struct {
	*service
}

// List returns the realm's roles.
func (s *RolesService) List(ctx context.Context, realm string) ([]RoleRepresentation, error) {
	var roles []RoleRepresentation
	p := fmt.Sprintf("/admin/realms/%s/roles", s.realmOr(realm))
	if err := s.get(ctx, p, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// Get fetches a role by name.
func (s *RolesService) Get(ctx context.Context, realm, name string) (*RoleRepresentation, error) {
	var role RoleRepresentation
	p := fmt.Sprintf("/admin/realms/%s/roles/%s", s.realmOr(realm), url.PathEscape(name))
	if err := s.get(ctx, p, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// Create registers a new realm role.
func (s *RolesService) Create(ctx context.Context, realm string, role RoleRepresentation) error {
	p := fmt.Sprintf("/admin/realms/%s/roles", s.realmOr(realm))
	return s.do(ctx, http.MethodPost, p, role, nil, http.StatusCreated)
}

// Delete removes a role by name.
func (s *RolesService) Delete(ctx context.Context, realm, name string) error {
	p := fmt.Sprintf("/admin/realms/%s/roles/%s", s.realmOr(realm), url.PathEscape(name))
	return s.do(ctx, http.MethodDelete, p, nil, nil, http.StatusNoContent)
}

// AssignToUser grants the user the given realm roles. The representations
// must carry both ID and Name; Keycloak rejects partial role references.
func (s *RolesService) AssignToUser(ctx context.Context, realm, userID string, roles []RoleRepresentation) error {
	p := fmt.Sprintf("/admin/realms/%s/users/%s/role-mappings/realm", s.realmOr(realm), userID)
	return s.do(ctx, http.MethodPost, p, roles, nil, http.StatusNoContent)
}
