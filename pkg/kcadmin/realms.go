package kcadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RealmsService manages realms. Unlike the other services, realm
// operations are addressed by realm name rather than id, and Create does
// not report an id through the Location header.
type RealmsService struct {
	*service
}

// List returns all realms visible to the authenticated account.
func (s *RealmsService) List(ctx context.Context) ([]RealmRepresentation, error) {
	var realms []RealmRepresentation
	if err := s.get(ctx, "/admin/realms", &realms); err != nil {
		return nil, err
	}
	return realms, nil
}

// Get fetches a realm by name.
func (s *RealmsService) Get(ctx context.Context, realm string) (*RealmRepresentation, error) {
	var rep RealmRepresentation
	p := fmt.Sprintf("/admin/realms/%s", s.realmOr(realm))
	if err := s.get(ctx, p, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// Create registers a new realm.
func (s *RealmsService) Create(ctx context.Context, realm RealmRepresentation) error {
	return s.do(ctx, http.MethodPost, "/admin/realms", realm, nil, http.StatusCreated)
}

// Update replaces the realm's top-level settings.
func (s *RealmsService) Update(ctx context.Context, realm string, rep RealmRepresentation) error {
	p := fmt.Sprintf("/admin/realms/%s", s.realmOr(realm))
	return s.do(ctx, http.MethodPut, p, rep, nil, http.StatusNoContent)
}

// Delete removes a realm and everything in it.
func (s *RealmsService) Delete(ctx context.Context, realm string) error {
	p := fmt.Sprintf("/admin/realms/%s", s.realmOr(realm))
	return s.do(ctx, http.MethodDelete, p, nil, nil, http.StatusNoContent)
}

// Export returns the realm's full partial-export document as raw JSON,
// optionally including users and groups. The document is returned
// undecoded since its shape varies across server versions.
func (s *RealmsService) Export(ctx context.Context, realm string, includeUsers bool) (json.RawMessage, error) {
	var doc json.RawMessage
	p := fmt.Sprintf("/admin/realms/%s/partial-export?exportClients=true&exportGroupsAndRoles=%t",
		s.realmOr(realm), includeUsers)
	if err := s.do(ctx, http.MethodPost, p, nil, &doc, http.StatusOK); err != nil {
		return nil, err
	}
	return doc, nil
}
