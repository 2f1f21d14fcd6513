package kcadmin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ClientsService manages client registrations within a realm. Note the
// two identifiers: ClientID is the OAuth2 client identifier chosen at
// registration, while the id used in paths is the server-assigned UUID.
type ClientsService struct {
	*service
}

// List returns the realm's clients, filtered by OAuth2 client id when
// clientID is non-empty.
func (s *ClientsService) List(ctx context.Context, realm, clientID string) ([]ClientRepresentation, error) {
	var clients []ClientRepresentation
	p := fmt.Sprintf("/admin/realms/%s/clients", s.realmOr(realm))
	if clientID != "" {
		p += "?clientId=" + url.QueryEscape(clientID)
	}
	if err := s.get(ctx, p, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Get fetches a client by its server-assigned id.
func (s *ClientsService) Get(ctx context.Context, realm, id string) (*ClientRepresentation, error) {
	var client ClientRepresentation
	p := fmt.Sprintf("/admin/realms/%s/clients/%s", s.realmOr(realm), id)
	if err := s.get(ctx, p, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// Create registers a new client and returns its server-assigned id.
func (s *ClientsService) Create(ctx context.Context, realm string, client ClientRepresentation) (string, error) {
	p := fmt.Sprintf("/admin/realms/%s/clients", s.realmOr(realm))
	return s.create(ctx, p, client)
}

// Delete removes the client with the given server-assigned id.
func (s *ClientsService) Delete(ctx context.Context, realm, id string) error {
	p := fmt.Sprintf("/admin/realms/%s/clients/%s", s.realmOr(realm), id)
	return s.do(ctx, http.MethodDelete, p, nil, nil, http.StatusNoContent)
}

// Secret fetches the client secret for a confidential client.
func (s *ClientsService) Secret(ctx context.Context, realm, id string) (string, error) {
	var cred struct {
		Value string `json:"value"`
	}
	p := fmt.Sprintf("/admin/realms/%s/clients/%s/client-secret", s.realmOr(realm), id)
	if err := s.get(ctx, p, &cred); err != nil {
		return "", err
	}
	return cred.Value, nil
}
