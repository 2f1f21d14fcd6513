package kcadmin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// UsersService manages user accounts within a realm.
type UsersService struct {
	*service
}

// UserQuery narrows a List call. Zero values are omitted from the request.
type UserQuery struct {
	Username string
	Email    string
	Search   string
	First    int
	Max      int
}

func (q UserQuery) encode() string {
	values := url.Values{}
	if q.Username != "" {
		values.Set("username", q.Username)
	}
	if q.Email != "" {
		values.Set("email", q.Email)
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.First > 0 {
		values.Set("first", fmt.Sprintf("%d", q.First))
	}
	if q.Max > 0 {
		values.Set("max", fmt.Sprintf("%d", q.Max))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// List returns the users matching the query. An empty realm uses the
// client's default realm.
func (s *UsersService) List(ctx context.Context, realm string, query UserQuery) ([]UserRepresentation, error) {
	var users []UserRepresentation
	p := fmt.Sprintf("/admin/realms/%s/users%s", s.realmOr(realm), query.encode())
	if err := s.get(ctx, p, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Get fetches a single user by id.
func (s *UsersService) Get(ctx context.Context, realm, id string) (*UserRepresentation, error) {
	var user UserRepresentation
	p := fmt.Sprintf("/admin/realms/%s/users/%s", s.realmOr(realm), id)
	if err := s.get(ctx, p, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create registers a new user and returns its server-assigned id.
func (s *UsersService) Create(ctx context.Context, realm string, user UserRepresentation) (string, error) {
	p := fmt.Sprintf("/admin/realms/%s/users", s.realmOr(realm))
	return s.create(ctx, p, user)
}

// Update replaces the stored representation of the user with the given id.
func (s *UsersService) Update(ctx context.Context, realm, id string, user UserRepresentation) error {
	p := fmt.Sprintf("/admin/realms/%s/users/%s", s.realmOr(realm), id)
	return s.do(ctx, http.MethodPut, p, user, nil, http.StatusNoContent)
}

// Delete removes the user with the given id.
func (s *UsersService) Delete(ctx context.Context, realm, id string) error {
	p := fmt.Sprintf("/admin/realms/%s/users/%s", s.realmOr(realm), id)
	return s.do(ctx, http.MethodDelete, p, nil, nil, http.StatusNoContent)
}

// ResetPassword sets a new password for the user, permanent unless
// temporary is set.
func (s *UsersService) ResetPassword(ctx context.Context, realm, id, password string, temporary bool) error {
	cred := CredentialRepresentation{
		Type:      "password",
		Value:     password,
		Temporary: temporary,
	}
	p := fmt.Sprintf("/admin/realms/%s/users/%s/reset-password", s.realmOr(realm), id)
	return s.do(ctx, http.MethodPut, p, cred, nil, http.StatusNoContent)
}
