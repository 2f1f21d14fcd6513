package kcadmin

import (
	"context"
	"fmt"
	"net/http"
)

// GroupsService manages groups within a realm.
type GroupsService struct {
	*service
}

// List returns the realm's top-level groups.
func (s *GroupsService) List(ctx context.Context, realm string) ([]GroupRepresentation, error) {
	var groups []GroupRepresentation
	p := fmt.Sprintf("/admin/realms/%s/groups", s.realmOr(realm))
	if err := s.get(ctx, p, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Get fetches a group by id, including its subgroup tree.
func (s *GroupsService) Get(ctx context.Context, realm, id string) (*GroupRepresentation, error) {
	var group GroupRepresentation
	p := fmt.Sprintf("/admin/realms/%s/groups/%s", s.realmOr(realm), id)
	if err := s.get(ctx, p, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// Create registers a new top-level group and returns its id.
func (s *GroupsService) Create(ctx context.Context, realm string, group GroupRepresentation) (string, error) {
	p := fmt.Sprintf("/admin/realms/%s/groups", s.realmOr(realm))
	return s.create(ctx, p, group)
}

// Delete removes a group and its subgroups.
func (s *GroupsService) Delete(ctx context.Context, realm, id string) error {
	p := fmt.Sprintf("/admin/realms/%s/groups/%s", s.realmOr(realm), id)
	return s.do(ctx, http.MethodDelete, p, nil, nil, http.StatusNoContent)
}

// AddUser places the user into the group.
func (s *GroupsService) AddUser(ctx context.Context, realm, userID, groupID string) error {
	p := fmt.Sprintf("/admin/realms/%s/users/%s/groups/%s", s.realmOr(realm), userID, groupID)
	return s.do(ctx, http.MethodPut, p, nil, nil, http.StatusNoContent)
}

// Members returns the users belonging to the group.
func (s *GroupsService) Members(ctx context.Context, realm, groupID string) ([]UserRepresentation, error) {
	var users []UserRepresentation
	p := fmt.Sprintf("/admin/realms/%s/groups/%s/members", s.realmOr(realm), groupID)
	if err := s.get(ctx, p, &users); err != nil {
		return nil, err
	}
	return users, nil
}
