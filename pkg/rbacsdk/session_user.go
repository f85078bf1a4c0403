package rbacsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// User administration. Reads need Admin or Manager, writes need Admin.

// ListUsersParams selects one page of users. Zero values use the server
// defaults.
type ListUsersParams struct {
	Page   int
	Size   int
	Search string
}

func (p ListUsersParams) encode() string {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListUsers returns one page of users ordered by username.
func (s *Session) ListUsers(ctx context.Context, params ListUsersParams) (*ListUsersResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/users"+params.encode(), nil, RoleAdmin, RoleManager)
	if err != nil {
		return nil, err
	}

	var list ListUsersResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}

	return &list, nil
}

// CreateUser creates a user and returns its id. Without a password the user
// cannot sign in until one is set.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (string, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/users", req, RoleAdmin)
	if err != nil {
		return "", err
	}

	var created CreatedResponse
	if err := decodeJSON(resp, &created, http.StatusCreated); err != nil {
		return "", err
	}

	return created.ID, nil
}

// GetUser returns a user with their roles.
func (s *Session) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID), nil, RoleAdmin, RoleManager)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}

	return &user, nil
}

// UpdateUser changes a user's username and email.
func (s *Session) UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) error {
	return s.noContent(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(userID), req)
}

// ActivateUser allows the user to sign in again.
func (s *Session) ActivateUser(ctx context.Context, userID string) error {
	return s.noContent(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(userID)+"/activate", nil)
}

// DeactivateUser blocks sign in and revokes the user's outstanding tokens.
func (s *Session) DeactivateUser(ctx context.Context, userID string) error {
	return s.noContent(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(userID)+"/deactivate", nil)
}

// SetUserPassword replaces a user's password without the current one.
func (s *Session) SetUserPassword(ctx context.Context, userID, password string) error {
	return s.noContent(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(userID)+"/password",
		SetPasswordRequest{Password: password})
}

// AssignRoles adds roles to a user. Roles already held are ignored.
func (s *Session) AssignRoles(ctx context.Context, userID string, roleIDs ...string) error {
	return s.noContent(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(userID)+"/roles",
		AssignRolesRequest{RoleIDs: roleIDs})
}

// RemoveRole removes a role from a user.
func (s *Session) RemoveRole(ctx context.Context, userID, roleID string) error {
	return s.noContent(ctx, http.MethodDelete,
		"/v1/users/"+url.PathEscape(userID)+"/roles/"+url.PathEscape(roleID), nil)
}

// noContent sends an Admin-only request that answers 204.
func (s *Session) noContent(ctx context.Context, method, path string, payload any) error {
	resp, err := s.doAuthRequest(ctx, method, path, payload, RoleAdmin)
	if err != nil {
		return err
	}

	return checkStatusNoContent(resp)
}
