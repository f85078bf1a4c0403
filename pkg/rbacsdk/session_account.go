package rbacsdk

import (
	"context"
	"net/http"
)

// GetAccount returns the signed in user with their roles and permission codes.
func (s *Session) GetAccount(ctx context.Context) (*AccountResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/account", nil)
	if err != nil {
		return nil, err
	}

	var account AccountResponse
	if err := decodeJSON(resp, &account, http.StatusOK); err != nil {
		return nil, err
	}

	return &account, nil
}

// GetMenus returns the visible menu tree filtered by the caller's permissions.
func (s *Session) GetMenus(ctx context.Context) ([]*MenuNode, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/account/menus", nil)
	if err != nil {
		return nil, err
	}

	var tree MenuTreeResponse
	if err := decodeJSON(resp, &tree, http.StatusOK); err != nil {
		return nil, err
	}

	return tree.Menus, nil
}

// UpdateEmail changes the signed in user's email.
func (s *Session) UpdateEmail(ctx context.Context, email string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/account/email", UpdateEmailRequest{Email: email})
	if err != nil {
		return err
	}

	if err := checkStatusNoContent(resp); err != nil {
		return err
	}

	s.mu.Lock()
	s.email = email
	s.mu.Unlock()
	return nil
}

// ChangePassword changes the signed in user's password after verifying the
// current one.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/account/password", ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return err
	}

	return checkStatusNoContent(resp)
}
