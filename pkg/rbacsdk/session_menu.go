package rbacsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListMenus returns the full menu tree, hidden menus included.
func (s *Session) ListMenus(ctx context.Context) ([]*MenuNode, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/menus", nil, RoleAdmin, RoleManager)
	if err != nil {
		return nil, err
	}

	var tree MenuTreeResponse
	if err := decodeJSON(resp, &tree, http.StatusOK); err != nil {
		return nil, err
	}

	return tree.Menus, nil
}

// CreateMenu creates a menu under req.ParentID, or at the root, and returns its id.
func (s *Session) CreateMenu(ctx context.Context, req MenuRequest) (string, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/menus", req, RoleAdmin)
	if err != nil {
		return "", err
	}

	var created CreatedResponse
	if err := decodeJSON(resp, &created, http.StatusCreated); err != nil {
		return "", err
	}

	return created.ID, nil
}

// UpdateMenu replaces a menu's editable fields. req.ParentID is ignored.
func (s *Session) UpdateMenu(ctx context.Context, menuID string, req MenuRequest) error {
	return s.noContent(ctx, http.MethodPut, "/v1/menus/"+url.PathEscape(menuID), req)
}

// DeleteMenu deletes a menu without children.
func (s *Session) DeleteMenu(ctx context.Context, menuID string) error {
	return s.noContent(ctx, http.MethodDelete, "/v1/menus/"+url.PathEscape(menuID), nil)
}

// MoveMenu moves a menu under parentID. An empty parentID moves it to the root.
func (s *Session) MoveMenu(ctx context.Context, menuID, parentID string) error {
	return s.noContent(ctx, http.MethodPut, "/v1/menus/"+url.PathEscape(menuID)+"/parent",
		MenuParentRequest{ParentID: parentID})
}

// SetMenuOrder changes a menu's position among its siblings.
func (s *Session) SetMenuOrder(ctx context.Context, menuID string, order int) error {
	return s.noContent(ctx, http.MethodPut, "/v1/menus/"+url.PathEscape(menuID)+"/order",
		MenuOrderRequest{Order: order})
}

// SetMenuVisibility shows or hides a menu.
func (s *Session) SetMenuVisibility(ctx context.Context, menuID string, visible bool) error {
	return s.noContent(ctx, http.MethodPut, "/v1/menus/"+url.PathEscape(menuID)+"/visibility",
		MenuVisibilityRequest{IsVisible: visible})
}

// ListLoginAttempts returns one page of a username's login attempts, newest first.
func (s *Session) ListLoginAttempts(ctx context.Context, username string, page, size int) (*ListLoginAttemptsResponse, error) {
	q := url.Values{"username": {username}}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/login-attempts?"+q.Encode(), nil, RoleAdmin, RoleManager)
	if err != nil {
		return nil, err
	}

	var list ListLoginAttemptsResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}

	return &list, nil
}
