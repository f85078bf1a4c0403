package rbacsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Role names the service authorizes against.
const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
)

// SDKClient is a client for the Warden RBAC service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckRoles makes Sessions refuse calls their roles cannot pass before
	// sending them. Disable it in tests that exercise server-side checks.
	// Default: true
	CheckRoles bool
}

// NewSDKClient creates a new client with role checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		CheckRoles: true,
	}
}

// Login signs in with a username and password and returns a Session for
// the issued access token.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	body, err := jsonBody(LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", body, jsonHeaders)
	if err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := decodeJSON(resp, &login, http.StatusOK); err != nil {
		return nil, err
	}

	return newSession(c, &login), nil
}

// NewSessionFromToken creates a Session from an access token obtained
// elsewhere. Roles are used for client-side checks only.
func (c *SDKClient) NewSessionFromToken(accessToken string, expiresAt time.Time, roles ...string) *Session {
	return &Session{
		client:      c,
		accessToken: accessToken,
		expiresAt:   expiresAt,
		roles:       toSet(roles),
	}
}
