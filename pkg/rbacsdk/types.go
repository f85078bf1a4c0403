package rbacsdk

import (
	"time"

	"github.com/aussiebroadwan/warden/pkg/jwtx"
)

// ============================================================================
// Errors
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a stable machine readable code (e.g. "not_found", "conflict")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`

	// Details maps request fields to validation messages
	Details map[string]string `json:"details,omitempty"`

	// UserID is set on partial failures: the user that was created before a
	// later step failed
	UserID string `json:"user_id,omitempty"`
}

// ============================================================================
// Authentication
// ============================================================================

// LoginRequest carries no validation rules: every submission reaches the
// login flow so that it is recorded as an attempt.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles"`
}

// ============================================================================
// Account
// ============================================================================

// AccountResponse describes the signed in user.
type AccountResponse struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type UpdateEmailRequest struct {
	Email string `json:"email" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// ============================================================================
// Users
// ============================================================================

// CreateUserRequest fields are checked by the user domain after trimming.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	// Password is optional; a user without one cannot sign in until it is set
	Password string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type UpdateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
}

type SetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type AssignRolesRequest struct {
	RoleIDs []string `json:"role_ids" validate:"required,min=1,dive,ulid"`
}

type UserListItem struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	IsActive bool     `json:"is_active"`
	Roles    []string `json:"roles"`
}

type RoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Roles     []RoleRef `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListUsersResponse struct {
	Users      []UserListItem `json:"users"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}

// ============================================================================
// Roles and permissions
// ============================================================================

type RoleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

type RoleSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	PermissionCount int    `json:"permission_count"`
	UserCount       int    `json:"user_count"`
	CanDelete       bool   `json:"can_delete"`
}

type ListRolesResponse struct {
	Roles []RoleSummary `json:"roles"`
}

type PermissionInfo struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

type RoleResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Assigned    []PermissionInfo `json:"assigned"`
	Available   []PermissionInfo `json:"available"`
}

type ReplacePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" validate:"dive,ulid"`
}

type PermissionRequest struct {
	Code        string `json:"code" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

type ListPermissionsResponse struct {
	Permissions []PermissionInfo `json:"permissions"`
}

// ============================================================================
// Menus
// ============================================================================

type MenuRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	URL          string `json:"url,omitempty"`
	Description  string `json:"description,omitempty" validate:"max=500"`
	Icon         string `json:"icon,omitempty" validate:"max=100"`
	Order        int    `json:"order" validate:"gte=0"`
	IsVisible    bool   `json:"is_visible"`
	PermissionID string `json:"permission_id,omitempty" validate:"omitempty,ulid"`
	ParentID     string `json:"parent_id,omitempty" validate:"omitempty,ulid"`
}

type MenuParentRequest struct {
	// ParentID empty moves the menu to the root
	ParentID string `json:"parent_id" validate:"omitempty,ulid"`
}

type MenuOrderRequest struct {
	Order int `json:"order" validate:"gte=0"`
}

type MenuVisibilityRequest struct {
	IsVisible bool `json:"is_visible"`
}

type MenuNode struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	URL          string      `json:"url,omitempty"`
	Description  string      `json:"description,omitempty"`
	Icon         string      `json:"icon,omitempty"`
	Order        int         `json:"order"`
	IsVisible    bool        `json:"is_visible"`
	PermissionID string      `json:"permission_id,omitempty"`
	Children     []*MenuNode `json:"children"`
}

type MenuTreeResponse struct {
	Menus []*MenuNode `json:"menus"`
}

// ============================================================================
// Login attempts
// ============================================================================

type LoginAttemptInfo struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	UserID       string    `json:"user_id,omitempty"`
	AttemptedAt  time.Time `json:"attempted_at"`
	IsSuccessful bool      `json:"is_successful"`
	RemoteIP     string    `json:"remote_ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

type ListLoginAttemptsResponse struct {
	Attempts   []LoginAttemptInfo `json:"attempts"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

// ============================================================================
// Health Check Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains detailed status of individual components (only in /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`
}

// JWKSResponse contains the JSON Web Key Set used to verify access tokens.
type JWKSResponse jwtx.JWKS
