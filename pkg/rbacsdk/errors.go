package rbacsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes written by the service in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeValidation         = "validation_failed"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeDuplicate          = "duplicate"
	ErrorCodeRuleViolation      = "rule_violation"
	ErrorCodeConflict           = "conflict"
	ErrorCodePartialFailure     = "partial_failure"
	ErrorCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
)

// ErrSessionExpired is returned by Session methods once the access token
// has expired.
var ErrSessionExpired = errors.New("rbacsdk: session expired, sign in again")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Details     map[string]string

	// UserID is set on partial failures
	UserID string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.StatusCode)
}

func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

func (e *APIError) IsConflict() bool { return e.StatusCode == http.StatusConflict }

func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

func (e *APIError) IsForbidden() bool { return e.StatusCode == http.StatusForbidden }

func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// parseErrorResponse converts a non-2xx response into an *APIError.
// Returns nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
			Details:     errResp.Details,
			UserID:      errResp.UserID,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
