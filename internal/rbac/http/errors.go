package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/service"
	"github.com/aussiebroadwan/warden/pkg/httpx"
	"github.com/aussiebroadwan/warden/pkg/rbacsdk"
	"github.com/aussiebroadwan/warden/pkg/slogx"
)

// writeServiceError maps a service error to its status code and writes it.
// Unknown errors are logged and reported as 500 without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr    *domain.ValidationError
		partial *service.PartialFailureError
	)

	switch {
	case errors.As(err, &partial):
		httpx.WriteJSON(w, http.StatusInternalServerError, rbacsdk.ErrorResponse{
			Error:            "partial_failure",
			ErrorDescription: "the user was created but " + partial.Step + " failed; set the password again",
			UserID:           partial.UserID,
		})
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, rbacsdk.ErrorResponse{
			Error:            "validation_failed",
			ErrorDescription: verr.Error(),
			Details:          map[string]string{verr.Field: verr.Message},
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrRuleViolation):
		httpx.WriteError(w, http.StatusConflict, "rule_violation", err.Error())
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrRoleNameTaken),
		errors.Is(err, service.ErrPermissionCodeTaken):
		httpx.WriteError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, service.ErrConcurrentModification):
		httpx.WriteError(w, http.StatusConflict, "conflict", service.ErrConcurrentModification.Error())
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}
