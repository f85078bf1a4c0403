package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/service"
	"github.com/aussiebroadwan/warden/pkg/httpx"
	"github.com/aussiebroadwan/warden/pkg/rbacsdk"
)

type LoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /v1/auth/login
//
//	@Summary		Sign in
//	@Description	Verifies a username and password and returns a signed access token. Every call is recorded as a login attempt.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		rbacsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	rbacsdk.LoginResponse	"Access token"
//	@Failure		400		{object}	rbacsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	rbacsdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	rbacsdk.ErrorResponse	"Too many attempts"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}

	tok, err := h.AuthService.Login(r.Context(), req.Username, req.Password, httpx.ClientFromRequest(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rbacsdk.LoginResponse{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(tok.ExpiresAt).Seconds()),
		ExpiresAt:   tok.ExpiresAt,
		Username:    tok.Username,
		Email:       tok.Email,
		Roles:       tok.Roles,
	})
}

// AccountHandler serves the signed in user's own account.
type AccountHandler struct {
	AccountService    *service.AccountService
	UserQueries       *service.UserQueries
	PermissionQueries *service.PermissionQueries
	MenuQueries       *service.MenuQueries
}

// HandleGet handles GET /v1/account
//
//	@Summary		Current account
//	@Description	Returns the signed in user with its current roles and effective permission codes.
//	@Tags			Account
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	rbacsdk.AccountResponse
//	@Failure		401	{object}	rbacsdk.ErrorResponse
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/account [get].
func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.UserQueries.Get(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}
	perms, err := h.PermissionQueries.Codes(ctx, roles)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rbacsdk.AccountResponse{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       roles,
		Permissions: perms,
	})
}

// HandleMenus handles GET /v1/account/menus
//
//	@Summary		Navigation for the current user
//	@Description	Returns the visible menu tree filtered by the roles in the access token.
//	@Tags			Account
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	rbacsdk.MenuTreeResponse
//	@Failure		401	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/account/menus [get].
func (h *AccountHandler) HandleMenus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var roles []string
	if claims, ok := httpx.ClaimsFromContext(ctx); ok {
		roles = claims.Roles
	}

	tree, err := h.MenuQueries.TreeForRoles(ctx, roles)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rbacsdk.MenuTreeResponse{Menus: toMenuNodes(tree)})
}

// HandleUpdateEmail handles PUT /v1/account/email
//
//	@Summary		Change own email
//	@Tags			Account
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	rbacsdk.UpdateEmailRequest	true	"New email"
//	@Success		204
//	@Failure		400	{object}	rbacsdk.ErrorResponse
//	@Failure		401	{object}	rbacsdk.ErrorResponse
//	@Failure		409	{object}	rbacsdk.ErrorResponse	"Email taken or concurrent modification"
//	@Router			/v1/account/email [put].
func (h *AccountHandler) HandleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.UpdateEmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}

	if err := h.AccountService.UpdateEmail(r.Context(), callerUsername(r), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangePassword handles PUT /v1/account/password
//
//	@Summary		Change own password
//	@Tags			Account
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	rbacsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		400	{object}	rbacsdk.ErrorResponse
//	@Failure		401	{object}	rbacsdk.ErrorResponse	"Wrong current password"
//	@Router			/v1/account/password [put].
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}

	err := h.AccountService.ChangePassword(r.Context(), callerUsername(r), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func callerUsername(r *http.Request) string {
	claims, _ := httpx.ClaimsFromContext(r.Context())
	return claims.Username
}
