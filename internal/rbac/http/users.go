package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/warden/internal/rbac/service"
	"github.com/aussiebroadwan/warden/pkg/httpx"
	"github.com/aussiebroadwan/warden/pkg/rbacsdk"
)

// UsersHandler handles the user administration endpoints.
type UsersHandler struct {
	Commands *service.UserCommands
	Queries  *service.UserQueries
}

// HandleList handles GET /v1/users
//
//	@Summary		List users
//	@Description	Returns one page of users ordered by username. search filters by a case-insensitive username substring.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query		int		false	"Zero based page index"	default(0)
//	@Param			size	query		int		false	"Page size"				default(10)
//	@Param			search	query		string	false	"Username substring"
//	@Success		200		{object}	rbacsdk.ListUsersResponse
//	@Failure		401		{object}	rbacsdk.ErrorResponse
//	@Failure		403		{object}	rbacsdk.ErrorResponse
//	@Router			/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	result, err := h.Queries.Page(r.Context(), page, size, r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := rbacsdk.ListUsersResponse{
		Users:      make([]rbacsdk.UserListItem, 0, len(result.Items)),
		TotalCount: result.TotalCount,
		Page:       result.PageIndex,
		PageSize:   result.PageSize,
	}
	for _, u := range result.Items {
		resp.Users = append(resp.Users, rbacsdk.UserListItem{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			IsActive: u.IsActive,
			Roles:    u.Roles,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /v1/users
//
//	@Summary		Create user
//	@Description	Creates an active user. When a password is given it is stored after the user; if that step fails the response is 500 with the new user_id.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		rbacsdk.CreateUserRequest	true	"New user"
//	@Success		201		{object}	rbacsdk.CreatedResponse
//	@Failure		400		{object}	rbacsdk.ErrorResponse
//	@Failure		409		{object}	rbacsdk.ErrorResponse	"Username or email taken"
//	@Failure		500		{object}	rbacsdk.ErrorResponse	"Partial failure, see user_id"
//	@Router			/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}

	var (
		id  string
		err error
	)
	if req.Password != "" {
		id, err = h.Commands.CreateWithPassword(r.Context(), req.Username, req.Email, req.Password)
	} else {
		id, err = h.Commands.Create(r.Context(), req.Username, req.Email)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/users/"+id)
	httpx.WriteJSON(w, http.StatusCreated, rbacsdk.CreatedResponse{ID: id})
}

// HandleGet handles GET /v1/users/{id}
//
//	@Summary	Get user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User id"
//	@Success	200	{object}	rbacsdk.UserResponse
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.Queries.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	roles := make([]rbacsdk.RoleRef, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, rbacsdk.RoleRef{ID: role.ID, Name: role.Name})
	}
	httpx.WriteJSON(w, http.StatusOK, rbacsdk.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
}

// HandleUpdate handles PUT /v1/users/{id}
//
//	@Summary	Update user
//	@Tags		Users
//	@Accept		json
//	@Security	BearerAuth
//	@Param		id		path	string						true	"User id"
//	@Param		request	body	rbacsdk.UpdateUserRequest	true	"Username and email"
//	@Success	204
//	@Failure	400	{object}	rbacsdk.ErrorResponse
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Failure	409	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Commands.Update(r.Context(), r.PathValue("id"), req.Username, req.Email))
}

// HandleActivate handles POST /v1/users/{id}/activate
//
//	@Summary	Activate user
//	@Tags		Users
//	@Security	BearerAuth
//	@Param		id	path	string	true	"User id"
//	@Success	204
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/users/{id}/activate [post].
func (h *UsersHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.Commands.Activate(r.Context(), r.PathValue("id")))
}

// HandleDeactivate handles POST /v1/users/{id}/deactivate
//
//	@Summary		Deactivate user
//	@Description	Disables sign in and revokes the user's access tokens.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User id"
//	@Success		204
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/users/{id}/deactivate [post].
func (h *UsersHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.Commands.Deactivate(r.Context(), r.PathValue("id")))
}

// HandleSetPassword handles PUT /v1/users/{id}/password
//
//	@Summary	Set user password
//	@Tags		Users
//	@Accept		json
//	@Security	BearerAuth
//	@Param		id		path	string						true	"User id"
//	@Param		request	body	rbacsdk.SetPasswordRequest	true	"New password"
//	@Success	204
//	@Failure	400	{object}	rbacsdk.ErrorResponse
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/users/{id}/password [put].
func (h *UsersHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.SetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Commands.UpdatePassword(r.Context(), r.PathValue("id"), req.Password))
}

// HandleAssignRoles handles POST /v1/users/{id}/roles
//
//	@Summary		Assign roles
//	@Description	Assigns every listed role. Roles already held are skipped; any unknown role fails the whole request.
//	@Tags			Users
//	@Accept			json
//	@Security		BearerAuth
//	@Param			id		path	string						true	"User id"
//	@Param			request	body	rbacsdk.AssignRolesRequest	true	"Role ids"
//	@Success		204
//	@Failure		400	{object}	rbacsdk.ErrorResponse
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Failure		409	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/users/{id}/roles [post].
func (h *UsersHandler) HandleAssignRoles(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.AssignRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}

	id := r.PathValue("id")
	var err error
	if len(req.RoleIDs) == 1 {
		err = h.Commands.AssignRole(r.Context(), id, req.RoleIDs[0])
	} else {
		err = h.Commands.AssignRoles(r.Context(), id, req.RoleIDs)
	}
	noContent(w, r, err)
}

// HandleRemoveRole handles DELETE /v1/users/{id}/roles/{roleID}
//
//	@Summary	Remove role
//	@Tags		Users
//	@Security	BearerAuth
//	@Param		id		path	string	true	"User id"
//	@Param		roleID	path	string	true	"Role id"
//	@Success	204
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/users/{id}/roles/{roleID} [delete].
func (h *UsersHandler) HandleRemoveRole(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.Commands.RemoveRole(r.Context(), r.PathValue("id"), r.PathValue("roleID")))
}

// noContent writes 204 on success and the mapped error otherwise.
func noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pageParams reads the page and size query parameters. Missing or malformed
// values fall back to the first page and the default size.
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	return page, size
}
