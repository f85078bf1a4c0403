package http

import (
	"net/http"

	"github.com/aussiebroadwan/warden/internal/rbac/service"
	"github.com/aussiebroadwan/warden/pkg/httpx"
	"github.com/aussiebroadwan/warden/pkg/rbacsdk"
)

// RolesHandler handles roles and the permissions granted to them.
type RolesHandler struct {
	Commands *service.RoleCommands
	Grants   *service.RolePermissionCommands
	Queries  *service.RoleQueries
}

// HandleList handles GET /v1/roles
//
//	@Summary		List roles
//	@Description	Returns every role with its user and permission counts and whether it can be deleted.
//	@Tags			Roles
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	rbacsdk.ListRolesResponse
//	@Failure		401	{object}	rbacsdk.ErrorResponse
//	@Failure		403	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Queries.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := rbacsdk.ListRolesResponse{Roles: make([]rbacsdk.RoleSummary, len(roles))}
	for i, role := range roles {
		resp.Roles[i] = rbacsdk.RoleSummary{
			ID:              role.ID,
			Name:            role.Name,
			Description:     role.Description,
			PermissionCount: role.PermissionCount,
			UserCount:       role.UserCount,
			CanDelete:       role.CanDelete,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /v1/roles
//
//	@Summary	Create role
//	@Tags		Roles
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		rbacsdk.RoleRequest	true	"Name and description"
//	@Success	201		{object}	rbacsdk.CreatedResponse
//	@Failure	400		{object}	rbacsdk.ErrorResponse
//	@Failure	409		{object}	rbacsdk.ErrorResponse	"Name taken"
//	@Router		/v1/roles [post].
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.RoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}

	id, err := h.Commands.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/roles/"+id)
	httpx.WriteJSON(w, http.StatusCreated, rbacsdk.CreatedResponse{ID: id})
}

// HandleGet handles GET /v1/roles/{id}
//
//	@Summary		Get role
//	@Description	Returns the role with its granted permissions and the permissions still available to grant.
//	@Tags			Roles
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Role id"
//	@Success		200	{object}	rbacsdk.RoleResponse
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/roles/{id} [get].
func (h *RolesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	role, err := h.Queries.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rbacsdk.RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Assigned:    toPermissionInfos(role.Assigned),
		Available:   toPermissionInfos(role.Available),
	})
}

// HandleUpdate handles PUT /v1/roles/{id}
//
//	@Summary	Update role
//	@Tags		Roles
//	@Accept		json
//	@Security	BearerAuth
//	@Param		id		path	string				true	"Role id"
//	@Param		request	body	rbacsdk.RoleRequest	true	"Name and description"
//	@Success	204
//	@Failure	400	{object}	rbacsdk.ErrorResponse
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Failure	409	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/roles/{id} [put].
func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.RoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Commands.Update(r.Context(), r.PathValue("id"), req.Name, req.Description))
}

// HandleDelete handles DELETE /v1/roles/{id}
//
//	@Summary		Delete role
//	@Description	Deletes a role that no user holds and that grants no permission.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Role id"
//	@Success		204
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Failure		409	{object}	rbacsdk.ErrorResponse	"Role in use or holding permissions"
//	@Router			/v1/roles/{id} [delete].
func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.Commands.Delete(r.Context(), r.PathValue("id")))
}

// HandleReplacePermissions handles PUT /v1/roles/{id}/permissions
//
//	@Summary		Replace role permissions
//	@Description	Makes the listed permissions the role's exact permission set.
//	@Tags			Roles
//	@Accept			json
//	@Security		BearerAuth
//	@Param			id		path	string								true	"Role id"
//	@Param			request	body	rbacsdk.ReplacePermissionsRequest	true	"Permission ids"
//	@Success		204
//	@Failure		400	{object}	rbacsdk.ErrorResponse
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/roles/{id}/permissions [put].
func (h *RolesHandler) HandleReplacePermissions(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.ReplacePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Grants.Replace(r.Context(), r.PathValue("id"), req.PermissionIDs))
}

// HandleGrant handles POST /v1/roles/{id}/permissions/{permissionID}
//
//	@Summary		Grant permission
//	@Description	Idempotent: granting a held permission succeeds without change.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Param			id				path	string	true	"Role id"
//	@Param			permissionID	path	string	true	"Permission id"
//	@Success		204
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/roles/{id}/permissions/{permissionID} [post].
func (h *RolesHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.Grants.Grant(r.Context(), r.PathValue("id"), r.PathValue("permissionID")))
}

// HandleRevoke handles DELETE /v1/roles/{id}/permissions/{permissionID}
//
//	@Summary		Revoke permission
//	@Description	Idempotent: revoking an absent permission succeeds without change.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Param			id				path	string	true	"Role id"
//	@Param			permissionID	path	string	true	"Permission id"
//	@Success		204
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/roles/{id}/permissions/{permissionID} [delete].
func (h *RolesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.Grants.Revoke(r.Context(), r.PathValue("id"), r.PathValue("permissionID")))
}

// PermissionsHandler handles the permission catalogue.
type PermissionsHandler struct {
	Commands *service.PermissionCommands
	Queries  *service.PermissionQueries
}

// HandleList handles GET /v1/permissions
//
//	@Summary	List permissions
//	@Tags		Permissions
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	rbacsdk.ListPermissionsResponse
//	@Failure	401	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/permissions [get].
func (h *PermissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Queries.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rbacsdk.ListPermissionsResponse{Permissions: toPermissionInfos(perms)})
}

// HandleCreate handles POST /v1/permissions
//
//	@Summary	Create permission
//	@Tags		Permissions
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		rbacsdk.PermissionRequest	true	"Code and description"
//	@Success	201		{object}	rbacsdk.CreatedResponse
//	@Failure	400		{object}	rbacsdk.ErrorResponse
//	@Failure	409		{object}	rbacsdk.ErrorResponse	"Code taken"
//	@Router		/v1/permissions [post].
func (h *PermissionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.PermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}

	id, err := h.Commands.Create(r.Context(), req.Code, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rbacsdk.CreatedResponse{ID: id})
}

// HandleUpdate handles PUT /v1/permissions/{id}
//
//	@Summary	Update permission
//	@Tags		Permissions
//	@Accept		json
//	@Security	BearerAuth
//	@Param		id		path	string						true	"Permission id"
//	@Param		request	body	rbacsdk.PermissionRequest	true	"Code and description"
//	@Success	204
//	@Failure	400	{object}	rbacsdk.ErrorResponse
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Failure	409	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/permissions/{id} [put].
func (h *PermissionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.PermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Commands.Update(r.Context(), r.PathValue("id"), req.Code, req.Description))
}

func toPermissionInfos(items []service.PermissionItem) []rbacsdk.PermissionInfo {
	out := make([]rbacsdk.PermissionInfo, len(items))
	for i, p := range items {
		out[i] = rbacsdk.PermissionInfo{ID: p.ID, Code: p.Code, Description: p.Description}
	}
	return out
}
