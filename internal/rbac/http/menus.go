package http

import (
	"net/http"

	"github.com/aussiebroadwan/warden/internal/rbac/domain"
	"github.com/aussiebroadwan/warden/internal/rbac/service"
	"github.com/aussiebroadwan/warden/pkg/httpx"
	"github.com/aussiebroadwan/warden/pkg/rbacsdk"
)

// MenusHandler handles the navigation tree administration.
type MenusHandler struct {
	Commands *service.MenuCommands
	Queries  *service.MenuQueries
}

// HandleList handles GET /v1/menus
//
//	@Summary		Menu tree
//	@Description	Returns every menu, hidden ones included, as a tree ordered by order then title.
//	@Tags			Menus
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	rbacsdk.MenuTreeResponse
//	@Router			/v1/menus [get].
func (h *MenusHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Queries.Tree(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rbacsdk.MenuTreeResponse{Menus: toMenuNodes(tree)})
}

// HandleCreate handles POST /v1/menus
//
//	@Summary	Create menu
//	@Tags		Menus
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		rbacsdk.MenuRequest	true	"Menu"
//	@Success	201		{object}	rbacsdk.CreatedResponse
//	@Failure	400		{object}	rbacsdk.ErrorResponse
//	@Failure	404		{object}	rbacsdk.ErrorResponse	"Unknown parent or permission"
//	@Router		/v1/menus [post].
func (h *MenusHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.MenuRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}

	id, err := h.Commands.Create(r.Context(), menuInput(req), req.ParentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rbacsdk.CreatedResponse{ID: id})
}

// HandleUpdate handles PUT /v1/menus/{id}
//
//	@Summary		Update menu
//	@Description	Replaces the editable fields. parent_id is ignored; use PUT /v1/menus/{id}/parent.
//	@Tags			Menus
//	@Accept			json
//	@Security		BearerAuth
//	@Param			id		path	string				true	"Menu id"
//	@Param			request	body	rbacsdk.MenuRequest	true	"Menu"
//	@Success		204
//	@Failure		400	{object}	rbacsdk.ErrorResponse
//	@Failure		404	{object}	rbacsdk.ErrorResponse
//	@Router			/v1/menus/{id} [put].
func (h *MenusHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.MenuRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Commands.Update(r.Context(), r.PathValue("id"), menuInput(req)))
}

// HandleDelete handles DELETE /v1/menus/{id}
//
//	@Summary	Delete menu
//	@Tags		Menus
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Menu id"
//	@Success	204
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Failure	409	{object}	rbacsdk.ErrorResponse	"Menu has children"
//	@Router		/v1/menus/{id} [delete].
func (h *MenusHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	noContent(w, r, h.Commands.Delete(r.Context(), r.PathValue("id")))
}

// HandleSetParent handles PUT /v1/menus/{id}/parent
//
//	@Summary	Move menu
//	@Tags		Menus
//	@Accept		json
//	@Security	BearerAuth
//	@Param		id		path	string						true	"Menu id"
//	@Param		request	body	rbacsdk.MenuParentRequest	true	"New parent"
//	@Success	204
//	@Failure	404	{object}	rbacsdk.ErrorResponse
//	@Failure	409	{object}	rbacsdk.ErrorResponse	"Self parent or cycle"
//	@Router		/v1/menus/{id}/parent [put].
func (h *MenusHandler) HandleSetParent(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.MenuParentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Commands.SetParent(r.Context(), r.PathValue("id"), req.ParentID))
}

// HandleSetOrder handles PUT /v1/menus/{id}/order
//
//	@Summary	Reorder menu
//	@Tags		Menus
//	@Accept		json
//	@Security	BearerAuth
//	@Param		id		path	string						true	"Menu id"
//	@Param		request	body	rbacsdk.MenuOrderRequest	true	"New order"
//	@Success	204
//	@Failure	400	{object}	rbacsdk.ErrorResponse
//	@Router		/v1/menus/{id}/order [put].
func (h *MenusHandler) HandleSetOrder(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.MenuOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Commands.SetOrder(r.Context(), r.PathValue("id"), req.Order))
}

// HandleSetVisibility handles PUT /v1/menus/{id}/visibility
//
//	@Summary	Show or hide menu
//	@Tags		Menus
//	@Accept		json
//	@Security	BearerAuth
//	@Param		id		path	string							true	"Menu id"
//	@Param		request	body	rbacsdk.MenuVisibilityRequest	true	"Visibility"
//	@Success	204
//	@Router		/v1/menus/{id}/visibility [put].
func (h *MenusHandler) HandleSetVisibility(w http.ResponseWriter, r *http.Request) {
	var req rbacsdk.MenuVisibilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteRequestError(w, err)
		return
	}
	noContent(w, r, h.Commands.SetVisibility(r.Context(), r.PathValue("id"), req.IsVisible))
}

func menuInput(req rbacsdk.MenuRequest) domain.MenuInput {
	return domain.MenuInput{
		Title:        req.Title,
		URL:          req.URL,
		Description:  req.Description,
		Icon:         req.Icon,
		Order:        req.Order,
		IsVisible:    req.IsVisible,
		PermissionID: req.PermissionID,
	}
}

func toMenuNodes(nodes []*service.MenuNode) []*rbacsdk.MenuNode {
	out := make([]*rbacsdk.MenuNode, len(nodes))
	for i, n := range nodes {
		out[i] = &rbacsdk.MenuNode{
			ID:           n.ID,
			Title:        n.Title,
			URL:          n.URL,
			Description:  n.Description,
			Icon:         n.Icon,
			Order:        n.Order,
			IsVisible:    n.IsVisible,
			PermissionID: n.PermissionID,
			Children:     toMenuNodes(n.Children),
		}
	}
	return out
}

// LoginAttemptsHandler handles GET /v1/login-attempts
//
//	@Summary		Login attempts of a user
//	@Description	Returns one page of the attempts recorded for username, newest first. A blank username returns an empty page.
//	@Tags			Audit
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	query		string	true	"Username as typed at login"
//	@Param			page		query		int		false	"Zero based page index"	default(0)
//	@Param			size		query		int		false	"Page size"				default(10)
//	@Success		200			{object}	rbacsdk.ListLoginAttemptsResponse
//	@Router			/v1/login-attempts [get].
type LoginAttemptsHandler struct {
	Queries *service.LoginAttemptQueries
}

func (h *LoginAttemptsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	result, err := h.Queries.Page(r.Context(), r.URL.Query().Get("username"), page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := rbacsdk.ListLoginAttemptsResponse{
		Attempts:   make([]rbacsdk.LoginAttemptInfo, len(result.Items)),
		TotalCount: result.TotalCount,
		Page:       result.PageIndex,
		PageSize:   result.PageSize,
	}
	for i, a := range result.Items {
		resp.Attempts[i] = rbacsdk.LoginAttemptInfo{
			ID:           a.ID,
			Username:     a.Username,
			UserID:       a.UserID,
			AttemptedAt:  a.AttemptedAt,
			IsSuccessful: a.IsSuccessful,
			RemoteIP:     a.RemoteIP,
			UserAgent:    a.UserAgent,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
