package handlers

import (
	"net/http"

	"bike-market/internal/services"
	"bike-market/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type UserHandler struct {
	auth  *Authenticator
	roles *services.RoleService
}

func NewUserHandler(auth *Authenticator, roles *services.RoleService) *UserHandler {
	return &UserHandler{auth: auth, roles: roles}
}

// UpsertUser - Create or refresh a user on login and issue a credential
func (h *UserHandler) UpsertUser(e *core.RequestEvent) error {
	var req services.UpsertUserInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	user, token, err := h.roles.Upsert(e.Request.Context(), e.Request.PathValue("email"), req)
	if err != nil {
		return writeError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{"user": user, "token": token})
}

// GetRole - Role summary for the caller's own email
func (h *UserHandler) GetRole(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	info, err := h.roles.RoleOf(e.Request.Context(), id, e.Request.PathValue("email"))
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, info)
}

// RequestSeller - Ask an admin for seller rights
func (h *UserHandler) RequestSeller(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	user, err := h.roles.RequestSeller(e.Request.Context(), id)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, user)
}

// SetRole - Admin confirms or changes a user's role
func (h *UserHandler) SetRole(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Role == "" {
		req.Role = models.RoleSeller
	}

	user, err := h.roles.SetRole(e.Request.Context(), id, e.Request.PathValue("id"), req.Role)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, user)
}

// DeleteUser - Admin removes a user
func (h *UserHandler) DeleteUser(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	if err := h.roles.DeleteUser(e.Request.Context(), id, e.Request.PathValue("id")); err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{"deletedCount": 1})
}

// ListUsers - Admin lists users, optionally by role
func (h *UserHandler) ListUsers(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	role := models.Role(e.Request.URL.Query().Get("role"))
	users, err := h.roles.ListByRole(e.Request.Context(), id, role)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, users)
}
