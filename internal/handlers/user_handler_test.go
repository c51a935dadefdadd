package handlers

import (
	"net/http"
	"testing"

	"bike-market/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertUser(t *testing.T) {
	h := newHarness(t)

	e, rec := h.newEvent(t, http.MethodPut, "/users/rider@example.com", map[string]any{"name": "Rider"}, "")
	e.Request.SetPathValue("email", "rider@example.com")
	require.NoError(t, h.users.UpsertUser(e))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}](t, rec)
	assert.Equal(t, models.RoleNone, body.User.Role)
	assert.NotEmpty(t, body.Token)

	e, _ = h.newEvent(t, http.MethodPut, "/users/rider@example.com", map[string]any{"role": "admin"}, "")
	e.Request.SetPathValue("email", "rider@example.com")
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.users.UpsertUser(e)))
}

func TestGetRole(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "seller@example.com", models.RoleSeller)
	h.seedUser(t, "rider@example.com", models.RoleNone)

	e, rec := h.newEvent(t, http.MethodGet, "/users/seller@example.com/role", nil, "seller@example.com")
	e.Request.SetPathValue("email", "seller@example.com")
	require.NoError(t, h.users.GetRole(e))
	assert.True(t, decode[models.RoleInfo](t, rec).IsSeller)

	e, _ = h.newEvent(t, http.MethodGet, "/users/seller@example.com/role", nil, "rider@example.com")
	e.Request.SetPathValue("email", "seller@example.com")
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.users.GetRole(e)))

	e, _ = h.newEvent(t, http.MethodGet, "/users/seller@example.com/role", nil, "")
	e.Request.SetPathValue("email", "seller@example.com")
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, h.users.GetRole(e)))
}

func TestSetRole(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "admin@example.com", models.RoleAdmin)
	h.seedUser(t, "seller@example.com", models.RoleSeller)
	pending := h.seedUser(t, "pending@example.com", models.RoleSellerRequest)

	e, _ := h.newEvent(t, http.MethodPut, "/users/seller/"+pending, map[string]any{}, "seller@example.com")
	e.Request.SetPathValue("id", pending)
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.users.SetRole(e)))

	e, rec := h.newEvent(t, http.MethodPut, "/users/seller/"+pending, map[string]any{}, "admin@example.com")
	e.Request.SetPathValue("id", pending)
	require.NoError(t, h.users.SetRole(e))
	assert.Equal(t, models.RoleSeller, decode[models.User](t, rec).Role)

	e, _ = h.newEvent(t, http.MethodPut, "/users/seller/"+pending, map[string]any{"role": "owner"}, "admin@example.com")
	e.Request.SetPathValue("id", pending)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.users.SetRole(e)))
}

func TestDeleteAndListUsers(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "admin@example.com", models.RoleAdmin)
	h.seedUser(t, "seller@example.com", models.RoleSeller)
	rider := h.seedUser(t, "rider@example.com", models.RoleNone)

	e, rec := h.newEvent(t, http.MethodGet, "/users?role=seller", nil, "admin@example.com")
	require.NoError(t, h.users.ListUsers(e))
	assert.Len(t, decode[[]models.User](t, rec), 1)

	e, _ = h.newEvent(t, http.MethodGet, "/users", nil, "seller@example.com")
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.users.ListUsers(e)))

	e, _ = h.newEvent(t, http.MethodDelete, "/user/"+rider, nil, "seller@example.com")
	e.Request.SetPathValue("id", rider)
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.users.DeleteUser(e)))

	e, _ = h.newEvent(t, http.MethodDelete, "/user/"+rider, nil, "admin@example.com")
	e.Request.SetPathValue("id", rider)
	require.NoError(t, h.users.DeleteUser(e))

	e, _ = h.newEvent(t, http.MethodDelete, "/user/"+rider, nil, "admin@example.com")
	e.Request.SetPathValue("id", rider)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, h.users.DeleteUser(e)))
}

func TestRequestSellerHandler(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "rider@example.com", models.RoleNone)

	e, rec := h.newEvent(t, http.MethodPut, "/users/seller-request", nil, "rider@example.com")
	require.NoError(t, h.users.RequestSeller(e))
	assert.Equal(t, models.RoleSellerRequest, decode[models.User](t, rec).Role)
}
