package handlers

import (
	"net/http"
	"time"

	"bike-market/internal/services"
	"bike-market/models"

	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	auth       *Authenticator
	roles      *services.RoleService
	reconciler *services.Reconciler
}

func NewAdminHandler(auth *Authenticator, roles *services.RoleService, reconciler *services.Reconciler) *AdminHandler {
	return &AdminHandler{auth: auth, roles: roles, reconciler: reconciler}
}

func (h *AdminHandler) requireAdmin(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return err
	}
	_, err = h.roles.Authorize(e.Request.Context(), id, models.RoleAdmin)
	return err
}

// ReconcileReport - List paid bookings whose listing is not sold or was sold
// to a different booking
func (h *AdminHandler) ReconcileReport(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return writeError(e, err)
	}

	found, err := h.reconciler.Scan(e.Request.Context())
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, models.ReconcileReport{Found: found, CheckedAt: time.Now().UTC()})
}

// Reconcile - Mark unsold listings sold and report double sales for refund
func (h *AdminHandler) Reconcile(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return writeError(e, err)
	}

	report, err := h.reconciler.Repair(e.Request.Context())
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, report)
}
