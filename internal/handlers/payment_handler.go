package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"bike-market/internal/services"
	"bike-market/internal/status"
	"bike-market/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	auth     *Authenticator
	payments *services.PaymentService
}

func NewPaymentHandler(auth *Authenticator, payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{auth: auth, payments: payments}
}

// CreatePaymentIntent - Open a gateway charge for price × 100 minor units
func (h *PaymentHandler) CreatePaymentIntent(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	var req services.CreateIntentInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewApiError(http.StatusUnprocessableEntity, "Invalid price", map[string]any{"code": "invalid_amount"})
	}

	intent, err := h.payments.CreateIntent(e.Request.Context(), id, req)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"clientSecret": intent.ClientSecret,
		"intentId":     intent.ID,
		"authorizeUri": intent.AuthorizeURI,
	})
}

// SavePayment - Settle a booking with the gateway's transaction id once the
// gateway confirms the charge
func (h *PaymentHandler) SavePayment(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	var req services.SettleInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	result, err := h.payments.Settle(e.Request.Context(), id, req)
	if err != nil {
		return writeSettlementError(e, result, err)
	}
	return e.JSON(http.StatusOK, result)
}

type gatewayWebhookReq struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// GatewayWebhook - Omise event notification. The payload is only used for
// its id; the event itself is fetched back from Omise.
func (h *PaymentHandler) GatewayWebhook(e *core.RequestEvent) error {
	var req gatewayWebhookReq
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	result, settled, err := h.payments.HandleGatewayEvent(e.Request.Context(), req.ID)
	if err != nil {
		// redelivery of an event we already applied
		if errors.Is(err, status.ErrAlreadySettled) {
			return e.JSON(http.StatusOK, map[string]any{"status": "already_settled"})
		}
		// a redelivery cannot make the charge match the booking
		if errors.Is(err, status.ErrPaymentUnverified) {
			slog.Warn("gateway charge rejected", "event_id", req.ID, "error", err)
			return e.JSON(http.StatusOK, map[string]any{"status": "rejected"})
		}
		slog.Error("h.payments.HandleGatewayEvent()", "event_id", req.ID, "key", req.Key, "error", err)
		return writeSettlementError(e, result, err)
	}

	if !settled {
		return e.JSON(http.StatusOK, map[string]any{"status": "ignored"})
	}
	return e.JSON(http.StatusOK, result)
}

func writeSettlementError(e *core.RequestEvent, result models.SettlementResult, err error) error {
	if errors.Is(err, status.ErrPartialSettlement) {
		return e.JSON(http.StatusInternalServerError, map[string]any{
			"code":   "partial_settlement",
			"result": result,
		})
	}
	return writeError(e, err)
}
