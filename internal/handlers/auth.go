package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"bike-market/internal/services"
	"bike-market/internal/status"
	"bike-market/monitoring"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

const identityKey = "identity"

// Authenticator resolves the bearer credential on a request into an Identity.
type Authenticator struct {
	tokens *services.TokenService
}

func NewAuthenticator(tokens *services.TokenService) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) Identify(e *core.RequestEvent) (services.Identity, error) {
	if id, ok := e.Get(identityKey).(services.Identity); ok {
		return id, nil
	}

	id, err := a.tokens.Verify(e.Request.Header.Get("Authorization"))
	if err != nil {
		return services.Identity{}, err
	}
	e.Set(identityKey, id)
	return id, nil
}

// RequireAuth rejects unauthenticated requests before they reach the handler.
func (a *Authenticator) RequireAuth() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, err := a.Identify(e); err != nil {
			return writeError(e, err)
		}
		return e.Next()
	}
}

func route(e *core.RequestEvent) string {
	if e.Request.Pattern != "" {
		return e.Request.Pattern
	}
	return e.Request.Method + " " + e.Request.URL.Path
}

// writeError maps service errors onto HTTP responses.
func writeError(e *core.RequestEvent, err error) error {
	switch {
	case errors.Is(err, status.ErrUnauthenticated):
		monitoring.TrackAuthzDenial(route(e), "unauthenticated")
		return apis.NewUnauthorizedError("Missing or invalid credential", nil)
	case errors.Is(err, status.ErrForbidden):
		monitoring.TrackAuthzDenial(route(e), "forbidden")
		return apis.NewForbiddenError("Access denied", nil)
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError("Not found", nil)
	case errors.Is(err, status.ErrAlreadySettled):
		return apis.NewApiError(http.StatusConflict, "Already settled", map[string]any{"code": "already_settled"})
	case errors.Is(err, status.ErrPartialSettlement):
		return e.JSON(http.StatusInternalServerError, map[string]any{
			"code":    "partial_settlement",
			"message": "Payment recorded but the listing could not be marked sold; it will be reconciled",
		})
	case errors.Is(err, status.ErrInvalidAmount):
		return apis.NewApiError(http.StatusUnprocessableEntity, err.Error(), map[string]any{"code": "invalid_amount"})
	case errors.Is(err, status.ErrPaymentUnverified):
		return apis.NewApiError(http.StatusPaymentRequired, "Payment not confirmed by gateway", map[string]any{"code": "payment_unverified"})
	case errors.Is(err, status.ErrGatewayUnavailable):
		return apis.NewApiError(http.StatusBadGateway, "Payment gateway unavailable", map[string]any{"code": "gateway_unavailable"})
	case errors.Is(err, status.ErrListingMismatch),
		errors.Is(err, status.ErrInvalidRole),
		errors.Is(err, status.ErrInvalidInput):
		return apis.NewBadRequestError(err.Error(), nil)
	}

	slog.Error("request failed", "route", route(e), "error", err)
	return apis.NewInternalServerError("Internal error", nil)
}
