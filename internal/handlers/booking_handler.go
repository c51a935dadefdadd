package handlers

import (
	"net/http"

	"bike-market/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type BookingHandler struct {
	auth     *Authenticator
	bookings *services.BookingService
}

func NewBookingHandler(auth *Authenticator, bookings *services.BookingService) *BookingHandler {
	return &BookingHandler{auth: auth, bookings: bookings}
}

// CreateBooking - Book an available bike for the caller
func (h *BookingHandler) CreateBooking(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	var req services.CreateBookingInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	booking, err := h.bookings.Create(e.Request.Context(), id, req)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"insertedId": booking.ID,
		"booking":    booking,
	})
}

// BookingsByBuyer - The caller's bookings; other buyers' bookings are admin-only
func (h *BookingHandler) BookingsByBuyer(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	email := e.Request.URL.Query().Get("email")
	if email == "" {
		return apis.NewBadRequestError("email is required", nil)
	}

	bookings, err := h.bookings.ByBuyer(e.Request.Context(), id, email)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) GetBooking(e *core.RequestEvent) error {
	id, err := h.auth.Identify(e)
	if err != nil {
		return writeError(e, err)
	}

	booking, err := h.bookings.Get(e.Request.Context(), id, e.Request.PathValue("id"))
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, booking)
}
