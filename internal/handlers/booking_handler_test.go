package handlers

import (
	"net/http"
	"testing"

	"bike-market/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingHandler(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "seller@example.com", models.RoleSeller)
	h.seedUser(t, "buyer@example.com", models.RoleNone)
	bikeID := h.seedBike(t, "seller@example.com", 900)

	e, rec := h.newEvent(t, http.MethodPost, "/booking", map[string]any{"productId": bikeID}, "buyer@example.com")
	require.NoError(t, h.bookings.CreateBooking(e))

	body := decode[struct {
		InsertedID string         `json:"insertedId"`
		Booking    models.Booking `json:"booking"`
	}](t, rec)
	assert.NotEmpty(t, body.InsertedID)
	assert.Equal(t, bikeID, body.Booking.ListingID)
	assert.False(t, body.Booking.Paid)

	e, _ = h.newEvent(t, http.MethodPost, "/booking", map[string]any{"productId": bikeID}, "seller@example.com")
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.bookings.CreateBooking(e)))

	e, _ = h.newEvent(t, http.MethodPost, "/booking", map[string]any{"productId": bikeID}, "")
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, h.bookings.CreateBooking(e)))
}

func TestBookingQueriesHandler(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "buyer@example.com", models.RoleNone)
	h.seedUser(t, "stranger@example.com", models.RoleNone)
	bikeID := h.seedBike(t, "seller@example.com", 900)
	bookingID := h.seedBooking(t, "buyer@example.com", bikeID, 900)

	e, rec := h.newEvent(t, http.MethodGet, "/bookings?email=buyer@example.com", nil, "buyer@example.com")
	require.NoError(t, h.bookings.BookingsByBuyer(e))
	assert.Len(t, decode[[]models.Booking](t, rec), 1)

	e, _ = h.newEvent(t, http.MethodGet, "/bookings?email=buyer@example.com", nil, "stranger@example.com")
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.bookings.BookingsByBuyer(e)))

	e, _ = h.newEvent(t, http.MethodGet, "/bookings", nil, "buyer@example.com")
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.bookings.BookingsByBuyer(e)))

	e, rec = h.newEvent(t, http.MethodGet, "/booking/"+bookingID, nil, "buyer@example.com")
	e.Request.SetPathValue("id", bookingID)
	require.NoError(t, h.bookings.GetBooking(e))
	assert.Equal(t, bookingID, decode[models.Booking](t, rec).ID)

	e, _ = h.newEvent(t, http.MethodGet, "/booking/"+bookingID, nil, "stranger@example.com")
	e.Request.SetPathValue("id", bookingID)
	assert.Equal(t, http.StatusForbidden, apiStatus(t, h.bookings.GetBooking(e)))
}
