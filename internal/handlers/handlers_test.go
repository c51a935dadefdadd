package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"bike-market/internal/services"
	"bike-market/internal/services/gateway"
	"bike-market/internal/store"
	"bike-market/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	intent gateway.Intent
	event  gateway.ChargeEvent
	charge gateway.Charge
	err    error
}

func (g *stubGateway) Provider() gateway.Provider { return "stub" }

func (g *stubGateway) CreateIntent(context.Context, gateway.IntentRequest) (gateway.Intent, error) {
	return g.intent, g.err
}

func (g *stubGateway) VerifyEvent(context.Context, string) (gateway.ChargeEvent, error) {
	return g.event, g.err
}

func (g *stubGateway) VerifyCharge(context.Context, string) (gateway.Charge, error) {
	return g.charge, g.err
}

func (g *stubGateway) Close(context.Context) error { return nil }

func paidCharge(id, bookingID, listingID string, amountMinor int64) gateway.Charge {
	return gateway.Charge{
		ID:          id,
		Status:      gateway.ChargeSuccessful,
		AmountMinor: amountMinor,
		Currency:    "thb",
		BookingID:   bookingID,
		ListingID:   listingID,
	}
}

type harness struct {
	db       *store.MemoryStore
	tokens   *services.TokenService
	gateway  *stubGateway
	users    *UserHandler
	listings *ListingHandler
	bookings *BookingHandler
	payments *PaymentHandler
	admin    *AdminHandler
	auth     *Authenticator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := store.NewMemoryStore()
	tokens := services.NewTokenService("handler-secret", time.Hour)
	gw := &stubGateway{}

	roles := services.NewRoleService(db, tokens)
	listings := services.NewListingService(db, roles)
	bookings := services.NewBookingService(db, roles, listings)
	settlement := services.NewSettlementService(db, nil, nil, nil)
	payments := services.NewPaymentService(db, roles, gw, settlement, "thb")
	reconciler := services.NewReconciler(db, nil)

	auth := NewAuthenticator(tokens)
	return &harness{
		db:       db,
		tokens:   tokens,
		gateway:  gw,
		auth:     auth,
		users:    NewUserHandler(auth, roles),
		listings: NewListingHandler(auth, listings),
		bookings: NewBookingHandler(auth, bookings),
		payments: NewPaymentHandler(auth, payments),
		admin:    NewAdminHandler(auth, roles, reconciler),
	}
}

func (h *harness) seedUser(t *testing.T, email string, role models.Role) string {
	t.Helper()
	id, err := h.db.Insert(context.Background(), store.Users, store.Document{"email": email, "role": string(role)})
	require.NoError(t, err)
	return id
}

func (h *harness) seedBike(t *testing.T, owner string, price float64) string {
	t.Helper()
	bike := models.Bike{OwnerEmail: owner, Title: "Canyon Grail", Category: "gravel", Price: price, Status: models.ListingAvailable}
	id, err := h.db.Insert(context.Background(), store.Bikes, bike.Document())
	require.NoError(t, err)
	return id
}

func (h *harness) seedBooking(t *testing.T, buyer, listingID string, price float64) string {
	t.Helper()
	booking := models.Booking{BuyerEmail: buyer, ListingID: listingID, Price: price}
	id, err := h.db.Insert(context.Background(), store.Bookings, booking.Document())
	require.NoError(t, err)
	return id
}

// newEvent builds a request event; a non-empty email is sent as a bearer credential.
func (h *harness) newEvent(t *testing.T, method, target string, body any, email string) (*core.RequestEvent, *httptest.ResponseRecorder) {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		token, err := h.tokens.Issue(email)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	return e, rec
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()

	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
