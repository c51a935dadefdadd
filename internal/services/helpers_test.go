package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"bike-market/internal/events"
	"bike-market/internal/services/gateway"
	"bike-market/internal/store"
	"bike-market/models"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Provider() gateway.Provider {
	return "mock"
}

func (m *mockGateway) CreateIntent(ctx context.Context, req gateway.IntentRequest) (gateway.Intent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.Intent), args.Error(1)
}

func (m *mockGateway) VerifyEvent(ctx context.Context, eventID string) (gateway.ChargeEvent, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(gateway.ChargeEvent), args.Error(1)
}

func (m *mockGateway) VerifyCharge(ctx context.Context, chargeID string) (gateway.Charge, error) {
	args := m.Called(ctx, chargeID)
	return args.Get(0).(gateway.Charge), args.Error(1)
}

func (m *mockGateway) Close(ctx context.Context) error {
	return nil
}

type sentMessage struct {
	Channel string
	Message map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) Notify(_ context.Context, channel string, message map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{channel, message})
	return nil
}

func (n *recordingNotifier) channels() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := []string{}
	for _, m := range n.sent {
		out = append(out, m.Channel)
	}
	return out
}

// alerts returns the "type" of every message sent to channel.
func (n *recordingNotifier) alerts(channel string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := []string{}
	for _, m := range n.sent {
		if m.Channel == channel {
			out = append(out, cast.ToString(m.Message["type"]))
		}
	}
	return out
}

type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := []string{}
	for _, e := range p.envelopes {
		out = append(out, e.Event)
	}
	return out
}

// hookStore lets a test run code at a chosen point inside a service call,
// standing in for a concurrent request. Each hook fires once; a non-nil error
// from a before hook is returned instead of reaching the wrapped store.
type hookStore struct {
	store.Store

	mu     sync.Mutex
	before map[string]func() error
	after  map[string]func()
}

func newHookStore(inner store.Store) *hookStore {
	return &hookStore{
		Store:  inner,
		before: map[string]func() error{},
		after:  map[string]func(){},
	}
}

func (h *hookStore) Before(op, collection string, fn func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before[op+":"+collection] = fn
}

func (h *hookStore) After(op, collection string, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.after[op+":"+collection] = fn
}

func (h *hookStore) runBefore(op, collection string) error {
	h.mu.Lock()
	fn := h.before[op+":"+collection]
	delete(h.before, op+":"+collection)
	h.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn()
}

func (h *hookStore) runAfter(op, collection string) {
	h.mu.Lock()
	fn := h.after[op+":"+collection]
	delete(h.after, op+":"+collection)
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (h *hookStore) Insert(ctx context.Context, collection string, doc store.Document) (string, error) {
	if err := h.runBefore("insert", collection); err != nil {
		return "", err
	}
	id, err := h.Store.Insert(ctx, collection, doc)
	h.runAfter("insert", collection)
	return id, err
}

func (h *hookStore) FindByID(ctx context.Context, collection, id string) (store.Document, error) {
	if err := h.runBefore("find", collection); err != nil {
		return nil, err
	}
	doc, err := h.Store.FindByID(ctx, collection, id)
	h.runAfter("find", collection)
	return doc, err
}

func (h *hookStore) Update(ctx context.Context, collection string, filter store.Filter, set store.Document) (int64, error) {
	if err := h.runBefore("update", collection); err != nil {
		return 0, err
	}
	n, err := h.Store.Update(ctx, collection, filter, set)
	h.runAfter("update", collection)
	return n, err
}

type testEnv struct {
	db         *store.MemoryStore
	tokens     *TokenService
	roles      *RoleService
	listings   *ListingService
	bookings   *BookingService
	settlement *SettlementService
	payments   *PaymentService
	reconciler *Reconciler
	gateway    *mockGateway
	notifier   *recordingNotifier
	publisher  *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds the services over wrap(db). Seed helpers keep
// writing to the bare memory store.
func newTestEnvWith(t *testing.T, wrap func(store.Store) store.Store) *testEnv {
	t.Helper()

	env := &testEnv{
		db:        store.NewMemoryStore(),
		tokens:    NewTokenService("test-secret", time.Hour),
		gateway:   &mockGateway{},
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}
	var db store.Store = env.db
	if wrap != nil {
		db = wrap(env.db)
	}
	env.roles = NewRoleService(db, env.tokens)
	env.listings = NewListingService(db, env.roles)
	env.bookings = NewBookingService(db, env.roles, env.listings)
	env.settlement = NewSettlementService(db, nil, env.notifier, env.publisher)
	env.settlement.retryDelay = 0
	env.payments = NewPaymentService(db, env.roles, env.gateway, env.settlement, "thb")
	env.reconciler = NewReconciler(db, env.publisher)
	return env
}

func (env *testEnv) seedUser(t *testing.T, email string, role models.Role) Identity {
	t.Helper()

	_, err := env.db.Insert(context.Background(), store.Users, store.Document{
		"email": email,
		"role":  string(role),
	})
	require.NoError(t, err)
	return Identity{Email: email}
}

func (env *testEnv) seedBike(t *testing.T, owner, category string, price float64) models.Bike {
	t.Helper()

	bike := models.Bike{
		OwnerEmail: owner,
		Title:      category + " bike",
		Category:   category,
		Price:      price,
		Status:     models.ListingAvailable,
	}
	id, err := env.db.Insert(context.Background(), store.Bikes, bike.Document())
	require.NoError(t, err)
	bike.ID = id
	return bike
}

func (env *testEnv) seedBooking(t *testing.T, buyer string, bike models.Bike) models.Booking {
	t.Helper()

	booking := models.Booking{
		BuyerEmail:   buyer,
		ListingID:    bike.ID,
		ListingTitle: bike.Title,
		SellerEmail:  bike.OwnerEmail,
		Price:        bike.Price,
	}
	id, err := env.db.Insert(context.Background(), store.Bookings, booking.Document())
	require.NoError(t, err)
	booking.ID = id
	return booking
}

func (env *testEnv) booking(t *testing.T, id string) models.Booking {
	t.Helper()

	doc, err := env.db.FindByID(context.Background(), store.Bookings, id)
	require.NoError(t, err)
	return models.BookingFromDocument(doc)
}

func (env *testEnv) bike(t *testing.T, id string) models.Bike {
	t.Helper()

	doc, err := env.db.FindByID(context.Background(), store.Bikes, id)
	require.NoError(t, err)
	return models.BikeFromDocument(doc)
}

// paidCharge is the gateway's view of a successful charge for booking.
func paidCharge(id string, booking models.Booking) gateway.Charge {
	return gateway.Charge{
		ID:          id,
		Status:      gateway.ChargeSuccessful,
		AmountMinor: int64(booking.Price * 100),
		Currency:    "thb",
		BookingID:   booking.ID,
		ListingID:   booking.ListingID,
	}
}

func (env *testEnv) paymentCount(t *testing.T, bookingID string) int {
	t.Helper()

	docs, err := env.db.Find(context.Background(), store.Payments, store.Filter{"booking_id": bookingID})
	require.NoError(t, err)
	return len(docs)
}
