package services

import (
	"context"
	"errors"
	"testing"

	"bike-market/internal/status"
	"bike-market/internal/store"
	"bike-market/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(t, "seller@example.com", models.RoleSeller)
	buyer := env.seedUser(t, "buyer@example.com", models.RoleNone)
	bike := env.seedBike(t, seller.Email, "road", 1000)

	booking, err := env.bookings.Create(ctx, buyer, CreateBookingInput{ListingID: bike.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, buyer.Email, booking.BuyerEmail)
	assert.Equal(t, seller.Email, booking.SellerEmail)
	assert.Equal(t, 1000.0, booking.Price)
	assert.False(t, booking.Paid)

	again, err := env.bookings.Create(ctx, buyer, CreateBookingInput{ListingID: bike.ID})
	require.NoError(t, err)
	assert.Equal(t, booking.ID, again.ID)
}

// Two requests from the same buyer both miss the open booking; the unique
// index refuses the second insert and the caller gets the first booking.
func TestBookingCreate_ConcurrentDuplicate(t *testing.T) {
	var hooks *hookStore
	env := newTestEnvWith(t, func(db store.Store) store.Store {
		hooks = newHookStore(db)
		return hooks
	})
	ctx := context.Background()

	seller := env.seedUser(t, "seller@example.com", models.RoleSeller)
	buyer := env.seedUser(t, "buyer@example.com", models.RoleNone)
	bike := env.seedBike(t, seller.Email, "road", 1000)

	var winner models.Booking
	hooks.Before("insert", store.Bookings, func() error {
		winner = env.seedBooking(t, buyer.Email, bike)
		return errors.New("UNIQUE constraint failed: bookings.buyer_email, bookings.listing_id")
	})

	booking, err := env.bookings.Create(ctx, buyer, CreateBookingInput{ListingID: bike.ID})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, booking.ID)

	docs, err := env.db.Find(ctx, store.Bookings, store.Filter{"listing_id": bike.ID})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestBookingCreate_InsertFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	buyer := env.seedUser(t, "buyer@example.com", models.RoleNone)
	bike := env.seedBike(t, "seller@example.com", "road", 1000)

	env.db.FailNext("insert", store.Bookings, errors.New("disk full"), 1)

	_, err := env.bookings.Create(ctx, buyer, CreateBookingInput{ListingID: bike.ID})
	assert.EqualError(t, err, "disk full")
}

func TestBookingCreate_Refusals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(t, "seller@example.com", models.RoleSeller)
	buyer := env.seedUser(t, "buyer@example.com", models.RoleNone)
	bike := env.seedBike(t, seller.Email, "road", 1000)
	sold := env.seedBike(t, seller.Email, "road", 1000)

	paid := env.seedBooking(t, "first@example.com", sold)
	_, err := env.settlement.Settle(ctx, paid.ID, sold.ID, "tx-1")
	require.NoError(t, err)

	_, err = env.bookings.Create(ctx, seller, CreateBookingInput{ListingID: bike.ID})
	assert.ErrorIs(t, err, status.ErrForbidden)

	_, err = env.bookings.Create(ctx, buyer, CreateBookingInput{ListingID: sold.ID})
	assert.ErrorIs(t, err, status.ErrAlreadySettled)

	_, err = env.bookings.Create(ctx, buyer, CreateBookingInput{ListingID: "missing"})
	assert.ErrorIs(t, err, status.ErrNotFound)

	_, err = env.bookings.Create(ctx, buyer, CreateBookingInput{})
	assert.ErrorIs(t, err, status.ErrInvalidInput)

	_, err = env.bookings.Create(ctx, Identity{Email: "ghost@example.com"}, CreateBookingInput{ListingID: bike.ID})
	assert.ErrorIs(t, err, status.ErrForbidden)
}

func TestBookingAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.seedUser(t, "seller@example.com", models.RoleSeller)
	buyer := env.seedUser(t, "buyer@example.com", models.RoleNone)
	stranger := env.seedUser(t, "stranger@example.com", models.RoleNone)
	admin := env.seedUser(t, "admin@example.com", models.RoleAdmin)
	bike := env.seedBike(t, seller.Email, "road", 1000)

	booking, err := env.bookings.Create(ctx, buyer, CreateBookingInput{ListingID: bike.ID})
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		got, err := env.bookings.Get(ctx, buyer, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, got.ID)

		_, err = env.bookings.Get(ctx, stranger, booking.ID)
		assert.ErrorIs(t, err, status.ErrForbidden)

		_, err = env.bookings.Get(ctx, admin, booking.ID)
		assert.NoError(t, err)
	})

	t.Run("by buyer", func(t *testing.T) {
		own, err := env.bookings.ByBuyer(ctx, buyer, buyer.Email)
		require.NoError(t, err)
		assert.Len(t, own, 1)

		_, err = env.bookings.ByBuyer(ctx, stranger, buyer.Email)
		assert.ErrorIs(t, err, status.ErrForbidden)

		viaAdmin, err := env.bookings.ByBuyer(ctx, admin, buyer.Email)
		require.NoError(t, err)
		assert.Len(t, viaAdmin, 1)

		none, err := env.bookings.ByBuyer(ctx, stranger, stranger.Email)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
