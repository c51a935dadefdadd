package services

import (
	"context"
	"errors"
	"fmt"

	"bike-market/internal/status"
	"bike-market/internal/store"
	"bike-market/models"
)

type BookingService struct {
	db       store.Store
	roles    *RoleService
	listings *ListingService
}

func NewBookingService(db store.Store, roles *RoleService, listings *ListingService) *BookingService {
	return &BookingService{db: db, roles: roles, listings: listings}
}

type CreateBookingInput struct {
	ListingID string `json:"productId"`
}

// Create books an available listing for the caller. Re-booking the same
// listing while an unpaid booking exists returns that booking.
func (s *BookingService) Create(ctx context.Context, caller Identity, in CreateBookingInput) (models.Booking, error) {
	buyer, err := s.roles.Authorize(ctx, caller)
	if err != nil {
		return models.Booking{}, err
	}
	if in.ListingID == "" {
		return models.Booking{}, fmt.Errorf("%w: productId is required", status.ErrInvalidInput)
	}

	bike, err := s.listings.Get(ctx, in.ListingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !bike.Available() {
		return models.Booking{}, status.ErrAlreadySettled
	}
	if bike.OwnerEmail == buyer.Email {
		return models.Booking{}, fmt.Errorf("%w: cannot book your own listing", status.ErrForbidden)
	}

	existing, err := s.openBooking(ctx, buyer.Email, bike.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, status.ErrNotFound) {
		return models.Booking{}, err
	}

	booking := models.Booking{
		BuyerEmail:   buyer.Email,
		ListingID:    bike.ID,
		ListingTitle: bike.Title,
		SellerEmail:  bike.OwnerEmail,
		Price:        bike.Price,
		Paid:         false,
	}

	id, err := s.db.Insert(ctx, store.Bookings, booking.Document())
	if err != nil {
		// idx_bookings_open refused a concurrent duplicate; return the winner
		if existing, findErr := s.openBooking(ctx, buyer.Email, bike.ID); findErr == nil {
			return existing, nil
		}
		return models.Booking{}, err
	}
	booking.ID = id
	return booking, nil
}

// openBooking returns the buyer's unpaid booking for a listing.
func (s *BookingService) openBooking(ctx context.Context, buyerEmail, listingID string) (models.Booking, error) {
	docs, err := s.db.Find(ctx, store.Bookings, store.Filter{
		"buyer_email": buyerEmail,
		"listing_id":  listingID,
		"paid":        false,
	})
	if err != nil {
		return models.Booking{}, err
	}
	if len(docs) == 0 {
		return models.Booking{}, status.ErrNotFound
	}
	return models.BookingFromDocument(docs[0]), nil
}

// Get returns a booking to its buyer or an admin.
func (s *BookingService) Get(ctx context.Context, caller Identity, id string) (models.Booking, error) {
	u, err := s.roles.Authorize(ctx, caller)
	if err != nil {
		return models.Booking{}, err
	}

	doc, err := s.db.FindByID(ctx, store.Bookings, id)
	if err != nil {
		return models.Booking{}, err
	}
	booking := models.BookingFromDocument(doc)

	if booking.BuyerEmail != u.Email && u.Role != models.RoleAdmin {
		return models.Booking{}, status.ErrForbidden
	}
	return booking, nil
}

// ByBuyer lists bookings of email. The email must be the caller's own
// unless the caller is an admin.
func (s *BookingService) ByBuyer(ctx context.Context, caller Identity, email string) ([]models.Booking, error) {
	if caller.Email != email {
		if _, err := s.roles.Authorize(ctx, caller, models.RoleAdmin); err != nil {
			return nil, err
		}
	}

	docs, err := s.db.Find(ctx, store.Bookings, store.Filter{"buyer_email": email})
	if err != nil {
		return nil, err
	}

	bookings := make([]models.Booking, 0, len(docs))
	for _, d := range docs {
		bookings = append(bookings, models.BookingFromDocument(d))
	}
	return bookings, nil
}
