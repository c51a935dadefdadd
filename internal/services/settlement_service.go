package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bike-market/internal/events"
	"bike-market/internal/status"
	"bike-market/internal/store"
	"bike-market/models"
	"bike-market/monitoring"
)

// SettlementService turns a confirmed payment into a paid booking and a sold
// listing. The two writes are independent conditional updates; when the
// listing write cannot be applied the outcome is PartialSettlement and the
// reconciler repairs it later.
type SettlementService struct {
	db         store.Store
	guard      *SettlementGuard
	notifier   Notifier
	events     events.Publisher
	retryDelay time.Duration
}

func NewSettlementService(db store.Store, guard *SettlementGuard, notifier Notifier, publisher events.Publisher) *SettlementService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &SettlementService{
		db:         db,
		guard:      guard,
		notifier:   notifier,
		events:     publisher,
		retryDelay: 200 * time.Millisecond,
	}
}

func (s *SettlementService) Settle(ctx context.Context, bookingID, listingID, transactionID string) (result models.SettlementResult, err error) {
	start := time.Now()
	defer func() {
		monitoring.TrackSettlement(settlementOutcome(err), time.Since(start))
	}()

	if bookingID == "" || listingID == "" || transactionID == "" {
		return result, status.ErrInvalidInput
	}

	doc, err := s.db.FindByID(ctx, store.Bookings, bookingID)
	if err != nil {
		return result, err
	}
	booking := models.BookingFromDocument(doc)
	if booking.ListingID != listingID {
		return result, status.ErrListingMismatch
	}
	if booking.Paid {
		return result, status.ErrAlreadySettled
	}

	doc, err = s.db.FindByID(ctx, store.Bikes, listingID)
	if err != nil {
		return result, err
	}
	bike := models.BikeFromDocument(doc)
	if !bike.Available() {
		return result, status.ErrAlreadySettled
	}

	acquired, gerr := s.guard.Acquire(ctx, bookingID, transactionID)
	switch {
	case gerr != nil:
		slog.Warn("settlement guard unavailable, relying on store", "booking_id", bookingID, "error", gerr)
	case !acquired:
		return result, status.ErrAlreadySettled
	}

	payment := models.Payment{
		BookingID:     bookingID,
		ListingID:     listingID,
		TransactionID: transactionID,
		BuyerEmail:    booking.BuyerEmail,
		Price:         booking.Price,
	}
	paymentID, err := s.db.Insert(ctx, store.Payments, payment.Document())
	if err != nil {
		s.release(ctx, bookingID, acquired)
		return result, err
	}

	result = models.SettlementResult{
		PaymentID:     paymentID,
		BookingID:     bookingID,
		ListingID:     listingID,
		TransactionID: transactionID,
	}

	n, err := s.db.Update(ctx, store.Bookings,
		store.Filter{"id": bookingID, "paid": false},
		store.Document{"paid": true, "transaction_id": transactionID})
	if err != nil {
		s.release(ctx, bookingID, acquired)
		return models.SettlementResult{}, err
	}
	if n == 0 {
		// lost the race to another confirmation
		return models.SettlementResult{}, status.ErrAlreadySettled
	}

	if err := s.markSold(ctx, listingID, bookingID); err != nil {
		result.Status = models.SettlementPartial
		slog.Error("partial settlement: booking paid, listing not sold",
			"booking_id", bookingID,
			"listing_id", listingID,
			"transaction_id", transactionID,
			"payment_id", paymentID,
			"error", err,
		)
		s.publish(ctx, events.SettlementPartial, result)

		alert := "partial_settlement"
		if errors.Is(err, errListingNotAvailable) {
			// another booking won the listing; this buyer is owed a refund
			alert = "double_sale"
		}
		s.notify(ctx, AdminChannel, map[string]any{
			"type":           alert,
			"booking_id":     bookingID,
			"listing_id":     listingID,
			"transaction_id": transactionID,
		})
		return result, errors.Join(status.ErrPartialSettlement, err)
	}

	result.Status = models.SettlementCompleted
	slog.Info("settlement completed", "booking_id", bookingID, "listing_id", listingID, "payment_id", paymentID)

	s.publish(ctx, events.SettlementCompleted, result)
	s.notify(ctx, UserChannel(booking.BuyerEmail), map[string]any{
		"type":           "payment_success",
		"booking_id":     bookingID,
		"listing_id":     listingID,
		"transaction_id": transactionID,
	})
	s.notify(ctx, UserChannel(bike.OwnerEmail), map[string]any{
		"type":       "listing_sold",
		"listing_id": listingID,
		"title":      bike.Title,
	})

	return result, nil
}

var errListingNotAvailable = errors.New("listing no longer available")

// markSold flips the listing to sold and records the winning booking,
// retrying once on a write error. A listing that no longer matches (deleted
// or sold to someone else) is not retried.
func (s *SettlementService) markSold(ctx context.Context, listingID, bookingID string) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(s.retryDelay):
			}
		}

		var n int64
		n, err = s.db.Update(ctx, store.Bikes,
			store.Filter{"id": listingID, "status": string(models.ListingAvailable)},
			store.Document{"status": string(models.ListingSold), "advertised": false, "sold_booking_id": bookingID})
		if err == nil {
			if n == 0 {
				return errListingNotAvailable
			}
			return nil
		}
		slog.Warn("failed to mark listing sold", "listing_id", listingID, "attempt", attempt+1, "error", err)
	}
	return err
}

func (s *SettlementService) release(ctx context.Context, bookingID string, acquired bool) {
	if !acquired {
		return
	}
	if err := s.guard.Release(ctx, bookingID); err != nil {
		slog.Warn("failed to release settlement guard", "booking_id", bookingID, "error", err)
	}
}

func (s *SettlementService) publish(ctx context.Context, event string, result models.SettlementResult) {
	if err := s.events.Publish(ctx, events.NewEnvelope(event, result)); err != nil {
		slog.Error("failed to publish settlement event", "event", event, "booking_id", result.BookingID, "error", err)
	}
}

func (s *SettlementService) notify(ctx context.Context, channel string, msg map[string]any) {
	if err := s.notifier.Notify(ctx, channel, msg); err != nil {
		slog.Error("failed to send notification", "channel", channel, "error", err)
	}
}

func settlementOutcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, status.ErrPartialSettlement):
		return "partial"
	case errors.Is(err, status.ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, status.ErrNotFound):
		return "not_found"
	}
	return "failed"
}
