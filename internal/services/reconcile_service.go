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

// Reconciler finds paid bookings that settlement left inconsistent. A paid
// booking whose listing is not sold is repaired by marking the listing sold.
// A paid booking for a listing sold to a different booking is a double sale;
// it is reported for refund and never repaired.
type Reconciler struct {
	db     store.Store
	events events.Publisher
}

func NewReconciler(db store.Store, publisher events.Publisher) *Reconciler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Reconciler{db: db, events: publisher}
}

func (r *Reconciler) Scan(ctx context.Context) ([]models.Inconsistency, error) {
	docs, err := r.db.Find(ctx, store.Bookings, store.Filter{"paid": true})
	if err != nil {
		return nil, err
	}

	// paid bookings per listing, oldest first
	order := []string{}
	paid := map[string][]models.Booking{}
	for i := len(docs) - 1; i >= 0; i-- {
		booking := models.BookingFromDocument(docs[i])
		if _, ok := paid[booking.ListingID]; !ok {
			order = append(order, booking.ListingID)
		}
		paid[booking.ListingID] = append(paid[booking.ListingID], booking)
	}

	found := []models.Inconsistency{}
	for _, listingID := range order {
		doc, err := r.db.FindByID(ctx, store.Bikes, listingID)
		if errors.Is(err, status.ErrNotFound) {
			// deleted listings cannot be repaired
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, classify(models.BikeFromDocument(doc), paid[listingID])...)
	}

	monitoring.SetInconsistencies(string(models.KindUnsoldListing), countKind(found, models.KindUnsoldListing))
	monitoring.SetInconsistencies(string(models.KindDoubleSale), countKind(found, models.KindDoubleSale))
	return found, nil
}

// classify compares a listing against its paid bookings. The booking recorded
// on the sold listing owns it; without one the oldest paid booking does.
func classify(bike models.Bike, bookings []models.Booking) []models.Inconsistency {
	owner := bike.SoldBookingID
	if owner == "" {
		owner = bookings[0].ID
	}

	out := []models.Inconsistency{}
	for _, b := range bookings {
		inc := models.Inconsistency{
			BookingID:     b.ID,
			ListingID:     bike.ID,
			TransactionID: b.TransactionID,
			ListingStatus: bike.Status,
			SoldBookingID: bike.SoldBookingID,
		}
		switch {
		case b.ID != owner:
			inc.Kind = models.KindDoubleSale
		case bike.Status != models.ListingSold:
			inc.Kind = models.KindUnsoldListing
		default:
			continue
		}
		out = append(out, inc)
	}
	return out
}

func countKind(found []models.Inconsistency, kind models.InconsistencyKind) int {
	n := 0
	for _, inc := range found {
		if inc.Kind == kind {
			n++
		}
	}
	return n
}

// Repair scans, marks the listing sold for every unsold_listing finding and
// lists double-sale bookings as needing a refund.
func (r *Reconciler) Repair(ctx context.Context) (models.ReconcileReport, error) {
	report := models.ReconcileReport{CheckedAt: time.Now().UTC()}

	found, err := r.Scan(ctx)
	if err != nil {
		return report, err
	}
	report.Found = found

	for _, inc := range found {
		if inc.Kind == models.KindDoubleSale {
			slog.Error("reconcile: double sale, refund needed",
				"booking_id", inc.BookingID,
				"listing_id", inc.ListingID,
				"transaction_id", inc.TransactionID,
				"sold_booking_id", inc.SoldBookingID,
			)
			report.RefundNeeded = append(report.RefundNeeded, inc.BookingID)
			if err := r.events.Publish(ctx, events.NewEnvelope(events.SettlementDoubleSale, inc)); err != nil {
				slog.Error("reconcile: failed to publish event", "booking_id", inc.BookingID, "error", err)
			}
			continue
		}

		_, err := r.db.Update(ctx, store.Bikes,
			store.Filter{"id": inc.ListingID, "status": string(inc.ListingStatus)},
			store.Document{"status": string(models.ListingSold), "advertised": false, "sold_booking_id": inc.BookingID})
		if err != nil {
			slog.Error("reconcile: failed to mark listing sold", "listing_id", inc.ListingID, "booking_id", inc.BookingID, "error", err)
			report.Failed = append(report.Failed, inc.ListingID)
			continue
		}

		// zero matches means someone else already moved it on
		report.Repaired = append(report.Repaired, inc.ListingID)
		slog.Info("reconcile: listing marked sold", "listing_id", inc.ListingID, "booking_id", inc.BookingID)

		if err := r.events.Publish(ctx, events.NewEnvelope(events.SettlementRepaired, inc)); err != nil {
			slog.Error("reconcile: failed to publish event", "listing_id", inc.ListingID, "error", err)
		}
	}

	monitoring.SetInconsistencies(string(models.KindUnsoldListing), len(report.Failed))
	return report, nil
}

// Run repairs on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.Repair(ctx)
			if err != nil {
				slog.Error("reconcile pass failed", "error", err)
				continue
			}
			if len(report.Found) > 0 {
				slog.Warn("reconcile pass repaired listings", "found", len(report.Found), "repaired", len(report.Repaired), "failed", len(report.Failed))
			}
		}
	}
}
