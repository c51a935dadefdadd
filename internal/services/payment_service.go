package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"bike-market/internal/services/gateway"
	"bike-market/internal/status"
	"bike-market/internal/store"
	"bike-market/models"

	"github.com/shopspring/decimal"
)

// minorUnitScale converts a major-unit price into the gateway's minor units.
var minorUnitScale = decimal.NewFromInt(100)

type PaymentService struct {
	db         store.Store
	roles      *RoleService
	gateway    gateway.Gateway
	settlement *SettlementService
	currency   string
}

func NewPaymentService(db store.Store, roles *RoleService, gw gateway.Gateway, settlement *SettlementService, currency string) *PaymentService {
	if currency == "" {
		currency = "thb"
	}
	return &PaymentService{
		db:         db,
		roles:      roles,
		gateway:    gw,
		settlement: settlement,
		currency:   currency,
	}
}

// ToMinorUnits multiplies price by 100. Prices that do not land on a whole
// minor unit are rejected instead of rounded.
func ToMinorUnits(price decimal.Decimal) (int64, error) {
	if !price.IsPositive() {
		return 0, fmt.Errorf("%w: price must be positive", status.ErrInvalidAmount)
	}

	amount := price.Mul(minorUnitScale)
	if !amount.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than two decimal places", status.ErrInvalidAmount, price)
	}
	if amount.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: %s is too large", status.ErrInvalidAmount, price)
	}
	return amount.IntPart(), nil
}

type CreateIntentInput struct {
	Price     decimal.Decimal `json:"price"`
	BookingID string          `json:"bookingId,omitempty"`
}

// CreateIntent opens a gateway charge for the given price. When a booking is
// named, the caller must own it, it must still be unpaid and the price must
// match.
func (s *PaymentService) CreateIntent(ctx context.Context, caller Identity, in CreateIntentInput) (gateway.Intent, error) {
	u, err := s.roles.Authorize(ctx, caller)
	if err != nil {
		return gateway.Intent{}, err
	}

	amount, err := ToMinorUnits(in.Price)
	if err != nil {
		return gateway.Intent{}, err
	}

	req := gateway.IntentRequest{AmountMinor: amount, Currency: s.currency}

	if in.BookingID != "" {
		booking, err := s.ownedBooking(ctx, u, in.BookingID)
		if err != nil {
			return gateway.Intent{}, err
		}
		if booking.Paid {
			return gateway.Intent{}, status.ErrAlreadySettled
		}
		if !decimal.NewFromFloat(booking.Price).Equal(in.Price) {
			return gateway.Intent{}, fmt.Errorf("%w: price does not match booking", status.ErrInvalidAmount)
		}
		req.BookingID = booking.ID
		req.ListingID = booking.ListingID
	}

	intent, err := s.gateway.CreateIntent(ctx, req)
	if err != nil {
		slog.Error("s.gateway.CreateIntent()", "amount", amount, "currency", s.currency, "booking_id", req.BookingID, "error", err)
		return gateway.Intent{}, err
	}
	return intent, nil
}

type SettleInput struct {
	BookingID     string `json:"bookingId"`
	ListingID     string `json:"productId"`
	TransactionID string `json:"transactionId"`
}

// Settle records a client-reported payment. Only the booking's buyer or an
// admin may report it, and the charge is fetched back from the gateway before
// anything is written.
func (s *PaymentService) Settle(ctx context.Context, caller Identity, in SettleInput) (models.SettlementResult, error) {
	u, err := s.roles.Authorize(ctx, caller)
	if err != nil {
		return models.SettlementResult{}, err
	}
	if in.BookingID == "" || in.ListingID == "" || in.TransactionID == "" {
		return models.SettlementResult{}, fmt.Errorf("%w: bookingId, productId and transactionId are required", status.ErrInvalidInput)
	}

	booking, err := s.ownedBooking(ctx, u, in.BookingID)
	if err != nil {
		return models.SettlementResult{}, err
	}

	charge, err := s.gateway.VerifyCharge(ctx, in.TransactionID)
	if err != nil {
		slog.Error("s.gateway.VerifyCharge()", "charge_id", in.TransactionID, "booking_id", in.BookingID, "error", err)
		return models.SettlementResult{}, err
	}
	if err := s.confirmCharge(booking, charge); err != nil {
		slog.Warn("client payment rejected", "charge_id", in.TransactionID, "booking_id", in.BookingID, "error", err)
		return models.SettlementResult{}, err
	}
	return s.settlement.Settle(ctx, in.BookingID, in.ListingID, charge.ID)
}

// HandleGatewayEvent re-reads a webhook event from the gateway and settles
// completed charges. Events that need no action return ok=false. A completed
// charge that does not pay for its booking returns ErrPaymentUnverified.
func (s *PaymentService) HandleGatewayEvent(ctx context.Context, eventID string) (result models.SettlementResult, ok bool, err error) {
	if eventID == "" {
		return result, false, fmt.Errorf("%w: event id is required", status.ErrInvalidInput)
	}

	ev, err := s.gateway.VerifyEvent(ctx, eventID)
	if err != nil {
		return result, false, err
	}

	if ev.Key != "charge.complete" {
		slog.Info("ignoring gateway event", "event_id", eventID, "key", ev.Key)
		return result, false, nil
	}
	if !ev.Successful() {
		slog.Info("charge not successful", "charge_id", ev.ID, "status", ev.Status, "failure_code", ev.FailureCode)
		return result, false, nil
	}
	if ev.BookingID == "" || ev.ListingID == "" {
		slog.Warn("charge has no booking metadata", "charge_id", ev.ID)
		return result, false, nil
	}

	doc, err := s.db.FindByID(ctx, store.Bookings, ev.BookingID)
	if err != nil {
		return result, false, err
	}
	if err := s.confirmCharge(models.BookingFromDocument(doc), ev.Charge); err != nil {
		return result, false, err
	}

	result, err = s.settlement.Settle(ctx, ev.BookingID, ev.ListingID, ev.ID)
	return result, err == nil, err
}

// confirmCharge checks that a gateway charge succeeded and pays the booking's
// full price in the configured currency.
func (s *PaymentService) confirmCharge(booking models.Booking, ch gateway.Charge) error {
	if !ch.Successful() {
		return fmt.Errorf("%w: charge %s is %s", status.ErrPaymentUnverified, ch.ID, ch.Status)
	}
	if ch.BookingID != booking.ID || ch.ListingID != booking.ListingID {
		return fmt.Errorf("%w: charge %s was opened for booking %q listing %q", status.ErrPaymentUnverified, ch.ID, ch.BookingID, ch.ListingID)
	}

	want, err := ToMinorUnits(decimal.NewFromFloat(booking.Price))
	if err != nil {
		return err
	}
	if ch.AmountMinor != want || !strings.EqualFold(ch.Currency, s.currency) {
		return fmt.Errorf("%w: charge %s is %d %s, booking needs %d %s", status.ErrPaymentUnverified, ch.ID, ch.AmountMinor, ch.Currency, want, s.currency)
	}
	return nil
}

func (s *PaymentService) ownedBooking(ctx context.Context, u models.User, bookingID string) (models.Booking, error) {
	doc, err := s.db.FindByID(ctx, store.Bookings, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	booking := models.BookingFromDocument(doc)
	if booking.BuyerEmail != u.Email && u.Role != models.RoleAdmin {
		return models.Booking{}, status.ErrForbidden
	}
	return booking, nil
}
