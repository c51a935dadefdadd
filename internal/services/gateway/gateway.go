package gateway

import "context"

// Provider names a payment processor.
type Provider string

const (
	ProviderOmise Provider = "omise"
)

// IntentRequest asks the processor to open a charge for a fixed amount in
// minor units (satang, cents).
type IntentRequest struct {
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	BookingID   string `json:"booking_id,omitempty"`
	ListingID   string `json:"listing_id,omitempty"`
}

// Intent is what the client needs to complete payment.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	AuthorizeURI string `json:"authorizeUri,omitempty"`
}

const (
	ChargeSuccessful = "successful"
	ChargeFailed     = "failed"
	ChargePending    = "pending"
)

// Charge is a processor charge as the processor reports it.
type Charge struct {
	ID          string
	Status      string
	AmountMinor int64
	Currency    string
	BookingID   string
	ListingID   string
	FailureCode string
}

func (c Charge) Successful() bool {
	return c.Status == ChargeSuccessful
}

// ChargeEvent is a processor notification re-read from the processor, never
// trusted from the inbound request body.
type ChargeEvent struct {
	Key string
	Charge
}

// Gateway is implemented by every payment processor adapter.
type Gateway interface {
	Provider() Provider

	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)

	// VerifyEvent fetches the event by id from the processor.
	VerifyEvent(ctx context.Context, eventID string) (ChargeEvent, error)

	// VerifyCharge fetches the charge by id from the processor.
	VerifyCharge(ctx context.Context, chargeID string) (Charge, error)

	Close(ctx context.Context) error
}
