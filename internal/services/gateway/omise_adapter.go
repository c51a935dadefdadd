package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bike-market/internal/status"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/spf13/cast"
)

type OmiseConfig struct {
	PublicKey  string
	SecretKey  string
	SourceType string // promptpay, truemoney, ...
}

// OmiseAdapter opens a source-backed charge per intent so the confirmation
// webhook carries the booking and listing ids back in the charge metadata.
type OmiseAdapter struct {
	client     *omise.Client
	sourceType string
}

func NewOmiseAdapter(cfg *OmiseConfig) (*OmiseAdapter, error) {
	c, err := omise.NewClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create omise client: %w", err)
	}
	c.SetDebug(false)

	sourceType := cfg.SourceType
	if sourceType == "" {
		sourceType = "promptpay"
	}
	return &OmiseAdapter{client: c, sourceType: sourceType}, nil
}

func (o *OmiseAdapter) Provider() Provider {
	return ProviderOmise
}

func (o *OmiseAdapter) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if req.AmountMinor <= 0 {
		return Intent{}, status.ErrInvalidAmount
	}
	currency := strings.ToLower(req.Currency)

	source := &omise.Source{}
	if err := o.client.Do(source, &operations.CreateSource{
		Type:     o.sourceType,
		Amount:   req.AmountMinor,
		Currency: currency,
	}); err != nil {
		return Intent{}, mapOmiseError(err)
	}

	metadata := map[string]any{}
	if req.BookingID != "" {
		metadata["booking_id"] = req.BookingID
	}
	if req.ListingID != "" {
		metadata["listing_id"] = req.ListingID
	}

	charge := &omise.Charge{}
	if err := o.client.Do(charge, &operations.CreateCharge{
		Amount:   req.AmountMinor,
		Currency: currency,
		Source:   source.ID,
		Metadata: metadata,
	}); err != nil {
		return Intent{}, mapOmiseError(err)
	}

	return Intent{
		ID:           charge.ID,
		ClientSecret: source.ID,
		AuthorizeURI: charge.AuthorizeURI,
	}, nil
}

func (o *OmiseAdapter) VerifyEvent(ctx context.Context, eventID string) (ChargeEvent, error) {
	ev := &omise.Event{}
	if err := o.client.Do(ev, &operations.RetrieveEvent{EventID: eventID}); err != nil {
		return ChargeEvent{}, mapOmiseError(err)
	}

	out := ChargeEvent{Key: ev.Key}
	if !strings.HasPrefix(ev.Key, "charge.") {
		return out, nil
	}

	// ev.Data is an untyped map; round-trip it into a Charge
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return ChargeEvent{}, err
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return ChargeEvent{}, err
	}

	out.Charge = chargeFromOmise(&ch)
	return out, nil
}

func (o *OmiseAdapter) VerifyCharge(ctx context.Context, chargeID string) (Charge, error) {
	ch := &omise.Charge{}
	if err := o.client.Do(ch, &operations.RetrieveCharge{ChargeID: chargeID}); err != nil {
		return Charge{}, mapOmiseError(err)
	}
	return chargeFromOmise(ch), nil
}

func chargeFromOmise(ch *omise.Charge) Charge {
	out := Charge{
		ID:          ch.ID,
		Status:      string(ch.Status),
		AmountMinor: ch.Amount,
		Currency:    strings.ToLower(ch.Currency),
		BookingID:   cast.ToString(ch.Metadata["booking_id"]),
		ListingID:   cast.ToString(ch.Metadata["listing_id"]),
	}
	if ch.FailureCode != nil {
		out.FailureCode = *ch.FailureCode
	}
	return out
}

func (o *OmiseAdapter) Close(ctx context.Context) error {
	// omise client holds no connections
	return nil
}

// mapOmiseError folds processor errors into InvalidAmount or GatewayUnavailable.
func mapOmiseError(err error) error {
	var resp *omise.Error
	if errors.As(err, &resp) {
		if strings.Contains(resp.Code, "amount") || strings.Contains(strings.ToLower(resp.Message), "amount") {
			return fmt.Errorf("%w: %s", status.ErrInvalidAmount, resp.Message)
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", status.ErrPaymentUnverified, resp.Message)
		}
		return fmt.Errorf("%w: omise %d %s: %s", status.ErrGatewayUnavailable, resp.StatusCode, resp.Code, resp.Message)
	}
	return fmt.Errorf("%w: %v", status.ErrGatewayUnavailable, err)
}
