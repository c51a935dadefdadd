package status

import "errors"

var (
	ErrUnauthenticated    = errors.New("auth: missing or invalid credential")
	ErrForbidden          = errors.New("auth: insufficient role")
	ErrNotFound           = errors.New("store: record not found")
	ErrAlreadySettled     = errors.New("settlement: already settled")
	ErrPartialSettlement  = errors.New("settlement: booking paid but listing not marked sold")
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	ErrInvalidAmount      = errors.New("payment: invalid amount")
	ErrPaymentUnverified  = errors.New("payment: charge not confirmed by gateway")
	ErrListingMismatch    = errors.New("booking: listing reference mismatch")
	ErrInvalidRole        = errors.New("user: invalid role")
	ErrInvalidInput       = errors.New("request: invalid input")
)
