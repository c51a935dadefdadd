package models

import "github.com/spf13/cast"

// Payment is the append-only record of a confirmed gateway charge.
type Payment struct {
	ID            string  `json:"id"`
	BookingID     string  `json:"bookingId"`
	ListingID     string  `json:"productId"`
	TransactionID string  `json:"transactionId"`
	BuyerEmail    string  `json:"email,omitempty"`
	Price         float64 `json:"price,omitempty"`
	Created       string  `json:"created,omitempty"`
}

func PaymentFromDocument(doc map[string]any) Payment {
	return Payment{
		ID:            cast.ToString(doc["id"]),
		BookingID:     cast.ToString(doc["booking_id"]),
		ListingID:     cast.ToString(doc["listing_id"]),
		TransactionID: cast.ToString(doc["transaction_id"]),
		BuyerEmail:    cast.ToString(doc["buyer_email"]),
		Price:         cast.ToFloat64(doc["price"]),
		Created:       cast.ToString(doc["created"]),
	}
}

func (p Payment) Document() map[string]any {
	return map[string]any{
		"booking_id":     p.BookingID,
		"listing_id":     p.ListingID,
		"transaction_id": p.TransactionID,
		"buyer_email":    p.BuyerEmail,
		"price":          p.Price,
	}
}

type SettlementStatus string

const (
	SettlementCompleted SettlementStatus = "completed"
	SettlementPartial   SettlementStatus = "partial"
)

// SettlementResult is returned to the caller of a settlement attempt.
type SettlementResult struct {
	PaymentID     string           `json:"paymentId"`
	BookingID     string           `json:"bookingId"`
	ListingID     string           `json:"productId"`
	TransactionID string           `json:"transactionId"`
	Status        SettlementStatus `json:"status"`
}
