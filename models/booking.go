package models

import "github.com/spf13/cast"

type Booking struct {
	ID            string  `json:"id"`
	BuyerEmail    string  `json:"email"`
	ListingID     string  `json:"productId"`
	ListingTitle  string  `json:"productName,omitempty"`
	SellerEmail   string  `json:"sellerEmail,omitempty"`
	Price         float64 `json:"price"`
	Paid          bool    `json:"paid"`
	TransactionID string  `json:"transactionId,omitempty"`
	Created       string  `json:"created,omitempty"`
	Updated       string  `json:"updated,omitempty"`
}

func BookingFromDocument(doc map[string]any) Booking {
	return Booking{
		ID:            cast.ToString(doc["id"]),
		BuyerEmail:    cast.ToString(doc["buyer_email"]),
		ListingID:     cast.ToString(doc["listing_id"]),
		ListingTitle:  cast.ToString(doc["listing_title"]),
		SellerEmail:   cast.ToString(doc["seller_email"]),
		Price:         cast.ToFloat64(doc["price"]),
		Paid:          cast.ToBool(doc["paid"]),
		TransactionID: cast.ToString(doc["transaction_id"]),
		Created:       cast.ToString(doc["created"]),
		Updated:       cast.ToString(doc["updated"]),
	}
}

func (b Booking) Document() map[string]any {
	return map[string]any{
		"buyer_email":    b.BuyerEmail,
		"listing_id":     b.ListingID,
		"listing_title":  b.ListingTitle,
		"seller_email":   b.SellerEmail,
		"price":          b.Price,
		"paid":           b.Paid,
		"transaction_id": b.TransactionID,
	}
}
