package models

import "github.com/spf13/cast"

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingSold      ListingStatus = "sold"
)

type Bike struct {
	ID          string        `json:"id"`
	OwnerEmail  string        `json:"email"`
	Title       string        `json:"title"`
	Category    string        `json:"category"`
	Description string        `json:"description,omitempty"`
	ImageURL    string        `json:"image,omitempty"`
	Location    string        `json:"location,omitempty"`
	Price       float64       `json:"price"`
	Status      ListingStatus `json:"status"`
	Advertised  bool          `json:"advertised,omitempty"` // true or absent
	// SoldBookingID is the booking whose settlement marked the listing sold.
	SoldBookingID string `json:"soldBookingId,omitempty"`
	Created       string `json:"created,omitempty"`
	Updated       string `json:"updated,omitempty"`
}

func (b Bike) Available() bool {
	return b.Status == ListingAvailable
}

func BikeFromDocument(doc map[string]any) Bike {
	return Bike{
		ID:            cast.ToString(doc["id"]),
		OwnerEmail:    cast.ToString(doc["owner_email"]),
		Title:         cast.ToString(doc["title"]),
		Category:      cast.ToString(doc["category"]),
		Description:   cast.ToString(doc["description"]),
		ImageURL:      cast.ToString(doc["image_url"]),
		Location:      cast.ToString(doc["location"]),
		Price:         cast.ToFloat64(doc["price"]),
		Status:        ListingStatus(cast.ToString(doc["status"])),
		Advertised:    cast.ToBool(doc["advertised"]),
		SoldBookingID: cast.ToString(doc["sold_booking_id"]),
		Created:       cast.ToString(doc["created"]),
		Updated:       cast.ToString(doc["updated"]),
	}
}

// Document returns the persisted fields of b; id and timestamps are owned by the store.
func (b Bike) Document() map[string]any {
	return map[string]any{
		"owner_email":     b.OwnerEmail,
		"title":           b.Title,
		"category":        b.Category,
		"description":     b.Description,
		"image_url":       b.ImageURL,
		"location":        b.Location,
		"price":           b.Price,
		"status":          string(b.Status),
		"advertised":      b.Advertised,
		"sold_booking_id": b.SoldBookingID,
	}
}
