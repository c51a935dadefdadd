package models

import "time"

type InconsistencyKind string

const (
	// KindUnsoldListing is a paid booking whose listing was never marked
	// sold. The reconciler repairs it.
	KindUnsoldListing InconsistencyKind = "unsold_listing"
	// KindDoubleSale is a paid booking for a listing that was sold to a
	// different booking. The buyer needs a refund; it is never auto-repaired.
	KindDoubleSale InconsistencyKind = "double_sale"
)

type Inconsistency struct {
	Kind          InconsistencyKind `json:"kind"`
	BookingID     string            `json:"bookingId"`
	ListingID     string            `json:"productId"`
	TransactionID string            `json:"transactionId"`
	ListingStatus ListingStatus     `json:"listingStatus"`
	SoldBookingID string            `json:"soldBookingId,omitempty"`
}

type ReconcileReport struct {
	Found        []Inconsistency `json:"found"`
	Repaired     []string        `json:"repaired,omitempty"` // listing ids
	Failed       []string        `json:"failed,omitempty"`
	RefundNeeded []string        `json:"refundNeeded,omitempty"` // booking ids
	CheckedAt    time.Time       `json:"checkedAt"`
}
