// Package store is the document-store boundary shared by every service: records
// are addressed by collection name and filtered by field equality.
package store

import (
	"context"

	"bike-market/internal/status"
)

// Collection names.
const (
	Users    = "members"
	Bikes    = "bikes"
	Bookings = "bookings"
	Payments = "payments"
)

var ErrNotFound = status.ErrNotFound

type Document map[string]any

// Filter matches documents whose fields equal every given value.
type Filter map[string]any

type Store interface {
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	FindByID(ctx context.Context, collection, id string) (Document, error)
	Find(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Update applies set to every document matching filter in a single
	// conditional write and reports how many documents matched.
	Update(ctx context.Context, collection string, filter Filter, set Document) (int64, error)

	Delete(ctx context.Context, collection string, filter Filter) (int64, error)
}
