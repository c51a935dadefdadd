// Package events publishes settlement outcomes to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	SettlementCompleted  = "settlement.completed"
	SettlementPartial    = "settlement.partial"
	SettlementRepaired   = "settlement.repaired"
	SettlementDoubleSale = "settlement.double_sale"
)

type Envelope struct {
	ID         string `json:"id"`
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"` // RFC3339
	Data       any    `json:"data"`
}

func NewEnvelope(event string, data any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Event:      event,
		Version:    1,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }
func (NopPublisher) Close() error                            { return nil }
