package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(SettlementCompleted, map[string]string{"booking_id": "bk1"})

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, SettlementCompleted, env.Event)
	assert.Equal(t, 1, env.Version)

	_, err := time.Parse(time.RFC3339, env.OccurredAt)
	assert.NoError(t, err)

	other := NewEnvelope(SettlementCompleted, nil)
	assert.NotEqual(t, env.ID, other.ID)
}

func TestEnvelope_WireFormat(t *testing.T) {
	env := NewEnvelope(SettlementPartial, map[string]string{"listing_id": "b1"})

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "settlement.partial", decoded["event"])
	assert.Equal(t, "b1", decoded["data"].(map[string]any)["listing_id"])
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewEnvelope(SettlementCompleted, nil)))
	assert.NoError(t, p.Close())
}
