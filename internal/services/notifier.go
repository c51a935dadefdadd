package services

import (
	"context"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"
)

// AdminChannel receives alerts that need an operator, such as partial
// settlements.
const AdminChannel = "admin-alerts"

// Notifier pushes realtime messages to connected clients.
type Notifier interface {
	Notify(ctx context.Context, channel string, message map[string]any) error
}

// UserChannel is the per-user realtime channel.
func UserChannel(email string) string {
	return fmt.Sprintf("user-%s", email)
}

type PubNubNotifier struct {
	pn *pubnub.PubNub
}

func NewPubNubNotifier(publishKey, subscribeKey, secretKey, userID string) *PubNubNotifier {
	cfg := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	cfg.PublishKey = publishKey
	cfg.SubscribeKey = subscribeKey
	cfg.SecretKey = secretKey

	return &PubNubNotifier{pn: pubnub.NewPubNub(cfg)}
}

func (n *PubNubNotifier) Notify(ctx context.Context, channel string, message map[string]any) error {
	_, st, err := n.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("pubnub publish failed", "channel", channel, "status", st.StatusCode, "error", err)
		return err
	}
	return nil
}

// NopNotifier is used when no realtime keys are configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, map[string]any) error { return nil }
