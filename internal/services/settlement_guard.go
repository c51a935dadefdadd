package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SettlementGuard short-circuits concurrent duplicate settlements of one
// booking before any write happens. The store compare-and-set stays
// authoritative; the guard only saves the duplicate from appending a payment
// record.
type SettlementGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

const defaultGuardTTL = 2 * time.Minute

func NewSettlementGuard(redisClient *redis.Client, ttl time.Duration) *SettlementGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &SettlementGuard{redis: redisClient, ttl: ttl}
}

func settlementKey(bookingID string) string {
	return fmt.Sprintf("settlement:lock:%s", bookingID)
}

// Acquire reports whether the caller holds the guard for bookingID. A Redis
// error is returned with acquired=false and the caller decides.
func (g *SettlementGuard) Acquire(ctx context.Context, bookingID, transactionID string) (bool, error) {
	if g == nil || g.redis == nil {
		return true, nil
	}
	return g.redis.SetNX(ctx, settlementKey(bookingID), transactionID, g.ttl).Result()
}

func (g *SettlementGuard) Release(ctx context.Context, bookingID string) error {
	if g == nil || g.redis == nil {
		return nil
	}
	return g.redis.Del(ctx, settlementKey(bookingID)).Err()
}
