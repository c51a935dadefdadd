package monitoring

import (
	"context"
	"log/slog"
	"time"

	"bike-market/internal/store"
	"bike-market/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)

	settlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Duration of settlement attempts",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	settlementInconsistencies = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "settlement_inconsistencies",
			Help: "Paid bookings left inconsistent by settlement, by kind, as of the last reconcile pass",
		},
		[]string{"kind"},
	)

	authzDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denials_total",
			Help: "Requests rejected at the auth boundary",
		},
		[]string{"route", "reason"},
	)

	gatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Payment gateway calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	gatewayBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payment_gateway_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"reason"},
	)

	listingsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "listings_total",
			Help: "Listings per status",
		},
		[]string{"status"},
	)

	unpaidBookings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "unpaid_bookings_total",
			Help: "Bookings waiting for payment",
		},
	)

	redisUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "redis_up",
			Help: "1 when the last Redis health check passed",
		},
	)
)

func TrackSettlement(outcome string, d time.Duration) {
	settlements.WithLabelValues(outcome).Inc()
	settlementDuration.Observe(d.Seconds())
}

func SetInconsistencies(kind string, n int) {
	settlementInconsistencies.WithLabelValues(kind).Set(float64(n))
}

func TrackAuthzDenial(route, reason string) {
	authzDenials.WithLabelValues(route, reason).Inc()
}

func TrackGatewayCall(operation, outcome string) {
	gatewayCalls.WithLabelValues(operation, outcome).Inc()
}

func SetBreakerState(provider string, state utils.State) {
	gatewayBreakerState.WithLabelValues(provider).Set(float64(state))
}

func TrackRateLimited(reason string) {
	rateLimited.WithLabelValues(reason).Inc()
}

// Monitor periodically samples store and Redis state into gauges.
type Monitor struct {
	db    store.Store
	redis *redis.Client
}

func NewMonitor(db store.Store, redisClient *redis.Client) *Monitor {
	return &Monitor{db: db, redis: redisClient}
}

func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collect(ctx context.Context) {
	for _, st := range []string{"available", "sold"} {
		docs, err := m.db.Find(ctx, store.Bikes, store.Filter{"status": st})
		if err != nil {
			slog.Error("monitor: failed to count listings", "status", st, "error", err)
			continue
		}
		listingsGauge.WithLabelValues(st).Set(float64(len(docs)))
	}

	docs, err := m.db.Find(ctx, store.Bookings, store.Filter{"paid": false})
	if err != nil {
		slog.Error("monitor: failed to count bookings", "error", err)
	} else {
		unpaidBookings.Set(float64(len(docs)))
	}

	if m.redis == nil {
		return
	}
	if err := utils.RedisHealthCheck(m.redis); err != nil {
		redisUp.Set(0)
		return
	}
	redisUp.Set(1)
}
