package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bike-market/internal/status"
	"bike-market/monitoring"
	"bike-market/utils"
)

// Factory builds a gateway for a provider from its config.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(provider Provider, config any) (Gateway, error) {
	switch provider {
	case ProviderOmise:
		cfg, ok := config.(*OmiseConfig)
		if !ok {
			return nil, fmt.Errorf("invalid omise config type, expected *gateway.OmiseConfig")
		}
		return NewOmiseAdapter(cfg)
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", provider)
	}
}

var breakerSettings = utils.BreakerSettings{
	MaxRequests:  1,
	MinRequests:  5,
	Interval:     time.Minute,
	Timeout:      30 * time.Second,
	FailureRatio: 0.6,
	// a rejected amount or unknown charge is the caller's fault, not the processor's
	IsSuccessful: func(err error) bool {
		return err == nil || errors.Is(err, status.ErrInvalidAmount) || errors.Is(err, status.ErrPaymentUnverified)
	},
	OnStateChange: func(name string, from, to utils.State) {
		slog.Warn("payment gateway breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		monitoring.SetBreakerState(name, to)
	},
}

// Registry holds the configured gateways and routes calls to the primary one
// through a per-provider circuit breaker. It satisfies Gateway itself.
type Registry struct {
	mu       sync.RWMutex
	gateways map[Provider]Gateway
	breakers map[Provider]*utils.CircuitBreaker
	primary  Provider
}

func NewRegistry() *Registry {
	return &Registry{
		gateways: make(map[Provider]Gateway),
		breakers: make(map[Provider]*utils.CircuitBreaker),
	}
}

// Register adds g; the first registered gateway becomes primary.
func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := g.Provider()
	r.gateways[p] = g
	r.breakers[p] = utils.NewCircuitBreakerWithSettings(string(p), breakerSettings)
	monitoring.SetBreakerState(string(p), utils.StateClosed)
	if r.primary == "" {
		r.primary = p
	}
}

func (r *Registry) SetPrimary(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.gateways[p]; !ok {
		return fmt.Errorf("payment provider %s not registered", p)
	}
	r.primary = p
	return nil
}

func (r *Registry) active() (Gateway, *utils.CircuitBreaker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gateways[r.primary]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no payment provider configured", status.ErrGatewayUnavailable)
	}
	return g, r.breakers[r.primary], nil
}

func (r *Registry) Provider() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primary
}

func (r *Registry) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	g, cb, err := r.active()
	if err != nil {
		return Intent{}, err
	}

	res, err := cb.Execute(ctx, func() (any, error) {
		return g.CreateIntent(ctx, req)
	})
	monitoring.TrackGatewayCall("create_intent", outcome(err))
	if err != nil {
		return Intent{}, breakerError(err)
	}
	return res.(Intent), nil
}

func (r *Registry) VerifyEvent(ctx context.Context, eventID string) (ChargeEvent, error) {
	g, cb, err := r.active()
	if err != nil {
		return ChargeEvent{}, err
	}

	res, err := cb.Execute(ctx, func() (any, error) {
		return g.VerifyEvent(ctx, eventID)
	})
	monitoring.TrackGatewayCall("verify_event", outcome(err))
	if err != nil {
		return ChargeEvent{}, breakerError(err)
	}
	return res.(ChargeEvent), nil
}

func (r *Registry) VerifyCharge(ctx context.Context, chargeID string) (Charge, error) {
	g, cb, err := r.active()
	if err != nil {
		return Charge{}, err
	}

	res, err := cb.Execute(ctx, func() (any, error) {
		return g.VerifyCharge(ctx, chargeID)
	})
	monitoring.TrackGatewayCall("verify_charge", outcome(err))
	if err != nil {
		return Charge{}, breakerError(err)
	}
	return res.(Charge), nil
}

func (r *Registry) Close(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for p, g := range r.gateways {
		if err := g.Close(ctx); err != nil {
			slog.Error("failed to close payment gateway", "provider", p, "error", err)
		}
	}
	return nil
}

// breakerError keeps adapter errors intact and reports a tripped breaker as
// the gateway being unavailable.
func breakerError(err error) error {
	if errors.Is(err, status.ErrGatewayUnavailable) || errors.Is(err, status.ErrInvalidAmount) || errors.Is(err, status.ErrPaymentUnverified) {
		return err
	}
	if errors.Is(err, utils.ErrCircuitOpen) || errors.Is(err, utils.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", status.ErrGatewayUnavailable, err)
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, utils.ErrCircuitOpen), errors.Is(err, utils.ErrTooManyRequests):
		return "rejected"
	case errors.Is(err, status.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, status.ErrPaymentUnverified):
		return "unverified"
	}
	return "error"
}
