package biometric

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
)

// PlatformCapability is the WebAuthn-equivalent hardware capability.
// Implementations live outside the core; nil means no capability is
// present on this device.
type PlatformCapability interface {
	Register(ctx context.Context, userID, displayName string) (bool, error)
	Authenticate(ctx context.Context, userID string) (bool, error)
}

// Authenticator wraps the platform capability behind a circuit breaker
// and guarantees the fallback contract: when the capability is missing,
// failing, or the breaker is open, a simulation path returns a bool
// outcome with a fixed high success probability after a fixed delay.
// Same signature, same caller expectations, never fatal.
type Authenticator struct {
	capability PlatformCapability
	breaker    *gobreaker.CircuitBreaker
	cfg        config.BiometricConfig
	rng        RandomSource
	log        *logger.Logger
}

// NewAuthenticator creates an authenticator. capability may be nil, in
// which case every call takes the simulation path.
func NewAuthenticator(capability PlatformCapability, cfg config.BiometricConfig, rng RandomSource, log *logger.Logger) *Authenticator {
	settings := gobreaker.Settings{
		Name:    "platform-authenticator",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("authenticator circuit breaker state changed",
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()),
			)
		},
	}

	return &Authenticator{
		capability: capability,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		cfg:        cfg,
		rng:        rng,
		log:        log.Named("authenticator"),
	}
}

// Register registers a platform credential for the user, or simulates
// registration when the capability is unavailable.
func (a *Authenticator) Register(ctx context.Context, userID, displayName string) (bool, error) {
	return a.call(ctx, userID, func(ctx context.Context) (bool, error) {
		return a.capability.Register(ctx, userID, displayName)
	})
}

// Authenticate verifies the user with the platform credential, or
// simulates the ceremony when the capability is unavailable.
func (a *Authenticator) Authenticate(ctx context.Context, userID string) (bool, error) {
	return a.call(ctx, userID, func(ctx context.Context) (bool, error) {
		return a.capability.Authenticate(ctx, userID)
	})
}

func (a *Authenticator) call(ctx context.Context, userID string, op func(context.Context) (bool, error)) (bool, error) {
	if a.capability == nil {
		a.log.AuthenticatorFallback(userID, domain.ErrCapabilityUnavailable.Error())
		return a.simulate(ctx)
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return op(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			a.log.AuthenticatorFallback(userID, "circuit breaker open")
		} else {
			a.log.AuthenticatorFallback(userID, err.Error())
		}
		return a.simulate(ctx)
	}
	return result.(bool), nil
}

// simulate models the platform ceremony: a fixed delay, then success
// with the configured probability (reference: 95% after 2s).
func (a *Authenticator) simulate(ctx context.Context) (bool, error) {
	select {
	case <-time.After(a.cfg.SimulationDelay):
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return a.rng.Float64() < a.cfg.SimulationSuccess, nil
}
