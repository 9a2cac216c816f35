package biometric

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/pkg/logger"
)

func authTestConfig() config.BiometricConfig {
	return config.BiometricConfig{
		SimulationDelay:   time.Millisecond,
		SimulationSuccess: 0.95,
		BreakerFailures:   3,
		BreakerTimeout:    time.Minute,
	}
}

type stubCapability struct {
	result bool
	err    error
	calls  int
}

func (c *stubCapability) Register(context.Context, string, string) (bool, error) {
	c.calls++
	return c.result, c.err
}

func (c *stubCapability) Authenticate(context.Context, string) (bool, error) {
	c.calls++
	return c.result, c.err
}

func TestAuthenticateWithoutCapabilitySimulates(t *testing.T) {
	a := NewAuthenticator(nil, authTestConfig(), fixedRand{0.5}, logger.NewNop())

	ok, err := a.Authenticate(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSimulationFailsAboveSuccessProbability(t *testing.T) {
	a := NewAuthenticator(nil, authTestConfig(), fixedRand{0.99}, logger.NewNop())

	ok, err := a.Authenticate(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSimulationHonorsContextCancellation(t *testing.T) {
	cfg := authTestConfig()
	cfg.SimulationDelay = time.Minute
	a := NewAuthenticator(nil, cfg, fixedRand{0.5}, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	ok, err := a.Authenticate(ctx, "u1")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthenticateUsesCapabilityWhenHealthy(t *testing.T) {
	cap := &stubCapability{result: true}
	a := NewAuthenticator(cap, authTestConfig(), fixedRand{0.99}, logger.NewNop())

	ok, err := a.Authenticate(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, cap.calls)
}

func TestCapabilityFailureFallsBackToSimulation(t *testing.T) {
	cap := &stubCapability{err: errors.New("sensor offline")}
	a := NewAuthenticator(cap, authTestConfig(), fixedRand{0.0}, logger.NewNop())

	ok, err := a.Authenticate(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cap := &stubCapability{err: errors.New("sensor offline")}
	a := NewAuthenticator(cap, authTestConfig(), fixedRand{0.0}, logger.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := a.Authenticate(ctx, "u1")
		require.NoError(t, err)
	}

	// The breaker tripped after three consecutive failures; later calls
	// go straight to simulation without touching the capability.
	assert.Equal(t, 3, cap.calls)
}

func TestRegisterWithoutCapabilitySimulates(t *testing.T) {
	a := NewAuthenticator(nil, authTestConfig(), fixedRand{0.0}, logger.NewNop())

	ok, err := a.Register(context.Background(), "u1", "User One")
	require.NoError(t, err)
	assert.True(t, ok)
}
