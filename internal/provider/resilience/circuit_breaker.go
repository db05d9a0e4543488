// Package resilience wraps provider HTTP calls in a circuit breaker with
// retries and tracks provider health for the ops endpoints.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker of a Client.
type BreakerConfig struct {
	// HalfOpenRequests is how many probes pass while half-open. Default 1.
	HalfOpenRequests uint32

	// OpenFor is how long the breaker stays open. Default 60s.
	OpenFor time.Duration

	// Trip decides when a closed breaker opens. Default TripOnFailureRatio(5, 0.5).
	Trip func(counts gobreaker.Counts) bool
}

// TripOnFailureRatio opens the breaker once at least minRequests were made
// and the failure ratio reaches ratio.
func TripOnFailureRatio(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool {
		if c.Requests < minRequests || c.Requests == 0 {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= ratio
	}
}

func newBreaker[T any](name string, cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.OpenFor == 0 {
		cfg.OpenFor = 60 * time.Second
	}
	if cfg.Trip == nil {
		cfg.Trip = TripOnFailureRatio(5, 0.5)
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: cfg.Trip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit breaker state changed")
		},
	})
}
