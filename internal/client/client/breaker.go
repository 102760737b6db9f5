package client

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

const (
	defaultBreakerTimeout      = 30 * time.Second
	defaultBreakerMinRequests  = 5
	defaultBreakerFailureRatio = 0.6
	breakerInterval            = 60 * time.Second
)

// newBreaker trips once at least MinRequests calls were seen in the current
// interval and the failure ratio reached FailureRatio. Only transport errors
// and 5xx answers count as failures; a 4xx is a healthy server saying no.
func newBreaker(opts Options, log logging.Logger) *gobreaker.CircuitBreaker {
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}
	minRequests := opts.BreakerMinRequests
	if minRequests == 0 {
		minRequests = defaultBreakerMinRequests
	}
	ratio := opts.BreakerFailureRatio
	if ratio <= 0 || ratio > 1 {
		ratio = defaultBreakerFailureRatio
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-store",
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}
