// Package resilience paces broker reconnect attempts so a down broker
// cannot busy-loop the owning subscriber. It wraps github.com/sony/gobreaker
// directly rather than hand-rolling a parallel state machine.
package resilience

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker guards a broker's connect attempts. While open, Guard returns
// gobreaker's open-state error immediately instead of invoking the connect
// function. A Warn is logged when the breaker transitions to open; other
// state transitions are logged at Info.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a Breaker named for the broker it guards. After
// failureThreshold consecutive failures the breaker opens for timeout
// before allowing a single trial request through (half-open).
func New(brokerName string, failureThreshold uint32, timeout time.Duration, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        "broker-" + brokerName,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			if to == gobreaker.StateOpen {
				logger.Warn("circuit breaker open, pausing reconnect attempts",
					zap.String("breaker", name), zap.String("from", from.String()))
			} else {
				logger.Info("circuit breaker state change",
					zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
			}
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Guard runs fn under the breaker. While the breaker is open it returns the
// breaker's own error without invoking fn at all.
func (b *Breaker) Guard(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State reports the breaker's current state, for diagnostics.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
