package source

import (
	"errors"
	"sync"
	"time"
)

// errBreakerOpen is returned by Allow while the breaker rejects requests.
var errBreakerOpen = errors.New("circuit breaker is open")

// breakerState represents the current state of a circuit breaker.
type breakerState int

const (
	// breakerClosed allows all requests through. Failures are counted.
	breakerClosed breakerState = iota
	// breakerOpen rejects all requests immediately.
	breakerOpen
	// breakerHalfOpen allows probe requests through.
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// circuitBreaker guards one upstream service: Closed -> Open on consecutive
// failures, Open -> HalfOpen after the timeout, HalfOpen -> Closed after
// enough successful probes. Safe for concurrent use.
type circuitBreaker struct {
	mu               sync.Mutex
	state            breakerState
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	openedAt         time.Time
}

// newCircuitBreaker creates a breaker with the given thresholds. Values
// below one fall back to defaults.
func newCircuitBreaker(failureThreshold, successThreshold int, timeout time.Duration) *circuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 5
	}
	if successThreshold < 1 {
		successThreshold = 2
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &circuitBreaker{
		state:            breakerClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
	}
}

// allow checks whether a request should be let through. Returns
// errBreakerOpen while the circuit is open.
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerOpen:
		if time.Since(cb.openedAt) > cb.timeout {
			cb.state = breakerHalfOpen
			cb.successes = 0
			return nil
		}
		return errBreakerOpen
	default:
		return nil
	}
}

// currentState reports the breaker's state at this instant.
func (cb *circuitBreaker) currentState() breakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// recordSuccess records a successful request.
func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerClosed:
		cb.failures = 0
	case breakerHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = breakerClosed
			cb.failures = 0
			cb.successes = 0
		}
	}
}

// recordFailure records a failed request.
func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = breakerOpen
			cb.openedAt = time.Now()
		}
	case breakerHalfOpen:
		// Any failure in half-open immediately reopens.
		cb.state = breakerOpen
		cb.openedAt = time.Now()
		cb.successes = 0
	}
}
