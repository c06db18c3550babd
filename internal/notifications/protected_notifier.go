package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type circuitState string

const (
	stateClosed   circuitState = "closed"
	stateOpen     circuitState = "open"
	stateHalfOpen circuitState = "half_open"
)

type ProtectedNotifierConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // trial calls allowed while half-open
}

// ProtectedNotifier wraps a Notifier with a per-call timeout and a circuit
// breaker.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               circuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedNotifier{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: stateClosed,
	}
}

// State reports the breaker position, mostly for health output.
func (n *ProtectedNotifier) State() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return string(n.state)
}

func (n *ProtectedNotifier) SendOrderConfirmation(ctx context.Context, input OrderConfirmationInput) error {
	if !n.allowRequest() {
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := n.inner.SendOrderConfirmation(sendCtx, input)
	n.afterRequest(err)

	return err
}

func (n *ProtectedNotifier) allowRequest() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case stateOpen:
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			return false
		}
		n.state = stateHalfOpen
		n.halfOpenInFlight = 1
		return true
	case stateHalfOpen:
		if n.halfOpenInFlight >= n.cfg.HalfOpenMaxCalls {
			return false
		}
		n.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (n *ProtectedNotifier) afterRequest(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == stateHalfOpen && n.halfOpenInFlight > 0 {
		n.halfOpenInFlight--
	}

	if err == nil {
		n.consecutiveFailures = 0
		n.state = stateClosed
		return
	}

	n.consecutiveFailures++

	// a failed trial reopens immediately
	if n.state == stateHalfOpen || n.consecutiveFailures >= n.cfg.FailureThreshold {
		n.state = stateOpen
		n.openedAt = n.now()
	}
}
