package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrRequestTimeout is returned when a request times out
	ErrRequestTimeout = errors.New("request timeout")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Circuit is closed, requests allowed
	StateOpen                  // Circuit is open, requests blocked
	StateHalfOpen              // Circuit is half-open, limited requests allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// fromGobreakerState maps gobreaker's own state enum (whose iota order
// differs from ours) onto State.
func fromGobreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Config represents circuit breaker configuration
type Config struct {
	FailureThreshold int           // Consecutive failures to open circuit
	SuccessThreshold int           // Consecutive successes in half-open to close circuit
	Timeout          time.Duration // Time to wait before transitioning to half-open
	RequestTimeout   time.Duration // Individual request timeout
}

// Breaker wraps a github.com/sony/gobreaker.CircuitBreaker, which owns the
// open/closed/half-open state machine and trip/reset decisions, adding the
// per-call request timeout and the lifetime stats counters gobreaker's own
// windowed Counts do not retain across state transitions.
type Breaker struct {
	mu     sync.RWMutex
	name   string
	config Config
	cb     *gobreaker.CircuitBreaker

	totalRequests  int64
	totalSuccesses int64
	totalFailures  int64
	totalTimeouts  int64

	lastStateChange time.Time
	lastFailureTime time.Time
}

// NewBreaker creates a new circuit breaker with the specified configuration
func NewBreaker(config Config) *Breaker {
	return newNamedBreaker("", config)
}

func newNamedBreaker(name string, config Config) *Breaker {
	b := &Breaker{name: name, config: config, lastStateChange: time.Now()}
	b.cb = newGobreaker(name, config, b.onStateChange)
	return b
}

// newGobreaker builds the underlying breaker. MaxRequests doubles as the
// half-open success quota: gobreaker closes the circuit once
// ConsecutiveSuccesses reaches MaxRequests, which is exactly
// SuccessThreshold's role in the spec's state machine.
func newGobreaker(name string, config Config, onStateChange func(from, to gobreaker.State)) *gobreaker.CircuitBreaker {
	maxRequests := uint32(config.SuccessThreshold)
	if maxRequests == 0 {
		maxRequests = 1
	}
	threshold := uint32(config.FailureThreshold)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			onStateChange(from, to)
		},
	})
}

func (b *Breaker) onStateChange(_, _ gobreaker.State) {
	b.mu.Lock()
	b.lastStateChange = time.Now()
	b.mu.Unlock()
}

// Call executes fn through the underlying gobreaker state machine,
// applying the configured per-request timeout and recording the lifetime
// stats Stats reports.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.RLock()
	cb := b.cb
	b.mu.RUnlock()

	_, err := cb.Execute(func() (interface{}, error) {
		atomic.AddInt64(&b.totalRequests, 1)

		callCtx := ctx
		if b.config.RequestTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.config.RequestTimeout)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() { done <- fn(callCtx) }()

		select {
		case callErr := <-done:
			if callErr != nil {
				atomic.AddInt64(&b.totalFailures, 1)
				b.setLastFailureTime()
				return nil, callErr
			}
			atomic.AddInt64(&b.totalSuccesses, 1)
			return nil, nil
		case <-callCtx.Done():
			atomic.AddInt64(&b.totalTimeouts, 1)
			atomic.AddInt64(&b.totalFailures, 1)
			b.setLastFailureTime()
			return nil, ErrRequestTimeout
		}
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

func (b *Breaker) setLastFailureTime() {
	b.mu.Lock()
	b.lastFailureTime = time.Now()
	b.mu.Unlock()
}

// State returns the current circuit breaker state
func (b *Breaker) State() State {
	b.mu.RLock()
	cb := b.cb
	b.mu.RUnlock()
	return fromGobreakerState(cb.State())
}

// Stats returns current circuit breaker statistics
func (b *Breaker) Stats() Stats {
	b.mu.RLock()
	cb := b.cb
	lastStateChange := b.lastStateChange
	lastFailureTime := b.lastFailureTime
	b.mu.RUnlock()

	counts := cb.Counts()
	requests := atomic.LoadInt64(&b.totalRequests)
	successes := atomic.LoadInt64(&b.totalSuccesses)
	failures := atomic.LoadInt64(&b.totalFailures)
	timeouts := atomic.LoadInt64(&b.totalTimeouts)

	successRate := float64(0)
	timeoutRate := float64(0)
	if requests > 0 {
		successRate = float64(successes) / float64(requests)
		timeoutRate = float64(timeouts) / float64(requests)
	}

	return Stats{
		State:                fromGobreakerState(cb.State()),
		TotalRequests:        requests,
		TotalSuccesses:       successes,
		TotalFailures:        failures,
		TotalTimeouts:        timeouts,
		ConsecutiveFailures:  int(counts.ConsecutiveFailures),
		ConsecutiveSuccesses: int(counts.ConsecutiveSuccesses),
		LastStateChange:      lastStateChange,
		LastFailureTime:      lastFailureTime,
		SuccessRate:          successRate,
		TimeoutRate:          timeoutRate,
	}
}

// Reset rebuilds the underlying gobreaker (which offers no public reset of
// its own) and clears the lifetime counters, returning the breaker to its
// initial closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.cb = newGobreaker(b.name, b.config, b.onStateChange)
	b.lastStateChange = time.Now()
	b.lastFailureTime = time.Time{}
	b.mu.Unlock()

	atomic.StoreInt64(&b.totalRequests, 0)
	atomic.StoreInt64(&b.totalSuccesses, 0)
	atomic.StoreInt64(&b.totalFailures, 0)
	atomic.StoreInt64(&b.totalTimeouts, 0)
}

// Stats represents circuit breaker statistics
type Stats struct {
	State                State     `json:"state"`
	TotalRequests        int64     `json:"total_requests"`
	TotalSuccesses       int64     `json:"total_successes"`
	TotalFailures        int64     `json:"total_failures"`
	TotalTimeouts        int64     `json:"total_timeouts"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	LastStateChange      time.Time `json:"last_state_change"`
	LastFailureTime      time.Time `json:"last_failure_time,omitempty"`
	SuccessRate          float64   `json:"success_rate"`
	TimeoutRate          float64   `json:"timeout_rate"`
}

// IsHealthy returns true if the circuit breaker indicates healthy service
func (s *Stats) IsHealthy() bool {
	return s.State == StateClosed && (s.TotalRequests == 0 || s.SuccessRate >= 0.9)
}

// Manager manages multiple circuit breakers for different providers
type Manager struct {
	breakers map[string]*Breaker
	mu       sync.RWMutex
}

// NewManager creates a new circuit breaker manager
func NewManager() *Manager {
	return &Manager{
		breakers: make(map[string]*Breaker),
	}
}

// AddProvider adds a circuit breaker for a specific provider
func (m *Manager) AddProvider(name string, config Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.breakers[name] = newNamedBreaker(name, config)
}

// GetBreaker returns the circuit breaker for a specific provider
func (m *Manager) GetBreaker(provider string) (*Breaker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	breaker, exists := m.breakers[provider]
	return breaker, exists
}

// Call executes a function through the circuit breaker for a specific provider
func (m *Manager) Call(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	breaker, exists := m.GetBreaker(provider)
	if !exists {
		// No circuit breaker configured, execute directly
		return fn(ctx)
	}
	return breaker.Call(ctx, fn)
}

// Stats returns statistics for all providers
func (m *Manager) Stats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]Stats)
	for provider, breaker := range m.breakers {
		stats[provider] = breaker.Stats()
	}
	return stats
}

// IsHealthy returns true if all circuit breakers are healthy
func (m *Manager) IsHealthy() bool {
	stats := m.Stats()
	for _, stat := range stats {
		if !stat.IsHealthy() {
			return false
		}
	}
	return true
}

// Reset resets all circuit breakers
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, breaker := range m.breakers {
		breaker.Reset()
	}
}

// GetUnhealthyProviders returns a list of providers with unhealthy circuit breakers
func (m *Manager) GetUnhealthyProviders() []string {
	stats := m.Stats()
	var unhealthy []string

	for provider, stat := range stats {
		if !stat.IsHealthy() {
			unhealthy = append(unhealthy, fmt.Sprintf("%s (state: %s, success: %.1f%%)",
				provider, stat.State, stat.SuccessRate*100))
		}
	}

	return unhealthy
}
