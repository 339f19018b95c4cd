// Package health tracks per-source fetch outcomes and exposes a circuit
// breaker the fetcher consults before each attempt. The retry/backoff
// policy here is an implementation detail; only the Tracker interface is
// contractual.
package health

import (
	"sync"
	"time"
)

// Tracker is the narrow interface the fetch path consumes.
type Tracker interface {
	// Allow reports whether a fetch attempt against the source should
	// proceed. False means the breaker is open.
	Allow(source string) bool
	// Record notes the outcome of a fetch attempt. A nil err closes the
	// breaker; errors accumulate toward opening it.
	Record(source string, err error)
	// AllFeedHealth returns a read-only snapshot per source.
	AllFeedHealth() map[string]FeedHealth
	// CircuitBreakerStatus returns the breaker state per source.
	CircuitBreakerStatus() map[string]BreakerState
}

// FeedHealth is a read-only snapshot of one source's recent behavior.
type FeedHealth struct {
	Source       string
	LastSuccess  time.Time
	LastFailure  time.Time
	LastError    string
	ConsecErrors int
}

// BreakerState is the circuit position for one source.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// openThreshold is the consecutive-error count that opens the breaker.
const openThreshold = 3

// maxBackoff caps how long an open breaker refuses attempts.
const maxBackoff = 30 * time.Minute

// MemoryTracker is the in-memory Tracker implementation. Safe for
// concurrent use.
type MemoryTracker struct {
	mu      sync.RWMutex
	sources map[string]*sourceState
	now     func() time.Time
}

type sourceState struct {
	lastSuccess  time.Time
	lastFailure  time.Time
	lastError    string
	consecErrors int
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		sources: make(map[string]*sourceState),
		now:     time.Now,
	}
}

// backoff grows with the square of the consecutive error count, capped.
func backoff(consecErrors int) time.Duration {
	d := time.Duration(consecErrors*consecErrors) * time.Minute
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (t *MemoryTracker) state(source string) (BreakerState, *sourceState) {
	s, ok := t.sources[source]
	if !ok || s.consecErrors < openThreshold {
		return BreakerClosed, s
	}
	if t.now().Sub(s.lastFailure) >= backoff(s.consecErrors) {
		return BreakerHalfOpen, s
	}
	return BreakerOpen, s
}

// Allow reports whether a fetch attempt should proceed. Open breakers
// refuse until the backoff window elapses, then allow a half-open probe.
func (t *MemoryTracker) Allow(source string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, _ := t.state(source)
	return state != BreakerOpen
}

// Record notes a fetch outcome for source.
func (t *MemoryTracker) Record(source string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sources[source]
	if !ok {
		s = &sourceState{}
		t.sources[source] = s
	}

	if err != nil {
		s.consecErrors++
		s.lastFailure = t.now()
		s.lastError = err.Error()
		return
	}
	s.consecErrors = 0
	s.lastSuccess = t.now()
	s.lastError = ""
}

// AllFeedHealth returns a snapshot per source.
func (t *MemoryTracker) AllFeedHealth() map[string]FeedHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]FeedHealth, len(t.sources))
	for name, s := range t.sources {
		out[name] = FeedHealth{
			Source:       name,
			LastSuccess:  s.lastSuccess,
			LastFailure:  s.lastFailure,
			LastError:    s.lastError,
			ConsecErrors: s.consecErrors,
		}
	}
	return out
}

// CircuitBreakerStatus returns the breaker state per source.
func (t *MemoryTracker) CircuitBreakerStatus() map[string]BreakerState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]BreakerState, len(t.sources))
	for name := range t.sources {
		state, _ := t.state(name)
		out[name] = state
	}
	return out
}
