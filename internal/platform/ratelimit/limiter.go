package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/requestctx"
)

// Reason identifies which ceiling rejected a submission.
type Reason string

const (
	// ReasonBurst means the short-window ceiling was hit.
	ReasonBurst Reason = "burst"
	// ReasonHourly means the hourly ceiling was hit.
	ReasonHourly Reason = "hourly"
)

const (
	defaultBurstLimit   = 3
	defaultBurstWindow  = 10 * time.Minute
	defaultHourlyLimit  = 8
	defaultHourlyWindow = time.Hour
)

// Result reports the limiter decision for one submission attempt.
type Result struct {
	Limited bool
	Reason  Reason
}

// Limiter tracks submission timestamps per client identifier and enforces a
// burst ceiling and an hourly ceiling over sliding windows. State is held in
// memory only; entries whose history ages out of the hourly window are pruned
// lazily on every check.
type Limiter struct {
	burstLimit   int
	burstWindow  time.Duration
	hourlyLimit  int
	hourlyWindow time.Duration
	clock        func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
}

// Option customises limiter construction.
type Option func(*Limiter)

// WithClock injects a deterministic clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithCeilings overrides the default burst and hourly ceilings.
func WithCeilings(burstLimit int, burstWindow time.Duration, hourlyLimit int, hourlyWindow time.Duration) Option {
	return func(l *Limiter) {
		if burstLimit > 0 {
			l.burstLimit = burstLimit
		}
		if burstWindow > 0 {
			l.burstWindow = burstWindow
		}
		if hourlyLimit > 0 {
			l.hourlyLimit = hourlyLimit
		}
		if hourlyWindow > 0 {
			l.hourlyWindow = hourlyWindow
		}
	}
}

// NewLimiter constructs an empty limiter with production ceilings.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		burstLimit:   defaultBurstLimit,
		burstWindow:  defaultBurstWindow,
		hourlyLimit:  defaultHourlyLimit,
		hourlyWindow: defaultHourlyWindow,
		clock:        time.Now,
		entries:      make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check evaluates one submission attempt for the identifier. Rejected attempts
// are not recorded; accepted attempts append the current timestamp. The burst
// ceiling takes precedence when both would trigger.
func (l *Limiter) Check(identifier string) Result {
	key := strings.TrimSpace(identifier)
	if key == "" {
		key = requestctx.UnknownClient
	}
	now := l.clock()
	hourlyCutoff := now.Add(-l.hourlyWindow)
	burstCutoff := now.Add(-l.burstWindow)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(hourlyCutoff)

	timestamps := l.entries[key]
	burst := 0
	for _, ts := range timestamps {
		if ts.After(burstCutoff) {
			burst++
		}
	}

	if burst >= l.burstLimit {
		return Result{Limited: true, Reason: ReasonBurst}
	}
	if len(timestamps) >= l.hourlyLimit {
		return Result{Limited: true, Reason: ReasonHourly}
	}

	l.entries[key] = append(timestamps, now)
	return Result{}
}

// Reset discards all recorded state. Intended for tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string][]time.Time)
}

// Len reports how many identifiers currently hold state.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) pruneLocked(cutoff time.Time) {
	for key, timestamps := range l.entries {
		recent := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				recent = append(recent, ts)
			}
		}
		if len(recent) == 0 {
			delete(l.entries, key)
			continue
		}
		l.entries[key] = recent
	}
}
