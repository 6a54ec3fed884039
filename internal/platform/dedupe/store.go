package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// DefaultWindow is how long a fingerprint suppresses identical resubmissions.
const DefaultWindow = 20 * time.Minute

// Store remembers content fingerprints of accepted submissions so an
// immediate identical resubmission can be silently dropped. Entries live in
// memory only and expire lazily on each check.
type Store struct {
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// Option customises store construction.
type Option func(*Store)

// WithClock injects a deterministic clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithWindow overrides the suppression window.
func WithWindow(window time.Duration) Option {
	return func(s *Store) {
		if window > 0 {
			s.window = window
		}
	}
}

// NewStore constructs an empty duplicate-detection store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		window:  DefaultWindow,
		clock:   time.Now,
		entries: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seen reports whether the semantic content was already accepted inside the
// window. A miss records the current timestamp; a hit does not refresh it, so
// the suppression window is anchored at the first acceptance.
func (s *Store) Seen(identifier, email, subject, message string) bool {
	now := s.clock()
	cutoff := now.Add(-s.window)
	fingerprint := Fingerprint(identifier, email, subject, message)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, recorded := range s.entries {
		if recorded.Before(cutoff) {
			delete(s.entries, key)
		}
	}

	if _, ok := s.entries[fingerprint]; ok {
		return true
	}

	s.entries[fingerprint] = now
	return false
}

// Reset discards all recorded fingerprints. Intended for tests.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]time.Time)
}

// Len reports how many fingerprints are currently live.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Fingerprint derives the deterministic content hash for a submission. The
// message contributes lowercased with whitespace runs collapsed, so cosmetic
// edits do not defeat detection.
func Fingerprint(identifier, email, subject, message string) string {
	normalized := normalizeMessage(message)
	sum := sha256.Sum256([]byte(identifier + "|" + email + "|" + subject + "|" + normalized))
	return hex.EncodeToString(sum[:])
}

func normalizeMessage(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}
