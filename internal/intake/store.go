// Package intake hands raw document bytes to the scanner. Uploads are parked under an
// opaque token that can be redeemed exactly once before it expires.
package intake

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Intake errors
var (
	ErrNoToken      = errors.New("no document token")
	ErrTokenExpired = errors.New("document token expired")
	ErrStoreFull    = errors.New("too many pending documents")
)

// DefaultTTL is how long an upload waits to be scanned
const DefaultTTL = 10 * time.Minute

// DefaultCapacity bounds the number of pending uploads
const DefaultCapacity = 64

type entry struct {
	data    []byte
	expires time.Time
}

// Store keeps uploads in memory until they are taken. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// NewStore creates a store. Non-positive values fall back to the defaults.
func NewStore(ttl time.Duration, capacity int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		entries:  make(map[string]entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Put parks data and returns its token
func (s *Store) Put(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if len(s.entries) >= s.capacity {
		return "", fmt.Errorf("%w: %d pending", ErrStoreFull, len(s.entries))
	}

	token := uuid.NewString()
	s.entries[token] = entry{data: data, expires: s.now().Add(s.ttl)}
	return token, nil
}

// Take returns the bytes for token and invalidates it. An empty token yields
// ErrNoToken; unknown, already taken or stale tokens yield ErrTokenExpired.
func (s *Store) Take(token string) ([]byte, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if _, err := uuid.Parse(token); err != nil {
		return nil, fmt.Errorf("%w: malformed token", ErrTokenExpired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return nil, ErrTokenExpired
	}
	delete(s.entries, token)

	if s.now().After(e.expires) {
		return nil, ErrTokenExpired
	}
	return e.data, nil
}

// Len returns the number of pending uploads, expired ones included until swept
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops expired uploads and returns how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	now := s.now()
	removed := 0
	for token, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}
