package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

// MemoryStore is a mutex-guarded in-process [Store].
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore. A nil clock uses [time.Now]; a non-positive ttl uses [DefaultTTL].
func NewMemoryStore(ttl time.Duration, clock func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{records: make(map[string]Record), ttl: ttl, now: clock}
}

func (s *MemoryStore) Get(ctx context.Context, state string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[state]
	if !ok || r.Expired(s.now(), s.ttl) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, state)
	}
	return &r, nil
}

// Put stores record, stamping CreatedAt when unset.
func (s *MemoryStore) Put(ctx context.Context, record Record) error {
	if record.State == "" {
		return fmt.Errorf("%w: empty state", shared.ErrInvalidInput)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.records[record.State] = record
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, state string) (*models.AuthTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[state]
	if !ok || r.Tokens == nil || r.Expired(s.now(), s.ttl) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, state)
	}
	delete(s.records, state)
	return r.Tokens, nil
}

func (s *MemoryStore) Expire(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for state, r := range s.records {
		if r.Expired(now, s.ttl) {
			delete(s.records, state)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
