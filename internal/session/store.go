// Package session holds short-lived OAuth exchange state between the authorization redirect and the client's
// single-use token pickup.
//
// The [Store] interface is injected wherever sessions are needed. [MemoryStore] keeps records in a map;
// repositories.SessionRepository keeps them in SQLite. A [Janitor] expires stale records in the background.
package session

import (
	"context"
	"time"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

// DefaultTTL is how long a session may wait for its tokens to be picked up.
const DefaultTTL = 10 * time.Minute

// Record is one pending OAuth exchange, keyed by its state token.
type Record struct {
	State       string
	RedirectURI string
	CreatedAt   time.Time
	Tokens      *models.AuthTokens
}

// Expired reports whether r is older than ttl at now.
func (r Record) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.CreatedAt) > ttl
}

// Store is the session capability.
//
// Get and Consume return [shared.ErrSessionNotFound] for unknown or expired states. Consume returns the tokens and
// deletes the record; it succeeds at most once per state and only after tokens were attached.
type Store interface {
	Get(ctx context.Context, state string) (*Record, error)
	Put(ctx context.Context, record Record) error
	Consume(ctx context.Context, state string) (*models.AuthTokens, error)
	Expire(ctx context.Context, now time.Time) (int, error)
}

// NewState returns a fresh random state token.
func NewState() string {
	return shared.GenerateState()
}

// AttachTokens stores tokens on an existing session.
func AttachTokens(ctx context.Context, store Store, state string, tokens models.AuthTokens) (*Record, error) {
	record, err := store.Get(ctx, state)
	if err != nil {
		return nil, err
	}

	record.Tokens = &tokens
	if err := store.Put(ctx, *record); err != nil {
		return nil, err
	}
	return record, nil
}
