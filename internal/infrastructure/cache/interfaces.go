package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
)

// Key prefix and default TTL for session storage.
const (
	SessionPrefix     = "session:"
	DefaultSessionTTL = 24 * time.Hour
)

// SessionStore holds per-session assessment state: selected personas, the
// answer set, and links to saved submissions. State is discarded at session
// expiry unless persisted.
type SessionStore interface {
	// Create initializes an empty session and returns its state.
	Create(ctx context.Context) (*assessment.State, error)

	// Get returns the state for a session id.
	Get(ctx context.Context, sessionID string) (*assessment.State, error)

	// Save writes the state back and refreshes the session TTL.
	Save(ctx context.Context, state *assessment.State) error

	// Delete discards a session.
	Delete(ctx context.Context, sessionID string) error

	// Close releases backing resources.
	Close() error
}

// ErrSessionNotFound reports a missing or expired session.
type ErrSessionNotFound struct {
	SessionID string
}

func (e ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found or expired: %s", e.SessionID)
}
