package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session token is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Store persists browser sessions. The login guard only ever talks to this
// interface; the concrete store decides lifetime and locking.
type Store interface {
	// Create initializes a fresh session: new token, new anti-forgery
	// token, new CAPTCHA challenge, zeroed counters.
	Create(ctx context.Context) (*Session, error)

	// Get returns the session for a token, or ErrNotFound.
	Get(ctx context.Context, token string) (*Session, error)

	// Save writes back mutated session state under its current token.
	Save(ctx context.Context, s *Session) error

	// Regenerate assigns the session a fresh token, preserving every other
	// field, and invalidates the old token. Called on privilege change.
	Regenerate(ctx context.Context, s *Session) error

	// Delete removes the session. Unknown tokens are not an error.
	Delete(ctx context.Context, token string) error
}
