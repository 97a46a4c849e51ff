package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenState classifies a stored token for server-side diagnostics.
type TokenState string

const (
	TokenStateValid    TokenState = "valid"
	TokenStateNotFound TokenState = "not_found"
	TokenStateConsumed TokenState = "consumed"
	TokenStateExpired  TokenState = "expired"
)

// VerificationToken is a single-use credential bound to one subject.
// Only the fingerprint of the raw token is ever stored.
type VerificationToken struct {
	ID         uuid.UUID
	SubjectID  uuid.UUID
	Email      string
	Kind       SubjectKind
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// State returns the token state at now.
func (t *VerificationToken) State(now time.Time) TokenState {
	if t.ConsumedAt != nil {
		return TokenStateConsumed
	}
	if !now.Before(t.ExpiresAt) {
		return TokenStateExpired
	}
	return TokenStateValid
}
