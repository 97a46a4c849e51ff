package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubjectKind identifies which flow created a subject.
type SubjectKind string

const (
	SubjectKindLead         SubjectKind = "lead"
	SubjectKindSubscription SubjectKind = "subscription"
)

// Valid reports whether k is a known kind.
func (k SubjectKind) Valid() bool {
	return k == SubjectKindLead || k == SubjectKindSubscription
}

// Subject is one inbound contact message or newsletter signup.
// Payload fields are immutable after creation; only Verified and VerifiedAt change.
type Subject struct {
	ID         uuid.UUID
	Kind       SubjectKind
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Message    string
	Source     string
	Referer    string
	IP         string
	UserAgent  string
	Verified   bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// Verify moves the subject from unverified to verified.
// It returns false when the subject was already verified, leaving VerifiedAt untouched.
func (s *Subject) Verify(at time.Time) bool {
	if s.Verified {
		return false
	}
	s.Verified = true
	s.VerifiedAt = &at
	return true
}

// DisplayName joins first and last name.
func (s *Subject) DisplayName() string {
	return strings.TrimSpace(strings.Join([]string{s.FirstName, s.LastName}, " "))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
