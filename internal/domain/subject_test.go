package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSubject_Verify(t *testing.T) {
	at := time.Date(2025, 11, 26, 10, 0, 0, 0, time.UTC)
	s := &Subject{ID: uuid.New(), Kind: SubjectKindLead, Email: "a@b.com"}

	if !s.Verify(at) {
		t.Fatal("first Verify should perform the transition")
	}
	if !s.Verified || s.VerifiedAt == nil || !s.VerifiedAt.Equal(at) {
		t.Errorf("VerifiedAt = %v, want %v", s.VerifiedAt, at)
	}

	if s.Verify(at.Add(time.Hour)) {
		t.Error("second Verify should be a no-op")
	}
	if !s.VerifiedAt.Equal(at) {
		t.Errorf("VerifiedAt changed to %v", s.VerifiedAt)
	}
}

func TestSubject_DisplayName(t *testing.T) {
	tests := []struct {
		first, last string
		want        string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", ""},
	}

	for _, tt := range tests {
		s := &Subject{FirstName: tt.first, LastName: tt.last}
		if got := s.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Someone@Example.COM \n"); got != "someone@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestSubjectKind_Valid(t *testing.T) {
	if !SubjectKindLead.Valid() || !SubjectKindSubscription.Valid() {
		t.Error("known kinds should be valid")
	}
	if SubjectKind("admin").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestVerificationToken_State(t *testing.T) {
	now := time.Now()
	consumed := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token VerificationToken
		want  TokenState
	}{
		{"valid", VerificationToken{ExpiresAt: now.Add(time.Hour)}, TokenStateValid},
		{"expired", VerificationToken{ExpiresAt: now.Add(-time.Second)}, TokenStateExpired},
		{"expires exactly now", VerificationToken{ExpiresAt: now}, TokenStateExpired},
		{"consumed", VerificationToken{ExpiresAt: now.Add(time.Hour), ConsumedAt: &consumed}, TokenStateConsumed},
		{"consumed and expired", VerificationToken{ExpiresAt: now.Add(-time.Hour), ConsumedAt: &consumed}, TokenStateConsumed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.State(now); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	var err error = NewValidationError("email", "Please enter a valid email.")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatal("errors.As should match *ValidationError")
	}
	if verr.Message != "Please enter a valid email." {
		t.Errorf("Message = %q", verr.Message)
	}
}
