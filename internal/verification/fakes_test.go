package verification

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/threeeaglesforge/leadverify/internal/domain"
	"github.com/threeeaglesforge/leadverify/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// memTokens is an in-memory TokenRepository with the same validity rules as the SQL one.
type memTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*domain.VerificationToken
	locks  []string

	// beforeConsume runs inside MarkConsumedTx before the compare-and-set.
	beforeConsume func(id uuid.UUID)
	failCreate    error
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: make(map[uuid.UUID]*domain.VerificationToken)}
}

func (m *memTokens) LockEmailTx(_ context.Context, _ repository.Querier, email string, kind domain.SubjectKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = append(m.locks, string(kind)+":"+email)
	return nil
}

func (m *memTokens) DeleteUnconsumedByEmailTx(_ context.Context, _ repository.Querier, email string, kind domain.SubjectKind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tokens {
		if t.Email == email && t.Kind == kind && t.ConsumedAt == nil {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) CreateTx(_ context.Context, _ repository.Querier, token *domain.VerificationToken) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *token
	m.tokens[token.ID] = &cp
	return nil
}

func (m *memTokens) GetValidByHashTx(_ context.Context, _ repository.Querier, hash string, kind domain.SubjectKind, now time.Time) (*domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash && t.Kind == kind && t.State(now) == domain.TokenStateValid {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTokenInvalidOrExpired
}

func (m *memTokens) GetByHashTx(_ context.Context, _ repository.Querier, hash string) (*domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTokenInvalidOrExpired
}

func (m *memTokens) MarkConsumedTx(_ context.Context, _ repository.Querier, id uuid.UUID, at time.Time) error {
	if m.beforeConsume != nil {
		m.beforeConsume(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.ConsumedAt != nil {
		return domain.ErrTokenInvalidOrExpired
	}
	t.ConsumedAt = &at
	return nil
}

func (m *memTokens) get(id uuid.UUID) *domain.VerificationToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[id]
}

func (m *memTokens) live(email string, kind domain.SubjectKind, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.Email == email && t.Kind == kind && t.State(now) == domain.TokenStateValid {
			n++
		}
	}
	return n
}

// memSubjects is an in-memory SubjectStore.
type memSubjects struct {
	mu         sync.Mutex
	subjects   map[uuid.UUID]*domain.Subject
	failCreate error
	failVerify error
	failExists error
}

func newMemSubjects() *memSubjects {
	return &memSubjects{subjects: make(map[uuid.UUID]*domain.Subject)}
}

func (m *memSubjects) CreateTx(_ context.Context, _ repository.Querier, s *domain.Subject) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subjects[s.ID] = &cp
	return nil
}

func (m *memSubjects) GetByIDTx(_ context.Context, _ repository.Querier, id uuid.UUID) (*domain.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, domain.ErrSubjectNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubjects) MarkVerifiedTx(_ context.Context, _ repository.Querier, id uuid.UUID, at time.Time) (bool, error) {
	if m.failVerify != nil {
		return false, m.failVerify
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return false, nil
	}
	return s.Verify(at), nil
}

func (m *memSubjects) ExistsVerifiedEmailTx(_ context.Context, _ repository.Querier, email string, kind domain.SubjectKind) (bool, error) {
	if m.failExists != nil {
		return false, m.failExists
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s.Email == email && s.Kind == kind && s.Verified {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSubjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subjects)
}

func (m *memSubjects) get(id uuid.UUID) *domain.Subject {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subjects[id]
}

type sentConfirmation struct {
	subject   *domain.Subject
	verifyURL string
	ttl       time.Duration
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []sentConfirmation
	verified      []*domain.Subject
	confirmErr    error
	verifiedErr   error
	panicOnSend   bool
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, s *domain.Subject, verifyURL string, ttl time.Duration) error {
	if f.panicOnSend {
		panic("mailer exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, sentConfirmation{s, verifyURL, ttl})
	return f.confirmErr
}

func (f *fakeNotifier) SendVerified(_ context.Context, s *domain.Subject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, s)
	return f.verifiedErr
}

var errBoom = errors.New("boom")

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: make(map[string]int)}
}

func (r *countingRecorder) inc(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key]++
}

func (r *countingRecorder) RecordSubmission(kind, status string) {
	r.inc("submission:" + kind + ":" + status)
}
func (r *countingRecorder) RecordRedemption(kind, status string) {
	r.inc("redemption:" + kind + ":" + status)
}
func (r *countingRecorder) RecordNotification(event, status string) {
	r.inc("notification:" + event + ":" + status)
}

func (r *countingRecorder) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}
