package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/threeeaglesforge/leadverify/internal/domain"
	"github.com/threeeaglesforge/leadverify/internal/repository"
)

// TokenRepository is the persistence the token store needs.
type TokenRepository interface {
	LockEmailTx(ctx context.Context, q repository.Querier, email string, kind domain.SubjectKind) error
	DeleteUnconsumedByEmailTx(ctx context.Context, q repository.Querier, email string, kind domain.SubjectKind) (int64, error)
	CreateTx(ctx context.Context, q repository.Querier, token *domain.VerificationToken) error
	GetValidByHashTx(ctx context.Context, q repository.Querier, tokenHash string, kind domain.SubjectKind, now time.Time) (*domain.VerificationToken, error)
	GetByHashTx(ctx context.Context, q repository.Querier, tokenHash string) (*domain.VerificationToken, error)
	MarkConsumedTx(ctx context.Context, q repository.Querier, tokenID uuid.UUID, at time.Time) error
}

// TokenStore issues, looks up and consumes single-use tokens.
// Every method runs on the caller's transaction.
type TokenStore struct {
	repo       TokenRepository
	tokenBytes int
	now        func() time.Time
}

// NewTokenStore creates a token store.
func NewTokenStore(repo TokenRepository) *TokenStore {
	return &TokenStore{
		repo:       repo,
		tokenBytes: DefaultTokenBytes,
		now:        time.Now,
	}
}

// Issue creates a fresh token for subjectID and returns the raw value.
// Any unconsumed token previously issued for the same email and kind is deleted first,
// so only the newest link for an email stays redeemable.
func (s *TokenStore) Issue(
	ctx context.Context,
	q repository.Querier,
	subjectID uuid.UUID,
	email string,
	kind domain.SubjectKind,
	ttl time.Duration,
) (string, *domain.VerificationToken, error) {
	if ttl <= 0 {
		return "", nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	rawToken, err := GenerateToken(s.tokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now().UTC()
	token := &domain.VerificationToken{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Email:     email,
		Kind:      kind,
		TokenHash: HashToken(rawToken),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.repo.LockEmailTx(ctx, q, email, kind); err != nil {
		return "", nil, fmt.Errorf("failed to lock email: %w", err)
	}
	if _, err := s.repo.DeleteUnconsumedByEmailTx(ctx, q, email, kind); err != nil {
		return "", nil, fmt.Errorf("failed to delete previous tokens: %w", err)
	}
	if err := s.repo.CreateTx(ctx, q, token); err != nil {
		return "", nil, fmt.Errorf("failed to create token: %w", err)
	}

	return rawToken, token, nil
}

// LookupValid returns the redeemable token for rawToken, locked for the rest of the transaction.
// Unknown, consumed and expired tokens all yield domain.ErrTokenInvalidOrExpired.
func (s *TokenStore) LookupValid(ctx context.Context, q repository.Querier, rawToken string, kind domain.SubjectKind) (*domain.VerificationToken, error) {
	return s.repo.GetValidByHashTx(ctx, q, HashToken(rawToken), kind, s.now().UTC())
}

// Consume marks the token used. Losing the compare-and-set to a concurrent
// consumer yields domain.ErrTokenInvalidOrExpired.
func (s *TokenStore) Consume(ctx context.Context, q repository.Querier, tokenID uuid.UUID) error {
	return s.repo.MarkConsumedTx(ctx, q, tokenID, s.now().UTC())
}

// Diagnose classifies why rawToken is not redeemable. For server-side logs only.
func (s *TokenStore) Diagnose(ctx context.Context, q repository.Querier, rawToken string, kind domain.SubjectKind) (domain.TokenState, error) {
	token, err := s.repo.GetByHashTx(ctx, q, HashToken(rawToken))
	if errors.Is(err, domain.ErrTokenInvalidOrExpired) {
		return domain.TokenStateNotFound, nil
	}
	if err != nil {
		return domain.TokenStateNotFound, err
	}
	if token.Kind != kind {
		return domain.TokenStateNotFound, nil
	}
	return token.State(s.now()), nil
}
