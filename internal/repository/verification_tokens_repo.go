package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/threeeaglesforge/leadverify/internal/domain"
)

// VerificationTokensRepository handles verification token persistence.
type VerificationTokensRepository struct{}

// NewVerificationTokensRepository creates a new verification tokens repository.
func NewVerificationTokensRepository() *VerificationTokensRepository {
	return &VerificationTokensRepository{}
}

const tokenColumns = `id, subject_id, email, kind, token_hash, created_at, expires_at, consumed_at`

// LockEmailTx takes a transaction-scoped advisory lock for one email within one flow.
// Concurrent issuers for the same email serialize here until the holder commits or rolls back.
func (r *VerificationTokensRepository) LockEmailTx(ctx context.Context, q Querier, email string, kind domain.SubjectKind) error {
	_, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(kind)+":"+email)
	return err
}

// DeleteUnconsumedByEmailTx deletes every unconsumed token issued to email for kind.
func (r *VerificationTokensRepository) DeleteUnconsumedByEmailTx(ctx context.Context, q Querier, email string, kind domain.SubjectKind) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE email = $1 AND kind = $2 AND consumed_at IS NULL
	`
	result, err := q.ExecContext(ctx, query, email, kind)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CreateTx creates a new verification token within a transaction.
func (r *VerificationTokensRepository) CreateTx(ctx context.Context, q Querier, token *domain.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (id, subject_id, email, kind, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		token.ID, token.SubjectID, token.Email, token.Kind, token.TokenHash,
		token.CreatedAt, token.ExpiresAt,
	)
	return err
}

// GetValidByHashTx fetches and row-locks the unconsumed, unexpired token with this hash.
// A concurrent redeemer of the same token blocks on the lock and then sees it consumed.
func (r *VerificationTokensRepository) GetValidByHashTx(ctx context.Context, q Querier, tokenHash string, kind domain.SubjectKind, now time.Time) (*domain.VerificationToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM verification_tokens
		WHERE token_hash = $1 AND kind = $2 AND consumed_at IS NULL AND expires_at > $3
		FOR UPDATE
	`
	return scanToken(q.QueryRowContext(ctx, query, tokenHash, kind, now))
}

// GetByHashTx fetches a token by hash regardless of its state.
func (r *VerificationTokensRepository) GetByHashTx(ctx context.Context, q Querier, tokenHash string) (*domain.VerificationToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM verification_tokens WHERE token_hash = $1`
	return scanToken(q.QueryRowContext(ctx, query, tokenHash))
}

// MarkConsumedTx marks a token as consumed, at most once.
func (r *VerificationTokensRepository) MarkConsumedTx(ctx context.Context, q Querier, tokenID uuid.UUID, at time.Time) error {
	query := `
		UPDATE verification_tokens
		SET consumed_at = $2
		WHERE id = $1 AND consumed_at IS NULL
	`
	result, err := q.ExecContext(ctx, query, tokenID, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTokenInvalidOrExpired
	}
	return nil
}

func scanToken(row *sql.Row) (*domain.VerificationToken, error) {
	token := &domain.VerificationToken{}
	err := row.Scan(
		&token.ID, &token.SubjectID, &token.Email, &token.Kind, &token.TokenHash,
		&token.CreatedAt, &token.ExpiresAt, &token.ConsumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}
