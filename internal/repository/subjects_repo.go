package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/threeeaglesforge/leadverify/internal/domain"
)

// SubjectsRepository handles lead and subscription persistence.
// Every method runs on the caller's Querier, usually a transaction.
type SubjectsRepository struct{}

// NewSubjectsRepository creates a new subjects repository.
func NewSubjectsRepository() *SubjectsRepository {
	return &SubjectsRepository{}
}

const subjectColumns = `id, kind, email, first_name, last_name, phone, message, source, referer, ip, user_agent,
	verified, verified_at, created_at`

// CreateTx inserts an unverified subject within a transaction.
func (r *SubjectsRepository) CreateTx(ctx context.Context, q Querier, s *domain.Subject) error {
	query := `
		INSERT INTO subjects (id, kind, email, first_name, last_name, phone, message, source, referer, ip, user_agent,
			verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE, $12)
	`
	_, err := q.ExecContext(ctx, query,
		s.ID, s.Kind, s.Email,
		nullIfEmpty(s.FirstName), nullIfEmpty(s.LastName), nullIfEmpty(s.Phone), nullIfEmpty(s.Message),
		nullIfEmpty(s.Source), nullIfEmpty(s.Referer), nullIfEmpty(s.IP), nullIfEmpty(s.UserAgent),
		s.CreatedAt,
	)
	return err
}

// GetByIDTx retrieves a subject by ID within a transaction.
func (r *SubjectsRepository) GetByIDTx(ctx context.Context, q Querier, id uuid.UUID) (*domain.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`
	return scanSubject(q.QueryRowContext(ctx, query, id))
}

// MarkVerifiedTx transitions an unverified subject to verified.
// It returns false, without touching verified_at, when the subject was already verified.
func (r *SubjectsRepository) MarkVerifiedTx(ctx context.Context, q Querier, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE subjects
		SET verified = TRUE, verified_at = $2
		WHERE id = $1 AND verified = FALSE
	`
	result, err := q.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ExistsVerifiedEmailTx checks whether any subject of kind with this email is verified.
func (r *SubjectsRepository) ExistsVerifiedEmailTx(ctx context.Context, q Querier, email string, kind domain.SubjectKind) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM subjects WHERE email = $1 AND kind = $2 AND verified = TRUE)`
	var exists bool
	err := q.QueryRowContext(ctx, query, domain.NormalizeEmail(email), kind).Scan(&exists)
	return exists, err
}

func scanSubject(row *sql.Row) (*domain.Subject, error) {
	var (
		s                                   domain.Subject
		firstName, lastName, phone, message sql.NullString
		source, referer, ip, userAgent      sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.Kind, &s.Email, &firstName, &lastName, &phone, &message,
		&source, &referer, &ip, &userAgent,
		&s.Verified, &s.VerifiedAt, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	s.FirstName = firstName.String
	s.LastName = lastName.String
	s.Phone = phone.String
	s.Message = message.String
	s.Source = source.String
	s.Referer = referer.String
	s.IP = ip.String
	s.UserAgent = userAgent.String
	return &s, nil
}
