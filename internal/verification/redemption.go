package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/threeeaglesforge/leadverify/internal/domain"
	"github.com/threeeaglesforge/leadverify/internal/metrics"
	"github.com/threeeaglesforge/leadverify/internal/repository"
)

// RedemptionResult describes a successful redemption.
type RedemptionResult struct {
	Subject *domain.Subject
	TokenID uuid.UUID
	// NewlyVerified is false when the subject had already been verified by an earlier token.
	NewlyVerified bool
	// Resubscribed is set when another subscription for the same email was verified before.
	// No welcome issue goes out for it.
	Resubscribed bool
	// Notified reports whether the post-verification notifications went out.
	Notified bool
}

// RedemptionService redeems tokens and verifies their subjects.
type RedemptionService struct {
	db       *sql.DB
	subjects SubjectStore
	tokens   *TokenStore
	notifier Notifier
	effects  *BestEffort
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewRedemptionService creates a redemption service.
func NewRedemptionService(
	db *sql.DB,
	subjects SubjectStore,
	tokens *TokenStore,
	notifier Notifier,
	effects *BestEffort,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *RedemptionService {
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	return &RedemptionService{
		db:       db,
		subjects: subjects,
		tokens:   tokens,
		notifier: notifier,
		effects:  effects,
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Redeem consumes rawToken and marks its subject verified, in one transaction.
// Redeeming another valid token of an already verified subject consumes the token
// and leaves the subject unchanged.
func (s *RedemptionService) Redeem(ctx context.Context, kind domain.SubjectKind, rawToken string) (*RedemptionResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		s.metrics.RecordRedemption(string(kind), metrics.StatusMissing)
		return nil, domain.ErrMissingToken
	}

	var result RedemptionResult
	err := repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		token, err := s.tokens.LookupValid(ctx, tx, rawToken, kind)
		if err != nil {
			if errors.Is(err, domain.ErrTokenInvalidOrExpired) {
				s.logRejected(ctx, tx, kind, rawToken)
			}
			return err
		}

		subject, err := s.subjects.GetByIDTx(ctx, tx, token.SubjectID)
		if err != nil {
			return fmt.Errorf("failed to load subject: %w", err)
		}

		var resubscribed bool
		if kind == domain.SubjectKindSubscription && !subject.Verified {
			resubscribed, err = s.subjects.ExistsVerifiedEmailTx(ctx, tx, subject.Email, kind)
			if err != nil {
				return fmt.Errorf("failed to check earlier subscriptions: %w", err)
			}
		}

		at := s.now().UTC()
		verified, err := s.subjects.MarkVerifiedTx(ctx, tx, subject.ID, at)
		if err != nil {
			return fmt.Errorf("failed to verify subject: %w", err)
		}

		if err := s.tokens.Consume(ctx, tx, token.ID); err != nil {
			return err
		}

		switch {
		case verified:
			subject.Verify(at)
		case !subject.Verified:
			// Verified by a concurrent transaction after our read.
			if subject, err = s.subjects.GetByIDTx(ctx, tx, token.SubjectID); err != nil {
				return fmt.Errorf("failed to load subject: %w", err)
			}
		}

		result = RedemptionResult{
			Subject:       subject,
			TokenID:       token.ID,
			NewlyVerified: verified,
			Resubscribed:  verified && resubscribed,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalidOrExpired) {
			s.metrics.RecordRedemption(string(kind), metrics.StatusInvalid)
			return nil, domain.ErrTokenInvalidOrExpired
		}
		s.metrics.RecordRedemption(string(kind), metrics.StatusError)
		return nil, err
	}

	if !result.NewlyVerified {
		s.metrics.RecordRedemption(string(kind), metrics.StatusAlreadyVerified)
		s.logger.Info("token redeemed for already verified subject", "kind", kind, "subject_id", result.Subject.ID)
		return &result, nil
	}

	s.metrics.RecordRedemption(string(kind), metrics.StatusVerified)
	s.logger.Info("subject verified", "kind", kind, "subject_id", result.Subject.ID)

	if result.Resubscribed {
		s.logger.Info("email already subscribed, skipping welcome issue", "subject_id", result.Subject.ID)
		return &result, nil
	}

	subject := result.Subject
	result.Notified = s.effects.Run(ctx, "verified", func(ctx context.Context) error {
		return s.notifier.SendVerified(ctx, subject)
	})

	return &result, nil
}

func (s *RedemptionService) logRejected(ctx context.Context, q repository.Querier, kind domain.SubjectKind, rawToken string) {
	state, err := s.tokens.Diagnose(ctx, q, rawToken, kind)
	if err != nil {
		s.logger.Warn("failed to diagnose rejected token", "kind", kind, "error", err)
		return
	}
	s.logger.Info("rejected verification token", "kind", kind, "reason", state)
}
