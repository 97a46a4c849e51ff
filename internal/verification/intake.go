package verification

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/threeeaglesforge/leadverify/internal/domain"
	"github.com/threeeaglesforge/leadverify/internal/metrics"
	"github.com/threeeaglesforge/leadverify/internal/repository"
)

// SubjectStore is the persistence the intake and redemption services need.
type SubjectStore interface {
	CreateTx(ctx context.Context, q repository.Querier, s *domain.Subject) error
	GetByIDTx(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Subject, error)
	MarkVerifiedTx(ctx context.Context, q repository.Querier, id uuid.UUID, at time.Time) (bool, error)
	ExistsVerifiedEmailTx(ctx context.Context, q repository.Querier, email string, kind domain.SubjectKind) (bool, error)
}

// Flow holds the per-kind settings of a verification flow.
type Flow struct {
	Kind       domain.SubjectKind
	TokenTTL   time.Duration
	VerifyPath string
}

// DefaultFlows returns the contact (24h) and newsletter (60m) flows.
func DefaultFlows() map[domain.SubjectKind]Flow {
	return map[domain.SubjectKind]Flow{
		domain.SubjectKindLead: {
			Kind:       domain.SubjectKindLead,
			TokenTTL:   24 * time.Hour,
			VerifyPath: "/api/contact/verify",
		},
		domain.SubjectKindSubscription: {
			Kind:       domain.SubjectKindSubscription,
			TokenTTL:   60 * time.Minute,
			VerifyPath: "/newsletter/confirm",
		},
	}
}

// Submission is an inbound contact message or newsletter signup.
type Submission struct {
	Kind      domain.SubjectKind
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Message   string
	Source    string

	// Honeypot is a form field humans never see; bots fill it in.
	Honeypot string

	Referer   string
	IP        string
	UserAgent string

	// BaseURL prefixes the redemption link, e.g. "https://3ef.studio".
	BaseURL string
}

// IntakeResult describes an accepted submission.
type IntakeResult struct {
	SubjectID uuid.UUID
	ExpiresAt time.Time
	// Discarded is set when the honeypot tripped and nothing was stored.
	Discarded bool
	// Notified reports whether the confirmation email went out.
	Notified bool
}

// IntakeConfig configures the intake service.
type IntakeConfig struct {
	Flows            map[domain.SubjectKind]Flow
	MinMessageLength int
}

// IntakeService validates and records submissions and issues their tokens.
type IntakeService struct {
	config   IntakeConfig
	db       *sql.DB
	subjects SubjectStore
	tokens   *TokenStore
	notifier Notifier
	effects  *BestEffort
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewIntakeService creates an intake service.
func NewIntakeService(
	config IntakeConfig,
	db *sql.DB,
	subjects SubjectStore,
	tokens *TokenStore,
	notifier Notifier,
	effects *BestEffort,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *IntakeService {
	if config.MinMessageLength <= 0 {
		config.MinMessageLength = 5
	}
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	return &IntakeService{
		config:   config,
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

// Submit records a submission as an unverified subject with one fresh token, in a
// single transaction, then sends the confirmation email. A failed email does not
// fail the call.
func (s *IntakeService) Submit(ctx context.Context, sub Submission) (*IntakeResult, error) {
	flow, ok := s.config.Flows[sub.Kind]
	if !sub.Kind.Valid() || !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, sub.Kind)
	}
	kind := string(sub.Kind)

	if strings.TrimSpace(sub.Honeypot) != "" {
		s.logger.Warn("discarding submission with honeypot set", "kind", kind, "ip", sub.IP)
		s.metrics.RecordSubmission(kind, metrics.StatusDiscarded)
		return &IntakeResult{Discarded: true}, nil
	}

	sub = normalize(sub)
	if err := validate(sub, s.config.MinMessageLength); err != nil {
		s.logger.Debug("submission rejected", "kind", kind, "reason", err)
		s.metrics.RecordSubmission(kind, metrics.StatusInvalid)
		return nil, err
	}

	subject := &domain.Subject{
		ID:        uuid.New(),
		Kind:      sub.Kind,
		Email:     sub.Email,
		FirstName: sub.FirstName,
		LastName:  sub.LastName,
		Phone:     sub.Phone,
		Message:   sub.Message,
		Source:    sub.Source,
		Referer:   sub.Referer,
		IP:        sub.IP,
		UserAgent: sub.UserAgent,
		CreatedAt: s.now().UTC(),
	}

	var (
		rawToken string
		token    *domain.VerificationToken
	)
	err := repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.subjects.CreateTx(ctx, tx, subject); err != nil {
			return fmt.Errorf("failed to create subject: %w", err)
		}
		var err error
		rawToken, token, err = s.tokens.Issue(ctx, tx, subject.ID, subject.Email, subject.Kind, flow.TokenTTL)
		return err
	})
	if err != nil {
		s.metrics.RecordSubmission(kind, metrics.StatusError)
		return nil, err
	}

	s.metrics.RecordSubmission(kind, metrics.StatusAccepted)
	s.logger.Info("submission recorded", "kind", kind, "subject_id", subject.ID, "expires_at", token.ExpiresAt)

	verifyURL := BuildVerifyURL(sub.BaseURL, flow.VerifyPath, rawToken)
	notified := s.effects.Run(ctx, "confirmation", func(ctx context.Context) error {
		return s.notifier.SendConfirmation(ctx, subject, verifyURL, flow.TokenTTL)
	})

	return &IntakeResult{
		SubjectID: subject.ID,
		ExpiresAt: token.ExpiresAt,
		Notified:  notified,
	}, nil
}

// BuildVerifyURL builds the redemption link carrying the raw token.
func BuildVerifyURL(baseURL, path, rawToken string) string {
	return strings.TrimRight(baseURL, "/") + path + "?token=" + url.QueryEscape(rawToken)
}
