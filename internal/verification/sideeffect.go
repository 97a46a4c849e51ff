package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/threeeaglesforge/leadverify/internal/domain"
	"github.com/threeeaglesforge/leadverify/internal/metrics"
)

// Notifier delivers the messages that follow a committed intake or redemption.
type Notifier interface {
	// SendConfirmation asks the submitter to redeem verifyURL within ttl.
	SendConfirmation(ctx context.Context, subject *domain.Subject, verifyURL string, ttl time.Duration) error
	// SendVerified runs once a subject has just become verified.
	SendVerified(ctx context.Context, subject *domain.Subject) error
}

// BestEffort runs post-commit side effects. Their outcome is logged and counted,
// and never turned into an error for the caller.
type BestEffort struct {
	logger  *slog.Logger
	metrics metrics.Recorder
	timeout time.Duration
}

// NewBestEffort creates a side-effect runner. A zero timeout means no deadline
// beyond the one the caller's context carries.
func NewBestEffort(logger *slog.Logger, recorder metrics.Recorder, timeout time.Duration) *BestEffort {
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	return &BestEffort{logger: logger, metrics: recorder, timeout: timeout}
}

// Run executes fn and reports whether it succeeded.
// The request context's cancellation is detached: the client hanging up after commit
// should not cancel the email.
func (b *BestEffort) Run(ctx context.Context, event string, fn func(ctx context.Context) error) (ok bool) {
	ctx = context.WithoutCancel(ctx)
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("notification panicked", "event", event, "panic", p)
			b.metrics.RecordNotification(event, metrics.StatusFailed)
			ok = false
		}
	}()

	err := fn(ctx)
	switch {
	case err == nil:
		b.metrics.RecordNotification(event, metrics.StatusSent)
		return true
	case errors.Is(err, domain.ErrNotificationSkipped):
		b.logger.Warn("notification skipped", "event", event, "reason", err)
		b.metrics.RecordNotification(event, metrics.StatusSkipped)
		return false
	default:
		b.logger.Error("notification failed", "event", event, "error", err)
		b.metrics.RecordNotification(event, metrics.StatusFailed)
		return false
	}
}
