package verification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/threeeaglesforge/leadverify/internal/domain"
)

func TestBestEffort_Run(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(ctx context.Context) error
		wantOK bool
		status string
	}{
		{"sent", func(context.Context) error { return nil }, true, "sent"},
		{"failed", func(context.Context) error { return errBoom }, false, "failed"},
		{"skipped", func(context.Context) error {
			return fmt.Errorf("%w: no operator address", domain.ErrNotificationSkipped)
		}, false, "skipped"},
		{"panic", func(context.Context) error { panic("boom") }, false, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newCountingRecorder()
			b := NewBestEffort(discardLogger(), rec, time.Second)

			assert.Equal(t, tt.wantOK, b.Run(context.Background(), "verified", tt.fn))
			assert.Equal(t, 1, rec.get("notification:verified:"+tt.status))
		})
	}
}

func TestBestEffort_DetachesCancellation(t *testing.T) {
	b := NewBestEffort(discardLogger(), nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr error
	var hasDeadline bool
	ok := b.Run(ctx, "confirmation", func(ctx context.Context) error {
		sawErr = ctx.Err()
		_, hasDeadline = ctx.Deadline()
		return nil
	})

	assert.True(t, ok)
	assert.NoError(t, sawErr, "a client hanging up after commit must not cancel the email")
	assert.True(t, hasDeadline, "the side effect gets its own timeout")
}

func TestBestEffort_Timeout(t *testing.T) {
	rec := newCountingRecorder()
	b := NewBestEffort(discardLogger(), rec, 10*time.Millisecond)

	ok := b.Run(context.Background(), "confirmation", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.False(t, ok)
	assert.Equal(t, 1, rec.get("notification:confirmation:failed"))
}
