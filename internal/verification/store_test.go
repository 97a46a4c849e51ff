package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threeeaglesforge/leadverify/internal/domain"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*TokenStore, *memTokens, *clock) {
	repo := newMemTokens()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewTokenStore(repo)
	store.now = c.now
	return store, repo, c
}

func TestTokenStore_Issue(t *testing.T) {
	store, repo, c := newTestStore()
	subjectID := uuid.New()

	raw, token, err := store.Issue(context.Background(), nil, subjectID, "a@b.com", domain.SubjectKindLead, 24*time.Hour)
	require.NoError(t, err)

	assert.NotEmpty(t, raw)
	assert.Equal(t, HashToken(raw), token.TokenHash)
	assert.NotEqual(t, raw, token.TokenHash, "raw token must not be stored")
	assert.Equal(t, subjectID, token.SubjectID)
	assert.Equal(t, c.t.Add(24*time.Hour), token.ExpiresAt)
	assert.Nil(t, token.ConsumedAt)
	assert.Equal(t, []string{"lead:a@b.com"}, repo.locks)
	assert.NotNil(t, repo.get(token.ID))
}

func TestTokenStore_Issue_NonPositiveTTL(t *testing.T) {
	store, repo, _ := newTestStore()

	for _, ttl := range []time.Duration{0, -time.Minute} {
		_, _, err := store.Issue(context.Background(), nil, uuid.New(), "a@b.com", domain.SubjectKindLead, ttl)
		assert.Error(t, err)
	}
	assert.Empty(t, repo.tokens)
}

func TestTokenStore_Issue_SingleActiveToken(t *testing.T) {
	store, repo, c := newTestStore()
	ctx := context.Background()

	first, _, err := store.Issue(ctx, nil, uuid.New(), "a@b.com", domain.SubjectKindLead, time.Hour)
	require.NoError(t, err)
	second, _, err := store.Issue(ctx, nil, uuid.New(), "a@b.com", domain.SubjectKindLead, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.live("a@b.com", domain.SubjectKindLead, c.t))

	_, err = store.LookupValid(ctx, nil, first, domain.SubjectKindLead)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired, "superseded token must not redeem")

	_, err = store.LookupValid(ctx, nil, second, domain.SubjectKindLead)
	assert.NoError(t, err)
}

func TestTokenStore_Issue_OtherKindUntouched(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	lead, _, err := store.Issue(ctx, nil, uuid.New(), "a@b.com", domain.SubjectKindLead, time.Hour)
	require.NoError(t, err)
	_, _, err = store.Issue(ctx, nil, uuid.New(), "a@b.com", domain.SubjectKindSubscription, time.Hour)
	require.NoError(t, err)

	_, err = store.LookupValid(ctx, nil, lead, domain.SubjectKindLead)
	assert.NoError(t, err, "a newsletter signup must not revoke a pending contact link")
}

func TestTokenStore_Issue_KeepsConsumedTokens(t *testing.T) {
	store, repo, _ := newTestStore()
	ctx := context.Background()

	_, old, err := store.Issue(ctx, nil, uuid.New(), "a@b.com", domain.SubjectKindLead, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Consume(ctx, nil, old.ID))

	_, _, err = store.Issue(ctx, nil, uuid.New(), "a@b.com", domain.SubjectKindLead, time.Hour)
	require.NoError(t, err)

	assert.NotNil(t, repo.get(old.ID), "consumed tokens are history and stay")
}

func TestTokenStore_LookupValid(t *testing.T) {
	store, _, c := newTestStore()
	ctx := context.Background()

	raw, issued, err := store.Issue(ctx, nil, uuid.New(), "a@b.com", domain.SubjectKindLead, time.Hour)
	require.NoError(t, err)

	got, err := store.LookupValid(ctx, nil, raw, domain.SubjectKindLead)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, got.ID)

	_, err = store.LookupValid(ctx, nil, raw, domain.SubjectKindSubscription)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired, "tokens are bound to their flow")

	_, err = store.LookupValid(ctx, nil, "not-a-token", domain.SubjectKindLead)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)

	c.advance(time.Hour)
	_, err = store.LookupValid(ctx, nil, raw, domain.SubjectKindLead)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired, "expires_at is exclusive")
}

func TestTokenStore_Consume(t *testing.T) {
	store, repo, c := newTestStore()
	ctx := context.Background()

	raw, token, err := store.Issue(ctx, nil, uuid.New(), "a@b.com", domain.SubjectKindLead, time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Consume(ctx, nil, token.ID))
	require.NotNil(t, repo.get(token.ID).ConsumedAt)
	assert.Equal(t, c.t, *repo.get(token.ID).ConsumedAt)

	assert.ErrorIs(t, store.Consume(ctx, nil, token.ID), domain.ErrTokenInvalidOrExpired)

	_, err = store.LookupValid(ctx, nil, raw, domain.SubjectKindLead)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)
}

func TestTokenStore_Diagnose(t *testing.T) {
	store, _, c := newTestStore()
	ctx := context.Background()

	valid, _, err := store.Issue(ctx, nil, uuid.New(), "valid@b.com", domain.SubjectKindLead, 2*time.Hour)
	require.NoError(t, err)
	consumed, consumedTok, err := store.Issue(ctx, nil, uuid.New(), "used@b.com", domain.SubjectKindLead, 2*time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Consume(ctx, nil, consumedTok.ID))
	expired, _, err := store.Issue(ctx, nil, uuid.New(), "old@b.com", domain.SubjectKindLead, time.Hour)
	require.NoError(t, err)
	c.advance(90 * time.Minute)

	tests := []struct {
		name string
		raw  string
		kind domain.SubjectKind
		want domain.TokenState
	}{
		{"valid", valid, domain.SubjectKindLead, domain.TokenStateValid},
		{"consumed", consumed, domain.SubjectKindLead, domain.TokenStateConsumed},
		{"expired", expired, domain.SubjectKindLead, domain.TokenStateExpired},
		{"unknown", "nope", domain.SubjectKindLead, domain.TokenStateNotFound},
		{"other flow", valid, domain.SubjectKindSubscription, domain.TokenStateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Diagnose(ctx, nil, tt.raw, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
