package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/core"
	db "github.com/gichigi/choir/internal/core/database"
	"github.com/gichigi/choir/internal/models"
)

func subscriptionEvent(eventID, status, periodEnd string) []byte {
	return subscriptionEventFor("acc-1", eventID, status, periodEnd)
}

func subscriptionEventFor(accountID, eventID, status, periodEnd string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":"subscription.updated","data":{
		"id":"sub-1","status":%q,"recurringInterval":"month","currentPeriodEnd":%q,
		"cancelAtPeriodEnd":false,"metadata":{"accountId":%q}}}`, eventID, status, periodEnd, accountID))
}

func newSubscriptionService() *SubscriptionService {
	store := db.NewMemoryClient()
	_ = store.CreateAccount(context.Background(), &models.Account{ID: "acc-1", Email: "owner@acme.test"})
	s := NewSubscriptionService(store, "whsec", zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newSubscriptionService()
	body := subscriptionEvent("evt-1", "active", "2025-04-01T00:00:00Z")

	_, err := s.HandleWebhook(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)

	unsigned := NewSubscriptionService(db.NewMemoryClient(), "", zap.NewNop())
	_, err = unsigned.HandleWebhook(context.Background(), body, unsigned.Sign(body))
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestWebhookGrantsEntitlementOnce(t *testing.T) {
	s := newSubscriptionService()
	ctx := context.Background()

	ok, err := s.HasActiveEntitlement(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, ok)

	body := subscriptionEvent("evt-1", "active", "2025-04-01T00:00:00Z")
	applied, err := s.HandleWebhook(ctx, body, "sha256="+s.Sign(body))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.HandleWebhook(ctx, body, s.Sign(body))
	require.NoError(t, err)
	assert.False(t, applied, "replayed event is ignored")

	st, err := s.Status(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, st.Entitled)
	require.Len(t, st.Subscriptions, 1)
	assert.Equal(t, "month", st.Subscriptions[0].Interval)
}

func TestWebhookCancellationRevokesEntitlement(t *testing.T) {
	s := newSubscriptionService()
	ctx := context.Background()

	first := subscriptionEvent("evt-1", "active", "2025-04-01T00:00:00Z")
	_, err := s.HandleWebhook(ctx, first, s.Sign(first))
	require.NoError(t, err)

	second := subscriptionEvent("evt-2", "canceled", "2025-04-01T00:00:00Z")
	_, err = s.HandleWebhook(ctx, second, s.Sign(second))
	require.NoError(t, err)

	ok, err := s.HasActiveEntitlement(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWebhookExpiredPeriodIsNotEntitled(t *testing.T) {
	s := newSubscriptionService()
	body := subscriptionEvent("evt-1", "active", "2025-02-01T00:00:00Z")
	_, err := s.HandleWebhook(context.Background(), body, s.Sign(body))
	require.NoError(t, err)

	ok, err := s.HasActiveEntitlement(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWebhookValidatesPayload(t *testing.T) {
	s := newSubscriptionService()
	for _, body := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"subscription.created","data":{}}`),
		[]byte(`{"id":"evt-9","type":"subscription.created","data":{"id":"sub-1","status":"active"}}`),
	} {
		_, err := s.HandleWebhook(context.Background(), body, s.Sign(body))
		assert.ErrorIs(t, err, core.ErrValidation, string(body))
	}

	other := []byte(`{"id":"evt-10","type":"checkout.created","data":{}}`)
	applied, err := s.HandleWebhook(context.Background(), other, s.Sign(other))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestWebhookForUnknownAccountIsAppliedOnRetry(t *testing.T) {
	s := newSubscriptionService()
	ctx := context.Background()

	body := subscriptionEventFor("acc-2", "evt-1", "active", "2025-04-01T00:00:00Z")
	_, err := s.HandleWebhook(ctx, body, s.Sign(body))
	require.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "unknown account")

	malformed := subscriptionEventFor("not-a-uuid", "evt-2", "active", "2025-04-01T00:00:00Z")
	_, err = s.HandleWebhook(ctx, malformed, s.Sign(malformed))
	require.ErrorIs(t, err, core.ErrValidation)

	// The account signs up; the provider redelivers the same event.
	require.NoError(t, s.db.CreateAccount(ctx, &models.Account{ID: "acc-2", Email: "late@acme.test"}))
	applied, err := s.HandleWebhook(ctx, body, s.Sign(body))
	require.NoError(t, err)
	assert.True(t, applied, "a rejected event was not recorded as processed")

	ok, err := s.HasActiveEntitlement(ctx, "acc-2")
	require.NoError(t, err)
	assert.True(t, ok)
}
