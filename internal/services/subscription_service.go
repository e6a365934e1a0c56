package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
)

// BillingEvent is the webhook envelope sent by the billing provider.
type BillingEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type billingSubscription struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	RecurringInterval string     `json:"recurringInterval"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	EndedAt           *time.Time `json:"endedAt"`
	Metadata          struct {
		AccountID string `json:"accountId"`
	} `json:"metadata"`
}

// EntitlementStatus is the answer to "may this account generate?".
type EntitlementStatus struct {
	Entitled      bool                  `json:"entitled"`
	Subscriptions []models.Subscription `json:"subscriptions"`
}

// SubscriptionService is the subscription gate. Billing webhooks feed it and
// entitlement checks read from it.
type SubscriptionService struct {
	db     core.DbClient
	secret []byte
	log    *zap.Logger
	now    func() time.Time
}

func NewSubscriptionService(db core.DbClient, webhookSecret string, log *zap.Logger) *SubscriptionService {
	return &SubscriptionService{db: db, secret: []byte(webhookSecret), log: log, now: time.Now}
}

// HasActiveEntitlement reports whether any of the account's subscriptions is live.
func (s *SubscriptionService) HasActiveEntitlement(ctx context.Context, accountID string) (bool, error) {
	st, err := s.Status(ctx, accountID)
	return st.Entitled, err
}

func (s *SubscriptionService) Status(ctx context.Context, accountID string) (EntitlementStatus, error) {
	st := EntitlementStatus{Subscriptions: []models.Subscription{}}
	if accountID == "" {
		return st, nil
	}
	subs, err := s.db.ListSubscriptionsByAccount(ctx, accountID)
	if err != nil {
		return st, fmt.Errorf("list subscriptions: %w", err)
	}
	now := s.now()
	for _, sub := range subs {
		if sub.Entitled(now) {
			st.Entitled = true
		}
	}
	if subs != nil {
		st.Subscriptions = subs
	}
	return st, nil
}

// Sign returns the hex HMAC-SHA256 of body under the webhook secret.
func (s *SubscriptionService) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *SubscriptionService) verify(body []byte, signature string) bool {
	if len(s.secret) == 0 {
		return false
	}
	want, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hmac.Equal(want, mac.Sum(nil))
}

// HandleWebhook verifies and applies one billing event. It returns false when
// the event was already processed.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, body []byte, signature string) (bool, error) {
	if !s.verify(body, signature) {
		return false, fmt.Errorf("%w: bad webhook signature", core.ErrNotAuthenticated)
	}

	var evt BillingEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return false, fmt.Errorf("%w: malformed event: %v", core.ErrValidation, err)
	}
	if evt.ID == "" || evt.Type == "" {
		return false, fmt.Errorf("%w: event id and type are required", core.ErrValidation)
	}

	var sub *models.Subscription
	if strings.HasPrefix(evt.Type, "subscription.") {
		var data billingSubscription
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return false, fmt.Errorf("%w: malformed subscription: %v", core.ErrValidation, err)
		}
		if data.ID == "" || data.Metadata.AccountID == "" {
			return false, fmt.Errorf("%w: subscription id and metadata.accountId are required", core.ErrValidation)
		}
		sub = &models.Subscription{
			ProviderID:        data.ID,
			AccountID:         data.Metadata.AccountID,
			Status:            data.Status,
			Interval:          data.RecurringInterval,
			CurrentPeriodEnd:  data.CurrentPeriodEnd,
			CancelAtPeriodEnd: data.CancelAtPeriodEnd,
			EndedAt:           data.EndedAt,
		}
	}

	// The event id is only recorded once the event can be applied, so a
	// rejected event is still applied when the provider retries it.
	if sub != nil {
		account, err := s.db.GetAccountByID(ctx, sub.AccountID)
		if err != nil {
			return false, fmt.Errorf("look up account: %w", err)
		}
		if account == nil {
			return false, fmt.Errorf("%w: unknown account %q", core.ErrValidation, sub.AccountID)
		}
	}

	fresh, err := s.db.RecordWebhookEvent(ctx, evt.ID, evt.Type)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	if !fresh {
		s.log.Info("duplicate billing event ignored", zap.String("event_id", evt.ID))
		return false, nil
	}

	if sub == nil {
		s.log.Debug("billing event ignored", zap.String("type", evt.Type))
		return true, nil
	}
	if err := s.db.UpsertSubscription(ctx, sub); err != nil {
		return false, fmt.Errorf("upsert subscription: %w", err)
	}
	s.log.Info("subscription updated",
		zap.String("account_id", sub.AccountID),
		zap.String("subscription_id", sub.ProviderID),
		zap.String("status", sub.Status))
	return true, nil
}
