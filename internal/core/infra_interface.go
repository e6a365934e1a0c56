package core

import (
	"context"
	"io"
	"time"

	"github.com/gichigi/choir/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
// Point lookups return (nil, nil) when the record does not exist.
type DbClient interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)

	// UpsertDraftForSession patches the session's draft in place or inserts one.
	UpsertDraftForSession(ctx context.Context, sessionID string, fields models.DraftFields) (*models.OnboardingDraft, error)
	// UpsertDraftForAccount patches the account's draft, else re-keys the
	// session's draft to the account, else inserts a fresh one.
	UpsertDraftForAccount(ctx context.Context, accountID string, fields models.DraftFields, sessionID string) (*models.OnboardingDraft, error)
	GetDraftBySession(ctx context.Context, sessionID string) (*models.OnboardingDraft, error)
	GetDraftByAccount(ctx context.Context, accountID string) (*models.OnboardingDraft, error)
	GetDraftByID(ctx context.Context, id string) (*models.OnboardingDraft, error)
	SetDraftVoice(ctx context.Context, draftID string, voice *models.VoiceProfile) error

	// ReplaceBrandVoice upserts the account's single voice; the stored id is returned on the record.
	ReplaceBrandVoice(ctx context.Context, voice *models.BrandVoice) (*models.BrandVoice, error)
	GetBrandVoiceByAccount(ctx context.Context, accountID string) (*models.BrandVoice, error)
	GetBrandVoiceByID(ctx context.Context, id string) (*models.BrandVoice, error)
	UpdateBrandVoice(ctx context.Context, voice *models.BrandVoice) error
	DeleteBrandVoice(ctx context.Context, id string) error

	CreateContent(ctx context.Context, item *models.ContentItem) error
	GetContentByID(ctx context.Context, id string) (*models.ContentItem, error)
	UpdateContent(ctx context.Context, item *models.ContentItem) error
	DeleteContent(ctx context.Context, id string) error
	ListContent(ctx context.Context, q models.ContentQuery) (models.ContentPage, error)
	ContentFacets(ctx context.Context, accountID string) (models.ContentFacets, error)

	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	ListSubscriptionsByAccount(ctx context.Context, accountID string) ([]models.Subscription, error)
	// RecordWebhookEvent returns false when the event id was already recorded.
	RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// RateDecision is the outcome of one limiter check for a key.
type RateDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter decides whether a caller identified by key may proceed.
// An error means the decision could not be made; callers should not admit the request.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}
