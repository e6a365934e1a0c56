package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/validation"
)

// OnboardingService is the onboarding record store. Drafts are keyed by an
// anonymous session until reconciliation moves them to an account.
type OnboardingService struct {
	db  core.DbClient
	log *zap.Logger
}

func NewOnboardingService(db core.DbClient, log *zap.Logger) *OnboardingService {
	return &OnboardingService{db: db, log: log}
}

func normalizeFields(f models.DraftFields) models.DraftFields {
	f.BusinessName = strings.TrimSpace(f.BusinessName)
	f.YearFounded = strings.TrimSpace(f.YearFounded)
	f.Website = strings.TrimSpace(f.Website)
	return f
}

// SaveForSession upserts the session's draft and returns its id.
func (s *OnboardingService) SaveForSession(ctx context.Context, sessionID string, fields models.DraftFields) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", core.ErrValidation)
	}
	fields = normalizeFields(fields)
	if err := validation.ValidateStruct(fields); err != nil {
		return "", err
	}

	d, err := s.db.UpsertDraftForSession(ctx, sessionID, fields)
	if err != nil {
		return "", fmt.Errorf("save session draft: %w", err)
	}
	return d.ID, nil
}

// SaveForAccount patches the account's draft, or adopts the draft of
// sessionID, or creates a new one, in that order. The returned id is stable
// across repeated calls.
func (s *OnboardingService) SaveForAccount(ctx context.Context, accountID string, fields models.DraftFields, sessionID string) (string, error) {
	if accountID == "" {
		return "", core.ErrNotAuthenticated
	}
	fields = normalizeFields(fields)
	if err := validation.ValidateStruct(fields); err != nil {
		return "", err
	}

	d, err := s.db.UpsertDraftForAccount(ctx, accountID, fields, strings.TrimSpace(sessionID))
	if err != nil {
		return "", fmt.Errorf("save account draft: %w", err)
	}
	s.log.Debug("saved account draft",
		zap.String("account_id", accountID),
		zap.String("draft_id", d.ID),
		zap.Bool("from_session", sessionID != ""))
	return d.ID, nil
}

func (s *OnboardingService) GetForSession(ctx context.Context, sessionID string) (*models.OnboardingDraft, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil
	}
	return s.db.GetDraftBySession(ctx, sessionID)
}

func (s *OnboardingService) GetForAccount(ctx context.Context, accountID string) (*models.OnboardingDraft, error) {
	if accountID == "" {
		return nil, nil
	}
	return s.db.GetDraftByAccount(ctx, accountID)
}

// GetByID returns the draft only when accountID owns it.
func (s *OnboardingService) GetByID(ctx context.Context, id, accountID string) (*models.OnboardingDraft, error) {
	d, err := s.db.GetDraftByID(ctx, id)
	if err != nil || d == nil {
		return nil, err
	}
	if d.AccountID == nil || *d.AccountID != accountID {
		return nil, nil
	}
	return d, nil
}
