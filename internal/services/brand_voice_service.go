package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/validation"
)

type BrandVoiceService struct {
	db    core.DbClient
	gen   *generation.Generator
	log   *zap.Logger
	group singleflight.Group
}

func NewBrandVoiceService(db core.DbClient, gen *generation.Generator, log *zap.Logger) *BrandVoiceService {
	return &BrandVoiceService{db: db, gen: gen, log: log}
}

// Generate produces a voice preview without persisting it.
func (s *BrandVoiceService) Generate(ctx context.Context, req generation.VoiceRequest) generation.VoiceResult {
	return s.gen.BrandVoice(ctx, req)
}

// Create stores voice as the account's brand voice, replacing any previous
// one, and records it on the draft it was generated from.
func (s *BrandVoiceService) Create(ctx context.Context, accountID, draftID string, voice models.VoiceProfile) (*models.BrandVoice, error) {
	if accountID == "" {
		return nil, core.ErrNotAuthenticated
	}
	if err := generation.ValidateVoice(voice); err != nil {
		return nil, err
	}

	draft, err := s.db.GetDraftByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("onboarding draft %s: %w", draftID, core.ErrNotFound)
	}
	if draft.AccountID == nil || *draft.AccountID != accountID {
		return nil, fmt.Errorf("onboarding draft %s: %w", draftID, core.ErrNotAuthorized)
	}

	return s.store(ctx, accountID, draft, voice)
}

func (s *BrandVoiceService) store(ctx context.Context, accountID string, draft *models.OnboardingDraft, voice models.VoiceProfile) (*models.BrandVoice, error) {
	name := strings.TrimSpace(voice.CompanyName)
	if name == "" {
		name = draft.BusinessName
	}
	stored, err := s.db.ReplaceBrandVoice(ctx, &models.BrandVoice{
		AccountID:         accountID,
		Name:              name,
		BusinessSummary:   voice.BusinessSummary,
		Pillars:           voice.Pillars,
		SampleBlogPost:    voice.SampleBlogPost,
		OnboardingDraftID: draft.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("store brand voice: %w", err)
	}
	if err := s.db.SetDraftVoice(ctx, draft.ID, &voice); err != nil {
		return nil, fmt.Errorf("record voice on draft: %w", err)
	}
	s.log.Info("brand voice stored", zap.String("account_id", accountID), zap.String("voice_id", stored.ID))
	return stored, nil
}

type regenerated struct {
	voice   *models.BrandVoice
	outcome generation.Outcome
}

// Regenerate builds a fresh voice from the account's draft and replaces the
// stored one. Concurrent calls for one account share a single generation.
func (s *BrandVoiceService) Regenerate(ctx context.Context, accountID string) (*models.BrandVoice, generation.Outcome, error) {
	if accountID == "" {
		return nil, generation.Outcome{}, core.ErrNotAuthenticated
	}

	v, err, shared := s.group.Do(accountID, func() (any, error) {
		// Callers that joined this flight must not fail because the first one
		// went away. The generator bounds the provider call with its own timeout.
		ctx := context.WithoutCancel(ctx)
		draft, err := s.db.GetDraftByAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if draft == nil {
			return nil, fmt.Errorf("onboarding draft for account: %w", core.ErrNotFound)
		}

		res := s.gen.BrandVoice(ctx, generation.VoiceRequestFromDraft(draft.DraftFields))
		stored, err := s.store(ctx, accountID, draft, res.Voice)
		if err != nil {
			return nil, err
		}
		return regenerated{voice: stored, outcome: res.Outcome}, nil
	})
	if err != nil {
		return nil, generation.Outcome{}, err
	}
	if shared {
		s.log.Debug("regeneration shared with in-flight call", zap.String("account_id", accountID))
	}
	r := v.(regenerated)
	return r.voice, r.outcome, nil
}

func (s *BrandVoiceService) Get(ctx context.Context, accountID string) (*models.BrandVoice, error) {
	if accountID == "" {
		return nil, nil
	}
	return s.db.GetBrandVoiceByAccount(ctx, accountID)
}

// GetByID returns the voice only when accountID owns it.
func (s *BrandVoiceService) GetByID(ctx context.Context, id, accountID string) (*models.BrandVoice, error) {
	v, err := s.db.GetBrandVoiceByID(ctx, id)
	if err != nil || v == nil {
		return nil, err
	}
	if v.AccountID != accountID {
		return nil, nil
	}
	return v, nil
}

func (s *BrandVoiceService) owned(ctx context.Context, id, accountID string) (*models.BrandVoice, error) {
	v, err := s.db.GetBrandVoiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("brand voice %s: %w", id, core.ErrNotFound)
	}
	if v.AccountID != accountID {
		return nil, fmt.Errorf("brand voice %s: %w", id, core.ErrNotAuthorized)
	}
	return v, nil
}

func (s *BrandVoiceService) Update(ctx context.Context, id, accountID string, upd models.BrandVoiceUpdate) (*models.BrandVoice, error) {
	if err := validation.ValidateStruct(upd); err != nil {
		return nil, err
	}
	v, err := s.owned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		v.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.BusinessSummary != nil {
		v.BusinessSummary = strings.TrimSpace(*upd.BusinessSummary)
	}
	if upd.Pillars != nil {
		v.Pillars = upd.Pillars
	}
	if upd.SampleBlogPost != nil {
		v.SampleBlogPost = *upd.SampleBlogPost
	}
	if err := generation.ValidateVoice(v.Profile()); err != nil {
		return nil, err
	}
	if err := s.db.UpdateBrandVoice(ctx, v); err != nil {
		return nil, err
	}
	return s.db.GetBrandVoiceByID(ctx, id)
}

func (s *BrandVoiceService) Delete(ctx context.Context, id, accountID string) error {
	if _, err := s.owned(ctx, id, accountID); err != nil {
		return err
	}
	return s.db.DeleteBrandVoice(ctx, id)
}
