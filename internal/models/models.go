package models

import (
	"time"
)

// Account represents an authenticated user of the system.
type Account struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// DraftFields are the questionnaire answers a user fills in during onboarding.
type DraftFields struct {
	BusinessName        string `json:"businessName" validate:"max=200"`
	YearFounded         string `json:"yearFounded" validate:"omitempty,len=4,number"`
	BusinessDescription string `json:"businessDescription" validate:"max=4000"`
	Website             string `json:"website,omitempty" validate:"omitempty,url,max=500"`
	TargetAudience      string `json:"targetAudience" validate:"max=2000"`
	CompanyValues       string `json:"companyValues" validate:"max=2000"`
	AdditionalInfo      string `json:"additionalInfo,omitempty" validate:"max=20000"`
}

// OnboardingDraft is the persisted draft of onboarding answers.
// It is keyed by exactly one of SessionID or AccountID.
type OnboardingDraft struct {
	ID        string  `db:"id" json:"id"`
	SessionID *string `db:"session_id" json:"sessionId,omitempty"`
	AccountID *string `db:"account_id" json:"accountId,omitempty"`
	DraftFields
	GeneratedVoice *VoiceProfile `db:"generated_voice" json:"generatedVoice,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// Pillar is one of the three stylistic dimensions of a brand voice.
type Pillar struct {
	Name                   string   `json:"name" validate:"notblank"`
	WhatItMeans            []string `json:"whatItMeans" validate:"min=3,dive,notblank"`
	WhatItDoesntMean       []string `json:"whatItDoesntMean" validate:"min=3,dive,notblank"`
	IconicBrandInspiration []string `json:"iconicBrandInspiration" validate:"min=2,dive,notblank"`
}

// VoiceProfile is the generated part of a brand voice, before it is attached to an account.
type VoiceProfile struct {
	CompanyName     string   `json:"companyName"`
	BusinessSummary string   `json:"businessSummary" validate:"notblank"`
	Pillars         []Pillar `json:"pillars" validate:"len=3,dive"`
	SampleBlogPost  string   `json:"sampleBlogPost,omitempty"`
}

// BrandVoice is the voice profile owned by an account. An account has at most one.
type BrandVoice struct {
	ID                string    `db:"id" json:"id"`
	AccountID         string    `db:"account_id" json:"accountId"`
	Name              string    `db:"name" json:"name"`
	BusinessSummary   string    `db:"business_summary" json:"businessSummary"`
	Pillars           []Pillar  `db:"pillars" json:"pillars"`
	SampleBlogPost    string    `db:"sample_blog_post" json:"sampleBlogPost,omitempty"`
	OnboardingDraftID string    `db:"onboarding_draft_id" json:"onboardingDraftId"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Profile returns the generated part of the voice.
func (b *BrandVoice) Profile() VoiceProfile {
	return VoiceProfile{
		CompanyName:     b.Name,
		BusinessSummary: b.BusinessSummary,
		Pillars:         b.Pillars,
		SampleBlogPost:  b.SampleBlogPost,
	}
}

// BrandVoiceUpdate carries the editable fields of a brand voice; nil means unchanged.
type BrandVoiceUpdate struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	BusinessSummary *string  `json:"businessSummary,omitempty" validate:"omitempty,notblank,max=1000"`
	Pillars         []Pillar `json:"pillars,omitempty" validate:"omitempty,len=3,dive"`
	SampleBlogPost  *string  `json:"sampleBlogPost,omitempty"`
}

// ContentMetadata records the generation settings of a content item.
type ContentMetadata struct {
	ReadingLevel   string `json:"readingLevel,omitempty" yaml:"reading_level,omitempty"`
	Tone           string `json:"tone,omitempty" yaml:"tone,omitempty"`
	Length         string `json:"length,omitempty" yaml:"length,omitempty"`
	TargetAudience string `json:"targetAudience,omitempty" yaml:"target_audience,omitempty"`
}

// Merge overlays the non-empty fields of patch onto m.
func (m ContentMetadata) Merge(patch ContentMetadata) ContentMetadata {
	if patch.ReadingLevel != "" {
		m.ReadingLevel = patch.ReadingLevel
	}
	if patch.Tone != "" {
		m.Tone = patch.Tone
	}
	if patch.Length != "" {
		m.Length = patch.Length
	}
	if patch.TargetAudience != "" {
		m.TargetAudience = patch.TargetAudience
	}
	return m
}

// ContentItem is a piece of generated copy saved to the content library.
type ContentItem struct {
	ID           string          `db:"id" json:"id"`
	AccountID    string          `db:"account_id" json:"accountId"`
	BrandVoiceID string          `db:"brand_voice_id" json:"brandVoiceId"`
	Title        string          `db:"title" json:"title"`
	Type         string          `db:"type" json:"type"` // blog post, social post, newsletter, ...
	Body         string          `db:"body" json:"body"`
	Tags         []string        `db:"tags" json:"tags"`
	Metadata     ContentMetadata `db:"metadata" json:"metadata"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// ContentInput is the payload for saving a new content item.
type ContentInput struct {
	BrandVoiceID string          `json:"brandVoiceId" validate:"required"`
	Title        string          `json:"title" validate:"required,max=300"`
	Type         string          `json:"type" validate:"required,max=50"`
	Body         string          `json:"body" validate:"required"`
	Tags         []string        `json:"tags" validate:"max=20,dive,max=50"`
	Metadata     ContentMetadata `json:"metadata"`
}

// ContentUpdate carries the mutable fields of a content item; nil means unchanged.
type ContentUpdate struct {
	Title    *string          `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	Body     *string          `json:"body,omitempty" validate:"omitempty,min=1"`
	Tags     []string         `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	Metadata *ContentMetadata `json:"metadata,omitempty"`
}

// ContentQuery describes one listing request against an account's content.
type ContentQuery struct {
	AccountID   string   `json:"-"`
	SearchQuery string   `json:"searchQuery,omitempty"`
	Type        string   `json:"type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Cursor      string   `json:"cursor,omitempty"`
}

// ContentPage is one page of a content listing.
type ContentPage struct {
	Items      []ContentItem `json:"items"`
	NextCursor *string       `json:"nextCursor"`
	HasMore    bool          `json:"hasMore"`
}

// ContentFacets lists the filter choices currently in use for an account.
type ContentFacets struct {
	Types []string `json:"types"`
	Tags  []string `json:"tags"`
}

// Subscription mirrors the billing provider's subscription state.
type Subscription struct {
	ProviderID        string     `db:"provider_id" json:"providerId"`
	AccountID         string     `db:"account_id" json:"accountId"`
	Status            string     `db:"status" json:"status"` // active | trialing | past_due | canceled ...
	Interval          string     `db:"interval" json:"interval,omitempty"`
	CurrentPeriodEnd  *time.Time `db:"current_period_end" json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool       `db:"cancel_at_period_end" json:"cancelAtPeriodEnd"`
	EndedAt           *time.Time `db:"ended_at" json:"endedAt,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

// Entitled reports whether the subscription grants access at time now.
func (s Subscription) Entitled(now time.Time) bool {
	if s.Status != "active" && s.Status != "trialing" {
		return false
	}
	if s.EndedAt != nil && !s.EndedAt.After(now) {
		return false
	}
	if s.CurrentPeriodEnd != nil && !s.CurrentPeriodEnd.After(now) {
		return false
	}
	return true
}
