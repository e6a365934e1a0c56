package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gichigi/choir/internal/content"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
)

// MemoryClient is a DbClient held entirely in process memory.
// Every operation runs under one mutex, which makes the draft upserts atomic.
type MemoryClient struct {
	mu sync.Mutex

	accounts      map[string]models.Account
	drafts        map[string]models.OnboardingDraft
	voices        map[string]models.BrandVoice
	items         map[string]models.ContentItem
	subscriptions map[string]models.Subscription
	events        map[string]string

	now func() time.Time
}

var _ core.DbClient = (*MemoryClient)(nil)

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		accounts:      map[string]models.Account{},
		drafts:        map[string]models.OnboardingDraft{},
		voices:        map[string]models.BrandVoice{},
		items:         map[string]models.ContentItem{},
		subscriptions: map[string]models.Subscription{},
		events:        map[string]string{},
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (c *MemoryClient) Close() error { return nil }

// Accounts

func (c *MemoryClient) CreateAccount(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errors.New("nil account")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	email := strings.ToLower(account.Email)
	for _, a := range c.accounts {
		if strings.ToLower(a.Email) == email {
			return fmt.Errorf("%w: email already registered", core.ErrValidation)
		}
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := c.now()
	account.CreatedAt, account.UpdatedAt = now, now
	c.accounts[account.ID] = *account
	return nil
}

func (c *MemoryClient) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	email = strings.ToLower(email)
	for _, a := range c.accounts {
		if strings.ToLower(a.Email) == email {
			return &a, nil
		}
	}
	return nil, nil
}

func (c *MemoryClient) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.accounts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

// Onboarding drafts

func (c *MemoryClient) findDraft(match func(*models.OnboardingDraft) bool) (models.OnboardingDraft, bool) {
	for _, d := range c.drafts {
		if match(&d) {
			return d, true
		}
	}
	return models.OnboardingDraft{}, false
}

func bySession(sessionID string) func(*models.OnboardingDraft) bool {
	return func(d *models.OnboardingDraft) bool { return d.SessionID != nil && *d.SessionID == sessionID }
}

func byAccount(accountID string) func(*models.OnboardingDraft) bool {
	return func(d *models.OnboardingDraft) bool { return d.AccountID != nil && *d.AccountID == accountID }
}

func (c *MemoryClient) UpsertDraftForSession(ctx context.Context, sessionID string, fields models.DraftFields) (*models.OnboardingDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	d, ok := c.findDraft(bySession(sessionID))
	if !ok {
		sid := sessionID
		d = models.OnboardingDraft{ID: uuid.NewString(), SessionID: &sid, CreatedAt: now}
	}
	d.DraftFields = fields
	d.UpdatedAt = now
	c.drafts[d.ID] = d
	return cloneDraft(d), nil
}

func (c *MemoryClient) UpsertDraftForAccount(ctx context.Context, accountID string, fields models.DraftFields, sessionID string) (*models.OnboardingDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	d, ok := c.findDraft(byAccount(accountID))
	if !ok && sessionID != "" {
		if d, ok = c.findDraft(bySession(sessionID)); ok {
			aid := accountID
			d.AccountID = &aid
			d.SessionID = nil
		}
	}
	if !ok {
		aid := accountID
		d = models.OnboardingDraft{ID: uuid.NewString(), AccountID: &aid, CreatedAt: now}
	}
	d.DraftFields = fields
	d.UpdatedAt = now
	c.drafts[d.ID] = d
	return cloneDraft(d), nil
}

func (c *MemoryClient) GetDraftBySession(ctx context.Context, sessionID string) (*models.OnboardingDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.findDraft(bySession(sessionID)); ok {
		return cloneDraft(d), nil
	}
	return nil, nil
}

func (c *MemoryClient) GetDraftByAccount(ctx context.Context, accountID string) (*models.OnboardingDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.findDraft(byAccount(accountID)); ok {
		return cloneDraft(d), nil
	}
	return nil, nil
}

func (c *MemoryClient) GetDraftByID(ctx context.Context, id string) (*models.OnboardingDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.drafts[id]; ok {
		return cloneDraft(d), nil
	}
	return nil, nil
}

func (c *MemoryClient) SetDraftVoice(ctx context.Context, draftID string, voice *models.VoiceProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[draftID]
	if !ok {
		return fmt.Errorf("draft %s: %w", draftID, core.ErrNotFound)
	}
	if voice != nil {
		v := cloneProfile(*voice)
		d.GeneratedVoice = &v
	} else {
		d.GeneratedVoice = nil
	}
	d.UpdatedAt = c.now()
	c.drafts[draftID] = d
	return nil
}

// Brand voices

func (c *MemoryClient) ReplaceBrandVoice(ctx context.Context, voice *models.BrandVoice) (*models.BrandVoice, error) {
	if voice == nil {
		return nil, errors.New("nil brand voice")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	v := cloneVoice(*voice)
	v.ID = uuid.NewString()
	v.CreatedAt = now
	for _, existing := range c.voices {
		if existing.AccountID == voice.AccountID {
			v.ID = existing.ID
			v.CreatedAt = existing.CreatedAt
			break
		}
	}
	v.UpdatedAt = now
	c.voices[v.ID] = v
	out := cloneVoice(v)
	return &out, nil
}

func (c *MemoryClient) GetBrandVoiceByAccount(ctx context.Context, accountID string) (*models.BrandVoice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.voices {
		if v.AccountID == accountID {
			out := cloneVoice(v)
			return &out, nil
		}
	}
	return nil, nil
}

func (c *MemoryClient) GetBrandVoiceByID(ctx context.Context, id string) (*models.BrandVoice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.voices[id]; ok {
		out := cloneVoice(v)
		return &out, nil
	}
	return nil, nil
}

func (c *MemoryClient) UpdateBrandVoice(ctx context.Context, voice *models.BrandVoice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.voices[voice.ID]
	if !ok {
		return fmt.Errorf("brand voice %s: %w", voice.ID, core.ErrNotFound)
	}
	v := cloneVoice(*voice)
	v.AccountID = existing.AccountID
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = c.now()
	c.voices[v.ID] = v
	return nil
}

func (c *MemoryClient) DeleteBrandVoice(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.voices[id]; !ok {
		return fmt.Errorf("brand voice %s: %w", id, core.ErrNotFound)
	}
	delete(c.voices, id)
	return nil
}

// Content

func (c *MemoryClient) CreateContent(ctx context.Context, item *models.ContentItem) error {
	if item == nil {
		return errors.New("nil content item")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = c.now()
	}
	item.UpdatedAt = item.CreatedAt
	item.Tags = content.NormalizeTags(item.Tags)
	c.items[item.ID] = cloneItem(*item)
	return nil
}

func (c *MemoryClient) GetContentByID(ctx context.Context, id string) (*models.ContentItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[id]; ok {
		out := cloneItem(it)
		return &out, nil
	}
	return nil, nil
}

func (c *MemoryClient) UpdateContent(ctx context.Context, item *models.ContentItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.items[item.ID]
	if !ok {
		return fmt.Errorf("content %s: %w", item.ID, core.ErrNotFound)
	}
	it := cloneItem(*item)
	it.AccountID = existing.AccountID
	it.CreatedAt = existing.CreatedAt
	it.Tags = content.NormalizeTags(it.Tags)
	it.UpdatedAt = c.now()
	c.items[it.ID] = it
	item.UpdatedAt = it.UpdatedAt
	return nil
}

func (c *MemoryClient) DeleteContent(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return fmt.Errorf("content %s: %w", id, core.ErrNotFound)
	}
	delete(c.items, id)
	return nil
}

func (c *MemoryClient) ListContent(ctx context.Context, q models.ContentQuery) (models.ContentPage, error) {
	c.mu.Lock()
	items := make([]models.ContentItem, 0, len(c.items))
	for _, it := range c.items {
		if it.AccountID == q.AccountID {
			items = append(items, cloneItem(it))
		}
	}
	c.mu.Unlock()
	return content.Paginate(items, q)
}

func (c *MemoryClient) ContentFacets(ctx context.Context, accountID string) (models.ContentFacets, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var items []models.ContentItem
	for _, it := range c.items {
		if it.AccountID == accountID {
			items = append(items, it)
		}
	}
	return content.Facets(items), nil
}

// Billing

func (c *MemoryClient) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub == nil {
		return errors.New("nil subscription")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	s := *sub
	if existing, ok := c.subscriptions[s.ProviderID]; ok {
		s.CreatedAt = existing.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	c.subscriptions[s.ProviderID] = s
	return nil
}

func (c *MemoryClient) ListSubscriptionsByAccount(ctx context.Context, accountID string) ([]models.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Subscription
	for _, s := range c.subscriptions {
		if s.AccountID == accountID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *MemoryClient) RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.events[eventID]; seen {
		return false, nil
	}
	c.events[eventID] = eventType
	return true, nil
}

func cloneDraft(d models.OnboardingDraft) *models.OnboardingDraft {
	if d.SessionID != nil {
		s := *d.SessionID
		d.SessionID = &s
	}
	if d.AccountID != nil {
		a := *d.AccountID
		d.AccountID = &a
	}
	if d.GeneratedVoice != nil {
		v := cloneProfile(*d.GeneratedVoice)
		d.GeneratedVoice = &v
	}
	return &d
}

func clonePillars(in []models.Pillar) []models.Pillar {
	if in == nil {
		return nil
	}
	out := make([]models.Pillar, len(in))
	for i, p := range in {
		out[i] = models.Pillar{
			Name:                   p.Name,
			WhatItMeans:            append([]string(nil), p.WhatItMeans...),
			WhatItDoesntMean:       append([]string(nil), p.WhatItDoesntMean...),
			IconicBrandInspiration: append([]string(nil), p.IconicBrandInspiration...),
		}
	}
	return out
}

func cloneProfile(v models.VoiceProfile) models.VoiceProfile {
	v.Pillars = clonePillars(v.Pillars)
	return v
}

func cloneVoice(v models.BrandVoice) models.BrandVoice {
	v.Pillars = clonePillars(v.Pillars)
	return v
}

func cloneItem(it models.ContentItem) models.ContentItem {
	it.Tags = append([]string{}, it.Tags...)
	return it
}
