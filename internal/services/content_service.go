package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gichigi/choir/internal/content"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/validation"
)

// ErrExportDisabled is returned by export operations when no object store is configured.
var ErrExportDisabled = fmt.Errorf("content export: %w", core.ErrUnavailable)

// GenerateContentInput asks for copy in the account's stored brand voice.
type GenerateContentInput struct {
	ContentType            string `json:"contentType" validate:"required"`
	Topic                  string `json:"topic" validate:"required"`
	TargetAudience         string `json:"targetAudience,omitempty"`
	ReadingLevel           string `json:"readingLevel,omitempty"`
	Tone                   string `json:"tone,omitempty"`
	Length                 string `json:"length,omitempty"`
	AdditionalInstructions string `json:"additionalInstructions,omitempty"`
}

type ContentService struct {
	db      core.DbClient
	gen     *generation.Generator
	objects core.ObjectClient
	bucket  string
	log     *zap.Logger
}

// NewContentService builds the content library. objects may be nil, which disables export.
func NewContentService(db core.DbClient, gen *generation.Generator, objects core.ObjectClient, bucket string, log *zap.Logger) *ContentService {
	return &ContentService{db: db, gen: gen, objects: objects, bucket: bucket, log: log}
}

// List returns one page of the account's content under q's filters.
func (s *ContentService) List(ctx context.Context, q models.ContentQuery) (models.ContentPage, error) {
	if q.AccountID == "" {
		return models.ContentPage{}, core.ErrNotAuthenticated
	}
	return s.db.ListContent(ctx, content.Normalize(q))
}

// Metadata lists the distinct types and tags the account currently uses.
func (s *ContentService) Metadata(ctx context.Context, accountID string) (models.ContentFacets, error) {
	if accountID == "" {
		return models.ContentFacets{}, core.ErrNotAuthenticated
	}
	return s.db.ContentFacets(ctx, accountID)
}

func (s *ContentService) Create(ctx context.Context, accountID string, in models.ContentInput) (*models.ContentItem, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}
	voice, err := s.db.GetBrandVoiceByID(ctx, in.BrandVoiceID)
	if err != nil {
		return nil, err
	}
	if voice == nil {
		return nil, fmt.Errorf("brand voice %s: %w", in.BrandVoiceID, core.ErrNotFound)
	}
	if voice.AccountID != accountID {
		return nil, fmt.Errorf("brand voice %s: %w", in.BrandVoiceID, core.ErrNotAuthorized)
	}

	item := &models.ContentItem{
		AccountID:    accountID,
		BrandVoiceID: voice.ID,
		Title:        strings.TrimSpace(in.Title),
		Type:         strings.TrimSpace(in.Type),
		Body:         in.Body,
		Tags:         content.NormalizeTags(in.Tags),
		Metadata:     in.Metadata,
	}
	if err := s.db.CreateContent(ctx, item); err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	return item, nil
}

// Get returns the item only when accountID owns it.
func (s *ContentService) Get(ctx context.Context, id, accountID string) (*models.ContentItem, error) {
	it, err := s.db.GetContentByID(ctx, id)
	if err != nil || it == nil {
		return nil, err
	}
	if it.AccountID != accountID {
		return nil, nil
	}
	return it, nil
}

func (s *ContentService) owned(ctx context.Context, id, accountID string) (*models.ContentItem, error) {
	it, err := s.db.GetContentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("content %s: %w", id, core.ErrNotFound)
	}
	if it.AccountID != accountID {
		return nil, fmt.Errorf("content %s: %w", id, core.ErrNotAuthorized)
	}
	return it, nil
}

// Update applies upd to an owned item. Metadata is merged field by field.
func (s *ContentService) Update(ctx context.Context, id, accountID string, upd models.ContentUpdate) (*models.ContentItem, error) {
	if err := validation.ValidateStruct(upd); err != nil {
		return nil, err
	}
	it, err := s.owned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		it.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Body != nil {
		it.Body = *upd.Body
	}
	if upd.Tags != nil {
		it.Tags = content.NormalizeTags(upd.Tags)
	}
	if upd.Metadata != nil {
		it.Metadata = it.Metadata.Merge(*upd.Metadata)
	}
	if err := s.db.UpdateContent(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Delete removes an owned item. A foreign item is left untouched.
func (s *ContentService) Delete(ctx context.Context, id, accountID string) error {
	if _, err := s.owned(ctx, id, accountID); err != nil {
		return err
	}
	if err := s.db.DeleteContent(ctx, id); err != nil {
		return err
	}

	if s.objects != nil {
		if err := s.objects.DeleteFile(ctx, s.bucket, exportKey(accountID, id)); err != nil {
			s.log.Warn("could not remove exported copy", zap.String("content_id", id), zap.Error(err))
		}
	}
	return nil
}

// Generate writes copy in the account's brand voice. Generation failures
// yield fallback text, so the only errors are a missing voice or a bad request.
func (s *ContentService) Generate(ctx context.Context, accountID string, in GenerateContentInput) (generation.ContentResult, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return generation.ContentResult{}, err
	}
	voice, err := s.db.GetBrandVoiceByAccount(ctx, accountID)
	if err != nil {
		return generation.ContentResult{}, err
	}
	if voice == nil {
		return generation.ContentResult{}, fmt.Errorf("brand voice for account: %w", core.ErrNotFound)
	}

	return s.gen.Content(ctx, generation.ContentRequest{
		BrandVoice:             voice.Profile(),
		ContentType:            in.ContentType,
		Topic:                  in.Topic,
		TargetAudience:         in.TargetAudience,
		ReadingLevel:           in.ReadingLevel,
		Tone:                   in.Tone,
		Length:                 in.Length,
		AdditionalInstructions: in.AdditionalInstructions,
	}), nil
}

type frontMatter struct {
	Title     string                 `yaml:"title"`
	Type      string                 `yaml:"type"`
	Tags      []string               `yaml:"tags,omitempty"`
	Metadata  models.ContentMetadata `yaml:"metadata,omitempty"`
	CreatedAt time.Time              `yaml:"created_at"`
	UpdatedAt time.Time              `yaml:"updated_at"`
}

// RenderMarkdown renders it as markdown with a YAML front matter block.
func RenderMarkdown(it *models.ContentItem) ([]byte, error) {
	fm, err := yaml.Marshal(frontMatter{
		Title:     it.Title,
		Type:      it.Type,
		Tags:      it.Tags,
		Metadata:  it.Metadata,
		CreatedAt: it.CreatedAt.UTC(),
		UpdatedAt: it.UpdatedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("render front matter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimRight(it.Body, "\n"))
	b.WriteString("\n")
	return b.Bytes(), nil
}

func exportKey(accountID, contentID string) string {
	return path.Join("accounts", accountID, "exports", contentID+".md")
}

// Export uploads the item as markdown and returns the object URL.
func (s *ContentService) Export(ctx context.Context, id, accountID string) (string, error) {
	if s.objects == nil {
		return "", ErrExportDisabled
	}
	it, err := s.owned(ctx, id, accountID)
	if err != nil {
		return "", err
	}
	doc, err := RenderMarkdown(it)
	if err != nil {
		return "", err
	}
	url, err := s.objects.UploadFile(ctx, s.bucket, exportKey(accountID, id), doc, "text/markdown; charset=utf-8")
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	return url, nil
}

// OpenExport streams a previously exported copy. The caller closes the reader.
func (s *ContentService) OpenExport(ctx context.Context, id, accountID string) (io.ReadCloser, error) {
	if s.objects == nil {
		return nil, ErrExportDisabled
	}
	if _, err := s.owned(ctx, id, accountID); err != nil {
		return nil, err
	}
	rc, err := s.objects.GetObjectReader(ctx, s.bucket, exportKey(accountID, id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	return rc, nil
}
