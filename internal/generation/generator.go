// Package generation is the boundary to the text generation provider. Every
// call is bounded by a timeout and strictly validated, and any failure is
// downgraded to usable fallback output.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/validation"
)

const DefaultTimeout = 45 * time.Second

// VoiceRequest carries the onboarding answers a voice is generated from.
type VoiceRequest struct {
	BusinessName        string `json:"businessName" validate:"required"`
	YearFounded         string `json:"yearFounded,omitempty"`
	BusinessDescription string `json:"businessDescription" validate:"required"`
	TargetAudience      string `json:"targetAudience" validate:"required"`
	CompanyValues       string `json:"companyValues" validate:"required"`
	AdditionalInfo      string `json:"additionalInfo,omitempty"`
}

func VoiceRequestFromDraft(f models.DraftFields) VoiceRequest {
	return VoiceRequest{
		BusinessName:        f.BusinessName,
		YearFounded:         f.YearFounded,
		BusinessDescription: f.BusinessDescription,
		TargetAudience:      f.TargetAudience,
		CompanyValues:       f.CompanyValues,
		AdditionalInfo:      f.AdditionalInfo,
	}
}

// ContentRequest asks for one piece of copy in a given voice.
type ContentRequest struct {
	BrandVoice             models.VoiceProfile `json:"brandVoice"`
	ContentType            string              `json:"contentType" validate:"required"`
	Topic                  string              `json:"topic" validate:"required"`
	TargetAudience         string              `json:"targetAudience,omitempty"`
	ReadingLevel           string              `json:"readingLevel,omitempty"`
	Tone                   string              `json:"tone,omitempty"`
	Length                 string              `json:"length,omitempty"`
	AdditionalInstructions string              `json:"additionalInstructions,omitempty"`
}

// Outcome reports whether a result is a fallback and why.
type Outcome struct {
	Fallback bool   `json:"fallback"`
	Warning  string `json:"warning,omitempty"`
	Cause    error  `json:"-"`
}

type VoiceResult struct {
	Voice models.VoiceProfile `json:"brandVoice"`
	Outcome
}

type ContentResult struct {
	Content string `json:"content"`
	Outcome
}

type Generator struct {
	provider core.LLMProvider
	timeout  time.Duration
	log      *zap.Logger
}

// NewGenerator wraps provider. A nil provider makes every call fall back.
func NewGenerator(provider core.LLMProvider, timeout time.Duration, log *zap.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{provider: provider, timeout: timeout, log: log}
}

func (g *Generator) call(ctx context.Context, system, user string) (string, error) {
	if g.provider == nil {
		return "", fmt.Errorf("%w: no generation provider configured", core.ErrTransport)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.provider.Generate(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	return out, nil
}

// BrandVoice generates a voice for req. It never fails: validation and
// transport errors yield the fallback voice with Outcome.Fallback set.
func (g *Generator) BrandVoice(ctx context.Context, req VoiceRequest) VoiceResult {
	if err := validation.ValidateStruct(req); err != nil {
		return g.voiceFallback(req, "Some onboarding answers are missing, so a starter voice was used.", err)
	}

	raw, err := g.call(ctx, voiceSystemPrompt, voiceUserPrompt(req))
	if err != nil {
		return g.voiceFallback(req, "The voice generator is unavailable right now, so a starter voice was used.", err)
	}

	voice, err := ParseVoice(raw, req)
	if err != nil {
		return g.voiceFallback(req, "The generated voice was incomplete, so a starter voice was used.", err)
	}
	return VoiceResult{Voice: voice}
}

func (g *Generator) voiceFallback(req VoiceRequest, warning string, cause error) VoiceResult {
	g.log.Warn("brand voice generation fell back",
		zap.String("business_name", req.BusinessName),
		zap.Bool("transport", errors.Is(cause, core.ErrTransport)),
		zap.Error(cause))
	return VoiceResult{
		Voice:   FallbackVoice(req.BusinessName, req.BusinessDescription),
		Outcome: Outcome{Fallback: true, Warning: warning, Cause: cause},
	}
}

// Content generates copy for req, falling back to editable draft text.
func (g *Generator) Content(ctx context.Context, req ContentRequest) ContentResult {
	if err := validation.ValidateStruct(req); err != nil {
		return g.contentFallback(req, "Some details were missing, so a starter draft was used.", err)
	}

	raw, err := g.call(ctx, contentSystemPrompt, contentUserPrompt(req))
	if err != nil {
		return g.contentFallback(req, "The content generator is unavailable right now, so a starter draft was used.", err)
	}

	text := StripCodeFences(raw)
	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("%w: empty content", core.ErrValidation)
		return g.contentFallback(req, "The generator returned nothing, so a starter draft was used.", err)
	}
	return ContentResult{Content: text}
}

func (g *Generator) contentFallback(req ContentRequest, warning string, cause error) ContentResult {
	g.log.Warn("content generation fell back",
		zap.String("content_type", req.ContentType),
		zap.Bool("transport", errors.Is(cause, core.ErrTransport)),
		zap.Error(cause))
	return ContentResult{
		Content: FallbackContent(req),
		Outcome: Outcome{Fallback: true, Warning: warning, Cause: cause},
	}
}
