package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/validation"
)

// StripCodeFences removes a wrapping ``` or ```json fence, which models add
// even when asked for bare JSON.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseVoice decodes and strictly validates a brand voice response. The
// envelope must be exactly {"brandVoice": {...}}. A missing business summary
// is derived from req; a missing company name falls back to req.BusinessName.
func ParseVoice(raw string, req VoiceRequest) (models.VoiceProfile, error) {
	body := StripCodeFences(raw)
	if body == "" {
		return models.VoiceProfile{}, fmt.Errorf("%w: empty generation response", core.ErrValidation)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return models.VoiceProfile{}, fmt.Errorf("%w: response is not a JSON object: %v", core.ErrValidation, err)
	}
	inner, ok := envelope["brandVoice"]
	if !ok || len(envelope) != 1 {
		return models.VoiceProfile{}, fmt.Errorf("%w: response envelope must contain only brandVoice", core.ErrValidation)
	}

	var voice models.VoiceProfile
	if err := json.Unmarshal(inner, &voice); err != nil {
		return models.VoiceProfile{}, fmt.Errorf("%w: malformed brandVoice: %v", core.ErrValidation, err)
	}

	voice.CompanyName = strings.TrimSpace(voice.CompanyName)
	if voice.CompanyName == "" {
		voice.CompanyName = req.BusinessName
	}
	voice.BusinessSummary = strings.TrimSpace(voice.BusinessSummary)
	if voice.BusinessSummary == "" {
		voice.BusinessSummary = Summarize(req.BusinessName, req.BusinessDescription)
	}

	voice.SampleBlogPost = strings.TrimSpace(voice.SampleBlogPost)
	for i := range voice.Pillars {
		voice.Pillars[i] = trimPillar(voice.Pillars[i])
	}

	if err := ValidateVoice(voice); err != nil {
		return models.VoiceProfile{}, err
	}
	return voice, nil
}

func trimPillar(p models.Pillar) models.Pillar {
	p.Name = strings.TrimSpace(p.Name)
	p.WhatItMeans = trimAll(p.WhatItMeans)
	p.WhatItDoesntMean = trimAll(p.WhatItDoesntMean)
	p.IconicBrandInspiration = trimAll(p.IconicBrandInspiration)
	return p
}

func trimAll(entries []string) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = strings.TrimSpace(e)
	}
	return out
}

// ValidateVoice enforces the pillar contract: exactly three pillars, each with
// a name, at least three dos, three don'ts and two brand examples.
func ValidateVoice(voice models.VoiceProfile) error {
	return validation.ValidateStruct(voice)
}

// Summarize derives a one-line summary from the first sentence of description.
func Summarize(businessName, description string) string {
	d := strings.Join(strings.Fields(description), " ")
	if i := strings.IndexAny(d, ".!?"); i >= 0 {
		d = d[:i+1]
	}
	if d == "" {
		if businessName == "" {
			return "A growing business with a distinctive voice."
		}
		return businessName + " is a growing business with a distinctive voice."
	}
	return d
}
