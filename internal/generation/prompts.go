package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

const voiceSystemPrompt = `You are a brand voice strategist. You turn a short description of a business into a
distinctive, practical communication style built from exactly three pillars.

For each pillar give:
- a short name such as "Simplicity" or "Transparency"
- 3 to 4 points on what the pillar means for the brand's writing
- 3 points on what the pillar does not mean
- 2 to 3 iconic brands that embody the pillar, each with a one-line reason

Also give a one-sentence business summary and a 200-300 word sample blog post introduction
written in the voice.

Answer with JSON only, no prose and no markdown.`

const contentSystemPrompt = `You write marketing copy in a brand's own voice. You are given a brand voice guide
made of three pillars. Follow every "what it means" point, avoid every "what it doesn't mean"
point, and balance all three pillars. Respect the requested reading level, tone and length.
Return only the finished copy in markdown.`

func voiceUserPrompt(req VoiceRequest) string {
	var b strings.Builder
	founded := req.YearFounded
	if founded == "" {
		founded = "recent years"
	}
	fmt.Fprintf(&b, "Create a brand voice for %s, founded in %s.\n\n", req.BusinessName, founded)
	fmt.Fprintf(&b, "Business description:\n%s\n\n", req.BusinessDescription)
	fmt.Fprintf(&b, "Target audience:\n%s\n\n", req.TargetAudience)
	fmt.Fprintf(&b, "Company values:\n%s\n\n", req.CompanyValues)
	if req.AdditionalInfo != "" {
		fmt.Fprintf(&b, "Additional information:\n%s\n\n", req.AdditionalInfo)
	}
	fmt.Fprintf(&b, `Respond with this JSON structure:
{
  "brandVoice": {
    "companyName": %q,
    "businessSummary": "One sentence describing the business.",
    "pillars": [
      {
        "name": "Pillar name",
        "whatItMeans": ["point", "point", "point"],
        "whatItDoesntMean": ["point", "point", "point"],
        "iconicBrandInspiration": ["Brand - reason", "Brand - reason"]
      }
    ],
    "sampleBlogPost": "..."
  }
}`, req.BusinessName)
	return b.String()
}

func contentUserPrompt(req ContentRequest) string {
	voice, _ := json.MarshalIndent(req.BrandVoice, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s about %q.\n\n", req.ContentType, req.Topic)
	fmt.Fprintf(&b, "Brand voice:\n%s\n\n", voice)
	fmt.Fprintf(&b, "Target audience: %s\n", orUnspecified(req.TargetAudience))
	fmt.Fprintf(&b, "Reading level: %s\n", orUnspecified(req.ReadingLevel))
	fmt.Fprintf(&b, "Tone: %s\n", orUnspecified(req.Tone))
	fmt.Fprintf(&b, "Length: %s\n", orUnspecified(req.Length))
	if req.AdditionalInstructions != "" {
		fmt.Fprintf(&b, "\nAdditional instructions:\n%s\n", req.AdditionalInstructions)
	}
	return b.String()
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not specified"
	}
	return s
}
