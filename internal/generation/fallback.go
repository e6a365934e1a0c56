package generation

import (
	"fmt"
	"strings"

	"github.com/gichigi/choir/internal/models"
)

// FallbackVoice is the fixed brand voice used when generation fails.
// Only the company name and summary are personalised.
func FallbackVoice(businessName, description string) models.VoiceProfile {
	name := strings.TrimSpace(businessName)
	if name == "" {
		name = "Your brand"
	}
	return models.VoiceProfile{
		CompanyName:     name,
		BusinessSummary: Summarize(businessName, description),
		Pillars: []models.Pillar{
			{
				Name: "Clarity",
				WhatItMeans: []string{
					"Lead with the point, then add detail",
					"Use plain words over jargon",
					"Keep sentences short and scannable",
				},
				WhatItDoesntMean: []string{
					"Dumbing down the message",
					"Leaving out important nuance",
					"Sounding curt or cold",
				},
				IconicBrandInspiration: []string{
					"Apple - says more with fewer words",
					"Stripe - explains complex products simply",
				},
			},
			{
				Name: "Warmth",
				WhatItMeans: []string{
					"Write the way a helpful person talks",
					"Acknowledge the reader's situation",
					"Celebrate customers and their wins",
				},
				WhatItDoesntMean: []string{
					"Forced jokes or slang",
					"Over-familiarity",
					"Empty praise",
				},
				IconicBrandInspiration: []string{
					"Mailchimp - friendly without being silly",
					"Airbnb - makes strangers feel welcome",
				},
			},
			{
				Name: "Confidence",
				WhatItMeans: []string{
					"State what we do well without hedging",
					"Back claims with specifics",
					"Give clear next steps",
				},
				WhatItDoesntMean: []string{
					"Arrogance or talking down",
					"Overpromising",
					"Dismissing alternatives",
				},
				IconicBrandInspiration: []string{
					"Nike - direct and motivating",
					"Patagonia - firm about what it stands for",
				},
			},
		},
		SampleBlogPost: fmt.Sprintf("At %s, we believe good work speaks for itself, so we keep things clear and warm. "+
			"This is where we share what we are building and how it can help you.", name),
	}
}

// FallbackContent builds editable draft copy from the request when generation fails.
func FallbackContent(req ContentRequest) string {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = "Untitled"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", topic)
	if req.BrandVoice.BusinessSummary != "" {
		fmt.Fprintf(&b, "%s\n\n", req.BrandVoice.BusinessSummary)
	}
	for _, p := range req.BrandVoice.Pillars {
		fmt.Fprintf(&b, "## %s\n\n", p.Name)
		if len(p.WhatItMeans) > 0 {
			fmt.Fprintf(&b, "Write about %s with this in mind: %s.\n\n", topic, strings.ToLower(p.WhatItMeans[0]))
		}
	}
	b.WriteString("_Draft generated offline. Edit before publishing._\n")
	return b.String()
}
