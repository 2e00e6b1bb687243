package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nestboard/listing-cli/internal/model"
)

func TestComposeSystemPrompt_EmbedsEnums(t *testing.T) {
	prompt := ComposeSystemPrompt()

	assert.Contains(t, prompt, "INR, USD, EUR, GBP, AED, SGD")
	assert.Contains(t, prompt, "monthly, yearly, weekly, daily")
	assert.Contains(t, prompt, "sqft, sqm, acre")
	assert.Contains(t, prompt, "furnished, semi-furnished, unfurnished")
	assert.Contains(t, prompt, "available, occupied, under-maintenance, coming-soon")
	assert.Contains(t, prompt, `"properties"`)
	assert.Contains(t, prompt, `"metadata"`)
}

func TestComposeSystemPrompt_Pure(t *testing.T) {
	assert.Equal(t, ComposeSystemPrompt(), ComposeSystemPrompt())
}

func TestComposeUserPrompt_FullEnvelope(t *testing.T) {
	env := model.RawContentEnvelope{
		Payload:   "# Listing",
		SourceURL: "https://listings.example.com/search?city=blr",
		SearchParameters: map[string]string{
			"minPrice": "20000",
			"city":     "bangalore",
		},
		ExtractionHints: "listings are in the table under Results",
	}
	cls := Classification{Method: model.MethodMarkdown, Content: "# Listing"}

	prompt := ComposeUserPrompt(env, cls)

	assert.Contains(t, prompt, "Content format: markdown")
	assert.Contains(t, prompt, "Source URL: https://listings.example.com/search?city=blr")
	assert.Contains(t, prompt, "Extraction hints: listings are in the table under Results")
	assert.Contains(t, prompt, "--- Scraped content ---")
	assert.Contains(t, prompt, "# Listing")
	assert.Contains(t, prompt, "Extract ALL property listings found in the content above, not just the first one.")

	// Search parameters render with sorted keys.
	cityIdx := strings.Index(prompt, "city: bangalore")
	priceIdx := strings.Index(prompt, "minPrice: 20000")
	assert.Greater(t, priceIdx, cityIdx)
	assert.Greater(t, cityIdx, 0)
}

func TestComposeUserPrompt_OmitsEmptySections(t *testing.T) {
	env := model.RawContentEnvelope{
		Payload:   "content",
		SourceURL: "https://listings.example.com",
	}
	cls := Classification{Method: model.MethodHTML, Content: "content"}

	prompt := ComposeUserPrompt(env, cls)

	assert.NotContains(t, prompt, "Extraction hints:")
	assert.NotContains(t, prompt, "Search parameters")
}

func TestComposeUserPrompt_Deterministic(t *testing.T) {
	env := model.RawContentEnvelope{
		Payload:   "x",
		SourceURL: "https://listings.example.com",
		SearchParameters: map[string]string{
			"c": "3", "a": "1", "b": "2",
		},
	}
	cls := Classification{Method: model.MethodMixed, Content: "x"}

	first := ComposeUserPrompt(env, cls)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComposeUserPrompt(env, cls))
	}
}
