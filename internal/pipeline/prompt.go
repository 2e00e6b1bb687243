package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nestboard/listing-cli/internal/model"
)

// systemPromptTemplate carries the fixed domain rules for property
// extraction. The output envelope shape here must stay in sync with
// RouteResponse and ResponseMetadata.
const systemPromptTemplate = `You are a real-estate data extraction engine for a property rental platform.

You receive raw content scraped from third-party listing sites and extract every property listing it contains into structured JSON.

Field rules:
- Required for every property: "title", "description", "location".
- Optional, include only when present in the content: "price" {"amount" (number > 0), "currency" (one of: %s), "period" (one of: %s)}, "size" {"area" (number > 0), "unit" (one of: %s)}, "amenities" (array of strings), "features" {"furnishing" (one of: %s), "parking", "petsAllowed", "balcony", "gym", "swimmingPool", "airConditioning" (booleans)}, "contact" {"phone", "email", "contactPerson"}, "media" {"images", "videos" (arrays of absolute URLs)}, "availability" {"status" (one of: %s), "date"}.
- Omit any field you cannot determine from the content. Never guess or invent values.

Respond with exactly this JSON envelope and nothing else:
{"properties": [...], "metadata": {"confidence": <0.0-1.0 overall extraction confidence>, "warnings": [<strings describing ambiguities>], "fieldsExtracted": [<field names you populated>], "fieldsMissing": [<required or expected fields absent from the content>]}}`

// ComposeSystemPrompt builds the system instructions. Pure: identical output
// on every call.
func ComposeSystemPrompt() string {
	return fmt.Sprintf(systemPromptTemplate,
		strings.Join(model.Currencies, ", "),
		strings.Join(model.Periods, ", "),
		strings.Join(model.SizeUnits, ", "),
		strings.Join(model.Furnishings, ", "),
		strings.Join(model.AvailabilityStatuses, ", "),
	)
}

// ComposeUserPrompt builds the user instructions: provenance, optional hints
// and prior search parameters, then the classified content and a closing
// directive. Pure and deterministic given identical inputs.
func ComposeUserPrompt(env model.RawContentEnvelope, cls Classification) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Content format: %s\n", cls.Method)
	fmt.Fprintf(&b, "Source URL: %s\n", env.SourceURL)

	if env.ExtractionHints != "" {
		b.WriteString("Extraction hints: " + env.ExtractionHints + "\n")
	}

	if len(env.SearchParameters) > 0 {
		b.WriteString("Search parameters that produced this content:\n")
		b.WriteString(formatSearchParameters(env.SearchParameters))
	}

	b.WriteString("\n--- Scraped content ---\n")
	b.WriteString(cls.Content)
	b.WriteString("\n--- End of content ---\n\n")
	b.WriteString("Extract ALL property listings found in the content above, not just the first one.")

	return b.String()
}

// formatSearchParameters serializes the filter map with sorted keys so the
// composed prompt is deterministic.
func formatSearchParameters(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, params[k])
	}
	return b.String()
}
