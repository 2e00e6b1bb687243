package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/nestboard/listing-cli/internal/model"
)

// Classification pairs the detected extraction method with the text blob
// handed to the prompt composer.
type Classification struct {
	Method  model.ExtractionMethod
	Content string
}

// Payload object keys checked in priority order when the scraper hands us a
// structured payload instead of a bare document.
const (
	payloadKeyMarkdown = "markdown"
	payloadKeyHTML     = "html"
)

var payloadKeysStructured = []string{"structuredData", "extractedData"}

// ClassifyContent inspects a raw payload and tags it markdown, html, json or
// mixed. Pure and deterministic; there is no error condition, unrecognized
// shapes fall back to a serialized mixed classification.
func ClassifyContent(payload any) Classification {
	switch p := payload.(type) {
	case string:
		if looksLikeHTML(p) {
			return Classification{Method: model.MethodHTML, Content: p}
		}
		return Classification{Method: model.MethodMarkdown, Content: p}
	case map[string]any:
		if v, ok := p[payloadKeyMarkdown]; ok {
			return Classification{Method: model.MethodMarkdown, Content: fieldText(v)}
		}
		if v, ok := p[payloadKeyHTML]; ok {
			return Classification{Method: model.MethodHTML, Content: fieldText(v)}
		}
		for _, key := range payloadKeysStructured {
			if v, ok := p[key]; ok {
				return Classification{Method: model.MethodJSON, Content: fieldText(v)}
			}
		}
		return Classification{Method: model.MethodMixed, Content: fieldText(p)}
	default:
		return Classification{Method: model.MethodMixed, Content: fieldText(p)}
	}
}

// looksLikeHTML reports whether a string payload is a complete HTML document
// rather than markdown prose.
func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<!doctype html") || strings.Contains(lower, "<html")
}

// fieldText renders a payload field as text: strings pass through, anything
// else is serialized as JSON.
func fieldText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
