package model

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractionMethod is the detected shape of a raw payload.
type ExtractionMethod string

const (
	MethodMarkdown ExtractionMethod = "markdown"
	MethodHTML     ExtractionMethod = "html"
	MethodJSON     ExtractionMethod = "json"
	MethodMixed    ExtractionMethod = "mixed"
)

// RawContentEnvelope is the pipeline's input: one unit of scraped content
// plus the provenance needed to enrich whatever is extracted from it.
// Payload is either a string document or a decoded JSON object from the
// upstream scraper. Created by the caller, consumed once.
type RawContentEnvelope struct {
	Payload          any               `json:"payload"`
	SourceURL        string            `json:"sourceUrl"`
	SearchParameters map[string]string `json:"searchParameters,omitempty"`
	ExtractionHints  string            `json:"extractionHints,omitempty"`
}

// Validate rejects malformed envelopes before any network cost is incurred.
func (e RawContentEnvelope) Validate() error {
	if e.Payload == nil {
		return eris.New("envelope: payload is required")
	}
	if strings.TrimSpace(e.SourceURL) == "" {
		return eris.New("envelope: sourceUrl is required")
	}
	if !validURL(e.SourceURL) {
		return eris.Errorf("envelope: sourceUrl %q is not a valid URL", e.SourceURL)
	}
	return nil
}

// validURL reports whether s parses as an absolute http(s) URL.
func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// TokenUsage tracks token consumption for a run.
type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add accumulates usage from another TokenUsage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns combined input and output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
