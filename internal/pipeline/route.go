package pipeline

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/nestboard/listing-cli/internal/model"
)

// ResponseMetadata is the model's own metadata block, as reported.
// Confidence is a pointer so the enricher can tell "absent" from "zero".
type ResponseMetadata struct {
	Confidence      *float64
	Warnings        []string
	FieldsExtracted []string
	FieldsMissing   []string
}

// RoutedResponse is the outcome of shape inspection on parsed model output:
// either a UI specification or a property batch, never both.
type RoutedResponse struct {
	UISpec     *model.UISpecification
	Candidates []model.CandidateProperty
	Metadata   ResponseMetadata
}

// RouteResponse dispatches parsed model output to the UI-specification
// pathway or the property pathway. A "component"/"components" key means the
// model described an interface: the whole parsed object becomes the UI spec
// and the property batch is empty. Otherwise "properties" (default empty)
// and "metadata" (default empty) continue down the property pathway. Both
// outcomes are valid; this is a branch, not an error.
func RouteResponse(parsed map[string]any) (RoutedResponse, error) {
	if _, ok := parsed["component"]; ok {
		return uiRoute(parsed), nil
	}
	if _, ok := parsed["components"]; ok {
		return uiRoute(parsed), nil
	}

	var routed RoutedResponse

	if raw, ok := parsed["properties"]; ok {
		candidates, err := decodeCandidates(raw)
		if err != nil {
			return RoutedResponse{}, eris.Wrap(err, "route: decode properties")
		}
		routed.Candidates = candidates
	}

	if raw, ok := parsed["metadata"].(map[string]any); ok {
		routed.Metadata = decodeMetadata(raw)
	}

	return routed, nil
}

func uiRoute(parsed map[string]any) RoutedResponse {
	return RoutedResponse{
		UISpec: &model.UISpecification{
			Spec:       parsed,
			Confidence: model.UISpecConfidence,
			Mode:       model.UIGenerationMode,
		},
	}
}

// decodeCandidates re-marshals the properties array into typed candidates.
// Unknown fields are dropped; a non-array shape is an error.
func decodeCandidates(raw any) ([]model.CandidateProperty, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, eris.Wrap(err, "marshal")
	}
	var candidates []model.CandidateProperty
	if err := json.Unmarshal(b, &candidates); err != nil {
		return nil, eris.Wrap(err, "unmarshal")
	}
	return candidates, nil
}

func decodeMetadata(raw map[string]any) ResponseMetadata {
	var meta ResponseMetadata
	if conf, ok := toFloat64(raw["confidence"]); ok {
		meta.Confidence = &conf
	}
	meta.Warnings = toStringSlice(raw["warnings"])
	meta.FieldsExtracted = toStringSlice(raw["fieldsExtracted"])
	meta.FieldsMissing = toStringSlice(raw["fieldsMissing"])
	return meta
}

// toFloat64 attempts to convert an any value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toStringSlice converts a decoded JSON array to strings, skipping
// non-string elements.
func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
