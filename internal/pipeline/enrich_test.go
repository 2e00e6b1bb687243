package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestboard/listing-cli/internal/model"
)

func testEnvelope() model.RawContentEnvelope {
	return model.RawContentEnvelope{
		Payload:          "# content",
		SourceURL:        "https://listings.example.com/search",
		SearchParameters: map[string]string{"city": "bangalore"},
	}
}

func goodCandidate() model.CandidateProperty {
	return model.CandidateProperty{
		Title:       "2BHK Apartment",
		Description: "Spacious flat near the metro",
		Location:    "Koramangala, Bangalore",
	}
}

func TestEnrichAndValidate_AttachesProvenance(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	conf := 0.9
	meta := ResponseMetadata{
		Confidence:      &conf,
		FieldsExtracted: []string{"title"},
		FieldsMissing:   []string{"price"},
	}

	valid, failures := EnrichAndValidate([]model.CandidateProperty{goodCandidate()}, meta, testEnvelope(), now)

	require.Empty(t, failures)
	require.Len(t, valid, 1)

	p := valid[0]
	assert.Equal(t, "https://listings.example.com/search", p.SourceURL)
	assert.Equal(t, now, p.ScrapedAt)
	assert.Equal(t, map[string]string{"city": "bangalore"}, p.SearchParameters)
	assert.Equal(t, "model", p.Extraction.ExtractedBy)
	assert.Equal(t, 0.9, p.Extraction.Confidence)
	assert.Equal(t, now, p.Extraction.ProcessedAt)
	assert.Equal(t, []string{"title"}, p.Extraction.FieldsExtracted)
	assert.Equal(t, []string{"price"}, p.Extraction.FieldsMissing)
	assert.Empty(t, p.Extraction.Warnings)
}

func TestEnrichAndValidate_DefaultsConfidenceWithWarning(t *testing.T) {
	valid, failures := EnrichAndValidate(
		[]model.CandidateProperty{goodCandidate()},
		ResponseMetadata{},
		testEnvelope(),
		time.Now().UTC(),
	)

	require.Empty(t, failures)
	require.Len(t, valid, 1)
	assert.Equal(t, 0.5, valid[0].Extraction.Confidence)
	assert.Contains(t, valid[0].Extraction.Warnings, confidenceDefaultedWarning)
}

func TestEnrichAndValidate_ExplicitZeroConfidenceNotDefaulted(t *testing.T) {
	zero := 0.0
	valid, failures := EnrichAndValidate(
		[]model.CandidateProperty{goodCandidate()},
		ResponseMetadata{Confidence: &zero},
		testEnvelope(),
		time.Now().UTC(),
	)

	require.Empty(t, failures)
	require.Len(t, valid, 1)
	assert.Equal(t, 0.0, valid[0].Extraction.Confidence)
	assert.NotContains(t, valid[0].Extraction.Warnings, confidenceDefaultedWarning)
}

func TestEnrichAndValidate_PartitionsByIndex(t *testing.T) {
	bad := goodCandidate()
	bad.Location = ""
	alsoBad := goodCandidate()
	alsoBad.Price = &model.Price{Amount: -5, Currency: "XYZ"}

	candidates := []model.CandidateProperty{goodCandidate(), bad, alsoBad}

	valid, failures := EnrichAndValidate(candidates, ResponseMetadata{}, testEnvelope(), time.Now().UTC())

	require.Len(t, valid, 1)
	require.Len(t, failures, 2)

	assert.Equal(t, 1, failures[0].Index)
	assert.Contains(t, failures[0].Errors, "location: required")

	assert.Equal(t, 2, failures[1].Index)
	require.Len(t, failures[1].Errors, 2)
	assert.Contains(t, failures[1].Errors[0], "price.amount")
	assert.Contains(t, failures[1].Errors[1], "price.currency")
}

func TestEnrichAndValidate_EmptyBatch(t *testing.T) {
	valid, failures := EnrichAndValidate(nil, ResponseMetadata{}, testEnvelope(), time.Now().UTC())
	assert.Empty(t, valid)
	assert.Empty(t, failures)
}

func TestEnrichAndValidate_ModelWarningsCarried(t *testing.T) {
	meta := ResponseMetadata{Warnings: []string{"currency inferred from locale"}}

	valid, _ := EnrichAndValidate([]model.CandidateProperty{goodCandidate()}, meta, testEnvelope(), time.Now().UTC())

	require.Len(t, valid, 1)
	assert.Contains(t, valid[0].Extraction.Warnings, "currency inferred from locale")
	assert.Contains(t, valid[0].Extraction.Warnings, confidenceDefaultedWarning)
}
