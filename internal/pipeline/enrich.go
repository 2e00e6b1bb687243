package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/nestboard/listing-cli/internal/model"
)

// defaultConfidence is assumed when the model's metadata block omits a
// confidence score. The default is a low-trust signal, not a silent fill:
// the enricher records a warning alongside it.
const defaultConfidence = 0.5

const confidenceDefaultedWarning = "model omitted confidence metadata; defaulted to 0.5"

// EnrichAndValidate attaches provenance and extraction metadata to each
// candidate in batch order, validates every field constraint in one pass,
// and partitions the batch into validated properties and per-record
// failures. Validation never short-circuits: every failing record surfaces
// all of its errors. The batch decision (all-or-nothing) belongs to the
// assembler, not here.
func EnrichAndValidate(
	candidates []model.CandidateProperty,
	meta ResponseMetadata,
	env model.RawContentEnvelope,
	now time.Time,
) ([]model.ValidatedProperty, []model.ValidationFailure) {
	confidence := defaultConfidence
	warnings := append([]string(nil), meta.Warnings...)
	if meta.Confidence != nil {
		confidence = *meta.Confidence
	} else {
		warnings = append(warnings, confidenceDefaultedWarning)
	}

	var valid []model.ValidatedProperty
	var failures []model.ValidationFailure

	for i, candidate := range candidates {
		enriched := model.ValidatedProperty{
			CandidateProperty: candidate,
			SourceURL:         env.SourceURL,
			ScrapedAt:         now,
			SearchParameters:  env.SearchParameters,
			Extraction: model.ExtractionMeta{
				ExtractedBy:     "model",
				Confidence:      confidence,
				Warnings:        warnings,
				ProcessedAt:     now,
				FieldsExtracted: meta.FieldsExtracted,
				FieldsMissing:   meta.FieldsMissing,
			},
		}

		if errs := enriched.Validate(); len(errs) > 0 {
			zap.L().Debug("enrich: candidate failed validation",
				zap.Int("index", i),
				zap.Strings("errors", errs),
			)
			failures = append(failures, model.ValidationFailure{Index: i, Errors: errs})
			continue
		}

		valid = append(valid, enriched)
	}

	return valid, failures
}
