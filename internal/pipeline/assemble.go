package pipeline

import (
	"fmt"
	"time"

	"github.com/nestboard/listing-cli/internal/model"
)

// runInfo carries the per-run facts every envelope shape reports.
type runInfo struct {
	method model.ExtractionMethod
	model  string
	usage  model.TokenUsage
	start  time.Time
}

func (r runInfo) metadata() model.RunMetadata {
	return model.RunMetadata{
		ProcessingTimeMS: time.Since(r.start).Milliseconds(),
		Model:            r.model,
		TokensUsed:       r.usage,
		ExtractionMethod: r.method,
	}
}

// assembleProperties builds the property-pathway envelope. One or more
// validation failures fail the whole run: properties are withheld even when
// some validated cleanly, so the caller gets an explicit signal instead of a
// silently reduced set.
func assembleProperties(valid []model.ValidatedProperty, failures []model.ValidationFailure, warnings []string, info runInfo) *model.ExtractionRunResult {
	meta := info.metadata()
	meta.Warnings = warnings

	if len(failures) > 0 {
		return &model.ExtractionRunResult{
			Success:          false,
			Properties:       []model.ValidatedProperty{},
			ValidationErrors: failures,
			Error:            fmt.Sprintf("%d of %d candidate properties failed validation", len(failures), len(valid)+len(failures)),
			ErrorKind:        model.ErrorKindValidation,
			Metadata:         meta,
		}
	}

	meta.PropertiesExtracted = len(valid)
	meta.ConfidenceScores = make(map[int]float64, len(valid))
	for i, p := range valid {
		meta.ConfidenceScores[i] = p.Extraction.Confidence
	}

	return &model.ExtractionRunResult{
		Success:    true,
		Properties: valid,
		Metadata:   meta,
	}
}

// assembleUISpec builds the UI-pathway envelope: a successful run with zero
// properties and the spec passed through opaquely.
func assembleUISpec(spec *model.UISpecification, info runInfo) *model.ExtractionRunResult {
	return &model.ExtractionRunResult{
		Success:    true,
		Properties: []model.ValidatedProperty{},
		UISpec:     spec,
		Metadata:   info.metadata(),
	}
}

// assembleFailure converts an upstream failure (input, transport, parse)
// into the uniform envelope: success=false, a descriptive error, and
// metadata defaulted rather than omitted. Nothing ever propagates past the
// assembler as a panic or error value.
func assembleFailure(kind model.ErrorKind, err error, info runInfo) *model.ExtractionRunResult {
	return &model.ExtractionRunResult{
		Success:    false,
		Properties: []model.ValidatedProperty{},
		Error:      err.Error(),
		ErrorKind:  kind,
		Metadata:   info.metadata(),
	}
}
