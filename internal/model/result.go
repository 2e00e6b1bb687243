package model

// ErrorKind categorizes why an extraction run failed. Callers can branch on
// it without string-matching the error message.
type ErrorKind string

const (
	ErrorKindInput      ErrorKind = "input"
	ErrorKindTransport  ErrorKind = "transport"
	ErrorKindParse      ErrorKind = "parse"
	ErrorKindValidation ErrorKind = "validation"
)

// UIGenerationMode marks a run whose model output described an interface
// instead of property data.
const UIGenerationMode = "ui-generation"

// UISpecConfidence is the fixed confidence assigned to UI-specification
// output; the spec payload is passed through opaquely so there is nothing
// to score it against.
const UISpecConfidence = 0.8

// ValidationFailure pairs a candidate's position in the batch with every
// validation message it produced.
type ValidationFailure struct {
	Index  int      `json:"index"`
	Errors []string `json:"errors"`
}

// UISpecification is the alternative output shape when the model returns a
// component description instead of property listings. Spec is the parsed
// model output, unmodified.
type UISpecification struct {
	Spec       map[string]any `json:"spec"`
	Confidence float64        `json:"confidence"`
	Mode       string         `json:"mode"`
}

// RunMetadata carries processing metadata for one extraction run. Fields are
// zeroed, never omitted, on failure paths so callers can treat every envelope
// uniformly.
type RunMetadata struct {
	PropertiesExtracted int              `json:"propertiesExtracted"`
	ConfidenceScores    map[int]float64  `json:"confidenceScores,omitempty"`
	Warnings            []string         `json:"warnings,omitempty"`
	ProcessingTimeMS    int64            `json:"processingTimeMs"`
	Model               string           `json:"model,omitempty"`
	TokensUsed          TokenUsage       `json:"tokensUsed"`
	ExtractionMethod    ExtractionMethod `json:"extractionMethod,omitempty"`
}

// ExtractionRunResult is the terminal output of one pipeline invocation.
// Exactly one of three shapes: property success (Properties set), property
// failure (ValidationErrors set, Properties empty), or UI success (UISpec
// set, Properties empty). A run with any validation failure reports
// Success=false and returns no properties, even ones that validated cleanly.
type ExtractionRunResult struct {
	Success          bool                `json:"success"`
	Properties       []ValidatedProperty `json:"properties"`
	UISpec           *UISpecification    `json:"uiSpec,omitempty"`
	ValidationErrors []ValidationFailure `json:"validationErrors,omitempty"`
	Error            string              `json:"error,omitempty"`
	ErrorKind        ErrorKind           `json:"errorKind,omitempty"`
	Metadata         RunMetadata         `json:"metadata"`
}
