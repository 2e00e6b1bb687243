package model

import "time"

// Run is a persisted record of one extraction invocation: the summary
// columns the runs listing needs, plus the full result envelope as JSON.
type Run struct {
	ID         string               `json:"id"`
	SourceURL  string               `json:"source_url"`
	Method     ExtractionMethod     `json:"method"`
	Success    bool                 `json:"success"`
	ErrorKind  ErrorKind            `json:"error_kind,omitempty"`
	Properties int                  `json:"properties"`
	TokensUsed int                  `json:"tokens_used"`
	DurationMS int64                `json:"duration_ms"`
	Result     *ExtractionRunResult `json:"result,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// NewRun summarizes a result envelope into a Run record.
func NewRun(id, sourceURL string, result *ExtractionRunResult) *Run {
	return &Run{
		ID:         id,
		SourceURL:  sourceURL,
		Method:     result.Metadata.ExtractionMethod,
		Success:    result.Success,
		ErrorKind:  result.ErrorKind,
		Properties: result.Metadata.PropertiesExtracted,
		TokensUsed: result.Metadata.TokensUsed.Total(),
		DurationMS: result.Metadata.ProcessingTimeMS,
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}
}
