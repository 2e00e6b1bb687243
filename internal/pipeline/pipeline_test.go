package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nestboard/listing-cli/internal/config"
	"github.com/nestboard/listing-cli/internal/model"
	"github.com/nestboard/listing-cli/pkg/anthropic"
)

func testPipelineConfig() config.AnthropicConfig {
	return config.AnthropicConfig{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4096,
		Temperature: 0.1,
		TimeoutSecs: 5,
	}
}

func completionResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 500, OutputTokens: 120},
	}
}

func TestExtract_PropertySuccess(t *testing.T) {
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(completionResponse(`{
			"properties": [{
				"title": "2BHK Apartment in Koramangala",
				"description": "Spacious flat with balcony",
				"location": "Koramangala, Bangalore",
				"price": {"amount": 45000, "currency": "INR", "period": "monthly"},
				"size": {"area": 2000, "unit": "sqft"},
				"amenities": ["WiFi", "Parking"]
			}],
			"metadata": {"confidence": 0.9, "fieldsExtracted": ["title", "price", "size"]}
		}`), nil).Once()

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "# 2BHK Apartment in Koramangala\n\nRent: 45000 INR/month, 2000 sqft, WiFi, Parking",
		SourceURL: "https://listings.example.com/koramangala",
	})

	require.True(t, result.Success)
	require.Len(t, result.Properties, 1)

	prop := result.Properties[0]
	assert.Equal(t, "2BHK Apartment in Koramangala", prop.Title)
	require.NotNil(t, prop.Size)
	assert.Equal(t, 2000.0, prop.Size.Area)
	assert.Equal(t, "sqft", prop.Size.Unit)
	assert.Equal(t, []string{"WiFi", "Parking"}, prop.Amenities)
	assert.Equal(t, "https://listings.example.com/koramangala", prop.SourceURL)
	assert.Equal(t, 0.9, prop.Extraction.Confidence)

	assert.Equal(t, 1, result.Metadata.PropertiesExtracted)
	assert.Equal(t, 0.9, result.Metadata.ConfidenceScores[0])
	assert.Equal(t, model.MethodMarkdown, result.Metadata.ExtractionMethod)
	assert.Equal(t, "claude-sonnet-4-5-20250929", result.Metadata.Model)
	assert.Equal(t, 620, result.Metadata.TokensUsed.Total())
	assert.Empty(t, result.ErrorKind)

	aiClient.AssertExpectations(t)
}

func TestExtract_RequestCarriesPrompts(t *testing.T) {
	var captured anthropic.MessageRequest
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(anthropic.MessageRequest)
		}).
		Return(completionResponse(`{"properties": [], "metadata": {"confidence": 1}}`), nil).Once()

	p := New(testPipelineConfig(), aiClient)
	p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "<html><body>no listings</body></html>",
		SourceURL: "https://listings.example.com/empty",
	})

	assert.Equal(t, "claude-sonnet-4-5-20250929", captured.Model)
	assert.Equal(t, int64(4096), captured.MaxTokens)
	require.NotNil(t, captured.Temperature)
	assert.Equal(t, 0.1, *captured.Temperature)
	assert.Contains(t, captured.System, "real-estate data extraction engine")
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "Content format: html")
	aiClient.AssertExpectations(t)
}

func TestExtract_InvalidEnvelope(t *testing.T) {
	aiClient := &mockAnthropicClient{}

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload: "content", // no sourceUrl
	})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrorKindInput, result.ErrorKind)
	assert.Contains(t, result.Error, "sourceUrl is required")
	assert.NotNil(t, result.Properties)
	assert.Empty(t, result.Properties)
	// The model is never called for a rejected envelope.
	aiClient.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestExtract_TransportFailure(t *testing.T) {
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, eris.New("rate limited")).Once()

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "# Listing",
		SourceURL: "https://listings.example.com",
	})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrorKindTransport, result.ErrorKind)
	assert.Contains(t, result.Error, "rate limited")
	assert.Empty(t, result.Properties)
	assert.Equal(t, model.MethodMarkdown, result.Metadata.ExtractionMethod)
	aiClient.AssertExpectations(t)
}

func TestExtract_EmptyCompletionIsTransportFailure(t *testing.T) {
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(completionResponse("   "), nil).Once()

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "# Listing",
		SourceURL: "https://listings.example.com",
	})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrorKindTransport, result.ErrorKind)
	assert.Contains(t, result.Error, "empty completion")
	aiClient.AssertExpectations(t)
}

func TestExtract_UnparseableCompletion(t *testing.T) {
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(completionResponse("Sorry, I cannot process this."), nil).Once()

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "# Listing",
		SourceURL: "https://listings.example.com",
	})

	assert.False(t, result.Success)
	assert.Equal(t, model.ErrorKindParse, result.ErrorKind)
	assert.Empty(t, result.Properties)
	aiClient.AssertExpectations(t)
}

func TestExtract_UIPathway(t *testing.T) {
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(completionResponse(`{"component": {"type": "PropertyGrid", "columns": 3}}`), nil).Once()

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "render the listings as a grid",
		SourceURL: "https://listings.example.com",
	})

	require.True(t, result.Success)
	assert.Empty(t, result.Properties)
	require.NotNil(t, result.UISpec)
	assert.Equal(t, model.UISpecConfidence, result.UISpec.Confidence)
	assert.Equal(t, model.UIGenerationMode, result.UISpec.Mode)
	assert.Contains(t, result.UISpec.Spec, "component")
	aiClient.AssertExpectations(t)
}

func TestExtract_ValidationFailureWithholdsWholeBatch(t *testing.T) {
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(completionResponse(`{
			"properties": [
				{"title": "Good Flat", "description": "Fine", "location": "HSR Layout"},
				{"title": "Bad Flat", "description": "No location"}
			],
			"metadata": {"confidence": 0.7}
		}`), nil).Once()

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "# Listings",
		SourceURL: "https://listings.example.com",
	})

	assert.False(t, result.Success)
	assert.Empty(t, result.Properties)
	assert.Equal(t, model.ErrorKindValidation, result.ErrorKind)
	assert.Equal(t, "1 of 2 candidate properties failed validation", result.Error)
	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, 1, result.ValidationErrors[0].Index)
	assert.Contains(t, result.ValidationErrors[0].Errors, "location: required")
	aiClient.AssertExpectations(t)
}

func TestExtract_DefaultedConfidenceSurfacesWarning(t *testing.T) {
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(completionResponse(`{"properties": [{"title": "Flat", "description": "x", "location": "BTM"}]}`), nil).Once()

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "# Listing",
		SourceURL: "https://listings.example.com",
	})

	require.True(t, result.Success)
	require.Len(t, result.Properties, 1)
	assert.Equal(t, 0.5, result.Properties[0].Extraction.Confidence)
	assert.Contains(t, result.Properties[0].Extraction.Warnings, confidenceDefaultedWarning)
	aiClient.AssertExpectations(t)
}

func TestExtract_EmptyPropertiesIsSuccess(t *testing.T) {
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(completionResponse(`{"properties": [], "metadata": {"confidence": 1.0}}`), nil).Once()

	p := New(testPipelineConfig(), aiClient)
	result := p.Extract(context.Background(), model.RawContentEnvelope{
		Payload:   "# No listings here",
		SourceURL: "https://listings.example.com",
	})

	assert.True(t, result.Success)
	assert.Empty(t, result.Properties)
	assert.Equal(t, 0, result.Metadata.PropertiesExtracted)
	aiClient.AssertExpectations(t)
}
