package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nestboard/listing-cli/internal/config"
	"github.com/nestboard/listing-cli/internal/model"
	"github.com/nestboard/listing-cli/pkg/anthropic"
)

// Pipeline turns one RawContentEnvelope into an ExtractionRunResult. It
// holds no per-invocation state; concurrent Extract calls are safe.
type Pipeline struct {
	cfg config.AnthropicConfig
	ai  anthropic.Client
}

// New creates a Pipeline. All configuration is explicit; the pipeline never
// reads process state.
func New(cfg config.AnthropicConfig, ai anthropic.Client) *Pipeline {
	return &Pipeline{cfg: cfg, ai: ai}
}

// Extract runs the full pipeline: classify → compose → complete → parse →
// route → enrich/validate → assemble. It never returns an error; every
// failure path is converted into a success=false envelope with a descriptive
// error and zeroed metadata, so callers handle one shape.
func (p *Pipeline) Extract(ctx context.Context, env model.RawContentEnvelope) *model.ExtractionRunResult {
	log := zap.L().With(zap.String("source_url", env.SourceURL))
	info := runInfo{model: p.cfg.Model, start: time.Now()}

	if err := env.Validate(); err != nil {
		log.Warn("extract: rejected envelope", zap.Error(err))
		return assembleFailure(model.ErrorKindInput, err, info)
	}

	cls := ClassifyContent(env.Payload)
	info.method = cls.Method
	log.Debug("extract: classified payload",
		zap.String("method", string(cls.Method)),
		zap.Int("content_bytes", len(cls.Content)),
	)

	systemPrompt := ComposeSystemPrompt()
	userPrompt := ComposeUserPrompt(env, cls)

	completion, usage, err := p.complete(ctx, systemPrompt, userPrompt)
	info.usage = usage
	if err != nil {
		log.Warn("extract: completion failed", zap.Error(err))
		return assembleFailure(model.ErrorKindTransport, err, info)
	}

	parsed, strategy, err := ParseResponse(completion)
	if err != nil {
		log.Warn("extract: unusable model output", zap.Error(err))
		return assembleFailure(model.ErrorKindParse, err, info)
	}
	log.Debug("extract: parsed model output", zap.String("strategy", strategy))

	routed, err := RouteResponse(parsed)
	if err != nil {
		log.Warn("extract: malformed property payload", zap.Error(err))
		return assembleFailure(model.ErrorKindParse, err, info)
	}

	if routed.UISpec != nil {
		log.Info("extract: routed to ui-generation pathway")
		return assembleUISpec(routed.UISpec, info)
	}

	valid, failures := EnrichAndValidate(routed.Candidates, routed.Metadata, env, time.Now().UTC())

	result := assembleProperties(valid, failures, routed.Metadata.Warnings, info)
	log.Info("extract: run complete",
		zap.Bool("success", result.Success),
		zap.Int("properties", len(result.Properties)),
		zap.Int("validation_errors", len(result.ValidationErrors)),
		zap.Int64("duration_ms", result.Metadata.ProcessingTimeMS),
	)
	return result
}

// complete issues the single completion round trip under the configured
// transport timeout. An empty completion is a transport failure: the
// upstream service accepted the request but produced nothing usable.
func (p *Pipeline) complete(ctx context.Context, systemPrompt, userPrompt string) (string, model.TokenUsage, error) {
	if p.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	temperature := p.cfg.Temperature
	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: userPrompt}},
		Temperature: &temperature,
	})
	if err != nil {
		return "", model.TokenUsage{}, eris.Wrap(err, "complete")
	}

	resp.Usage.LogCost(p.cfg.Model, "extract")
	usage := model.TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", usage, eris.New("complete: empty completion from model")
	}

	return text, usage, nil
}
