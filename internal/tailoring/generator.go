package tailoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-tailor/internal/llm"
	"github.com/jonathan/resume-tailor/internal/logging"
	"github.com/jonathan/resume-tailor/internal/prompts"
	"github.com/jonathan/resume-tailor/internal/schemas"
	"github.com/jonathan/resume-tailor/internal/types"
)

const promptFile = "tailoring.json"

// ResultGenerator produces one tailoring result from a working context
type ResultGenerator interface {
	Generate(ctx context.Context, tc *types.TailoringContext) (*types.TailoringResult, error)
}

// Generator makes a single schema-constrained generation call per Generate.
// It holds no state between calls.
type Generator struct {
	client    llm.Client
	tier      llm.ModelTier
	maxTokens int32
	logger    *zap.SugaredLogger
}

// NewGenerator creates a Generator. A non-positive maxTokens uses llm.DefaultMaxOutputTokens.
func NewGenerator(client llm.Client, tier llm.ModelTier, maxTokens int32, logger *zap.SugaredLogger) *Generator {
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxOutputTokens
	}
	return &Generator{
		client:    client,
		tier:      tier,
		maxTokens: maxTokens,
		logger:    logging.Component(logger, "generator"),
	}
}

// Generate builds the prompt from tc, calls the model and enforces the
// two-field result shape. Transport and shape failures are *GenerationError.
func (g *Generator) Generate(ctx context.Context, tc *types.TailoringContext) (*types.TailoringResult, error) {
	prompt, err := BuildPrompt(tc)
	if err != nil {
		return nil, &GenerationError{Message: "failed to build prompt", Cause: err}
	}

	schema := llm.TailoringSchema()
	start := time.Now()
	text, err := g.client.GenerateJSON(ctx, prompt, g.tier, llm.GenerateOptions{
		Schema:          &schema,
		MaxOutputTokens: g.maxTokens,
	})
	if err != nil {
		return nil, &GenerationError{Message: "structured output failed", Cause: err}
	}

	result, err := ParseResult(text)
	if err != nil {
		return nil, err
	}

	g.logger.Debugw("generated tailoring result",
		logging.FieldCount, len(result.MissingInfo),
		logging.FieldChars, len(result.TailoredResume),
		logging.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// BuildPrompt renders the tailoring prompt for a working context.
// AdditionalInfo is "" until information has been collected.
func BuildPrompt(tc *types.TailoringContext) (string, error) {
	if tc == nil {
		return "", fmt.Errorf("tailoring context is nil")
	}

	requirements, err := prompts.Get(promptFile, "json-requirements")
	if err != nil {
		return "", err
	}

	return prompts.Render(promptFile, "tailor-resume", map[string]string{
		"RecruiterFeedback": tc.RecruiterFeedback,
		"OriginalResume":    tc.OriginalResume,
		"FullResume":        tc.FullResume,
		"AdditionalInfo":    tc.AdditionalInfo,
		"JobDescription":    tc.JobDescription,
		"CompanyStrategy":   tc.CompanyStrategy,
		"OutputFormat":      llm.TailoringSchema().FormatInstructions() + "\n" + requirements,
	})
}

// ParseResult validates a raw model response against the tailoring result
// schema and decodes it. One-field or malformed responses are rejected.
func ParseResult(text string) (*types.TailoringResult, error) {
	cleaned := llm.CleanJSONBlock(text)

	if err := schemas.Validate(schemas.TailoringResult, cleaned); err != nil {
		return nil, &GenerationError{Message: "non-conformant result", Cause: err}
	}

	var result types.TailoringResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, &GenerationError{Message: "failed to decode result", Cause: err}
	}
	if result.MissingInfo == nil {
		result.MissingInfo = []string{}
	}

	return &result, nil
}
