// Package ai runs structured-output prompts against a language-model
// provider and validates the responses against each prompt's JSON schema.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mcpserverslist/registry/internal/config"
)

// ErrMalformedResponse is returned when the model output is not a JSON
// object matching the prompt's schema.
var ErrMalformedResponse = errors.New("malformed model response")

const (
	anthropicModel = "claude-3-5-sonnet-20241022"
	openAIModel    = "gpt-4o"

	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// Usage reports token counters from a single model call
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Generator runs object prompts against the configured provider
type Generator struct {
	llm llms.Model
}

// NewGenerator selects the provider named in the config
func NewGenerator(cfg *config.Config) (*Generator, error) {
	switch cfg.AIProvider {
	case "anthropic", "":
		llm, err := anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(anthropicModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		return &Generator{llm: llm}, nil
	case "openai":
		llm, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(openAIModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return &Generator{llm: llm}, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.AIProvider)
	}
}

// NewGeneratorWithModel wraps an existing model, used by tests
func NewGeneratorWithModel(llm llms.Model) *Generator {
	return &Generator{llm: llm}
}

// RunObjectPrompt formats the template, calls the model and decodes the JSON
// object into out after validating it against the template's schema.
func (g *Generator) RunObjectPrompt(ctx context.Context, template ObjectPromptTemplate, variables map[string]any, out any) (Usage, error) {
	promptText, err := template.Format(variables)
	if err != nil {
		return Usage{}, fmt.Errorf("failed to format prompt %s: %w", template.ID, err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, template.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, promptText),
	}

	response, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(defaultTemperature),
		llms.WithMaxTokens(defaultMaxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return Usage{}, fmt.Errorf("model call failed for prompt %s: %w", template.ID, err)
	}
	if len(response.Choices) == 0 {
		return Usage{}, fmt.Errorf("%w: no choices returned for prompt %s", ErrMalformedResponse, template.ID)
	}

	choice := response.Choices[0]
	usage := usageFromGenerationInfo(choice.GenerationInfo)

	raw := extractJSONObject(choice.Content)
	if raw == "" {
		return usage, fmt.Errorf("%w: no JSON object in output for prompt %s", ErrMalformedResponse, template.ID)
	}

	var untyped any
	if err := json.Unmarshal([]byte(raw), &untyped); err != nil {
		return usage, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := template.Schema.Validate(untyped); err != nil {
		return usage, fmt.Errorf("%w: schema validation failed for prompt %s: %v", ErrMalformedResponse, template.ID, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return usage, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return usage, nil
}

// GenerateSummary runs the content prompt and returns the bounded summary
func (g *Generator) GenerateSummary(ctx context.Context, variables map[string]any) (string, Usage, error) {
	var response GenerateContentResponse
	usage, err := g.RunObjectPrompt(ctx, GenerateContentTemplate, variables, &response)
	if err != nil {
		return "", usage, err
	}
	summary := strings.TrimSpace(response.Summary)
	if summary == "" {
		return "", usage, fmt.Errorf("%w: empty summary", ErrMalformedResponse)
	}
	// The schema asks for <=160 chars but models overshoot; enforce the bound.
	// Counted in runes so multibyte summaries are neither over-truncated nor
	// cut mid-character.
	if runes := []rune(summary); len(runes) > 160 {
		summary = string(runes[:160])
	}
	return summary, usage, nil
}

// Categorize runs the categorization prompt
func (g *Generator) Categorize(ctx context.Context, variables map[string]any) (*CategorizeServerResponse, Usage, error) {
	var response CategorizeServerResponse
	usage, err := g.RunObjectPrompt(ctx, CategorizeServerTemplate, variables, &response)
	if err != nil {
		return nil, usage, err
	}
	return &response, usage, nil
}

// extractJSONObject pulls the outermost {...} out of model output, tolerating
// surrounding prose or code fences.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func usageFromGenerationInfo(info map[string]any) Usage {
	return Usage{
		InputTokens:  intFromInfo(info, "InputTokens", "PromptTokens"),
		OutputTokens: intFromInfo(info, "OutputTokens", "CompletionTokens"),
	}
}

func intFromInfo(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
	}
	return 0
}
