package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider over Google's Gemini API via the
// official genai SDK.
type GeminiProvider struct {
	client *genai.Client
	models []string
}

// NewGeminiProvider builds a provider against the Gemini API backend.
func NewGeminiProvider(ctx context.Context, apiKey string, models []string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Code: "init_failed", Message: err.Error(), Err: err}
	}
	return &GeminiProvider{client: client, models: models}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return "gemini" }

// Models returns the configured model identifiers.
func (p *GeminiProvider) Models() []string { return p.models }

// Complete generates a completion. genai's content helper takes a
// flat prompt rather than cascade's structured message list, so the
// conversation is rendered into one prompt string before the call.
func (p *GeminiProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	prompt := renderGeminiPrompt(req.System, req.Messages)

	result, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(prompt), config)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Code: "request_failed", Message: err.Error(), Err: err}
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, &ProviderError{Provider: "gemini", Code: "empty_response", Message: "no candidates returned"}
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	resp := &CompletionResponse{
		Model:        req.Model,
		Content:      sb.String(),
		FinishReason: mapGeminiFinishReason(string(result.Candidates[0].FinishReason)),
	}
	if result.UsageMetadata != nil {
		resp.Usage = TokenUsage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}

// Stream is not wired for Gemini: the genai SDK's streaming iterator
// shape wasn't exercised anywhere in the reference pack, so this
// reports unsupported rather than guessing at an untested API.
func (p *GeminiProvider) Stream(_ context.Context, _ *CompletionRequest) (<-chan StreamChunk, error) {
	return nil, &ProviderError{Provider: "gemini", Code: "unsupported", Message: "streaming is not supported for the gemini provider"}
}

// CountTokens estimates token count via the package estimator.
func (p *GeminiProvider) CountTokens(content string) (int, error) {
	return EstimateTokens(content), nil
}

// geminiContextWindows maps Gemini model identifiers to their
// documented context window.
var geminiContextWindows = map[string]int{
	"gemini-1.5-pro":   2097152,
	"gemini-1.5-flash": 1048576,
	"gemini-2.0-flash": 1048576,
}

// ContextWindow reports model's context window in tokens.
func (p *GeminiProvider) ContextWindow(model string) int {
	return contextWindowLookup(geminiContextWindows, model, 32768)
}

func renderGeminiPrompt(system string, messages []Message) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString("SYSTEM: ")
		sb.WriteString(system)
		sb.WriteString("\n\n")
	}
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.ToUpper(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	return sb.String()
}

func mapGeminiFinishReason(r string) string {
	switch r {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "max_tokens"
	case "":
		return "stop"
	default:
		return strings.ToLower(r)
	}
}
