package llm

import (
	"context"
	"io"
	"net/http"
	"time"

	openailib "github.com/sashabaranov/go-openai"
)

// OpenAICompatProvider implements Provider over any OpenAI-compatible
// chat completions endpoint -- the "concrete LLM transport (HTTP
// client to a local inference server)" spec.md §1 describes, for
// backends that speak the OpenAI chat API rather than Anthropic's or
// Ollama's.
type OpenAICompatProvider struct {
	client *openailib.Client
	models []string
}

// NewOpenAICompatProvider builds a provider against baseURL (empty
// uses the public OpenAI API). apiKey may be empty for local servers
// that don't check it.
func NewOpenAICompatProvider(apiKey, baseURL string, models []string) *OpenAICompatProvider {
	cfg := openailib.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 5 * time.Minute}

	return &OpenAICompatProvider{
		client: openailib.NewClientWithConfig(cfg),
		models: models,
	}
}

// Name returns the provider name.
func (p *OpenAICompatProvider) Name() string { return "openai" }

// Models returns the configured model identifiers.
func (p *OpenAICompatProvider) Models() []string { return p.models }

// Complete generates a completion.
func (p *OpenAICompatProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	chatReq := p.toChatRequest(req)

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Code: "request_failed", Message: err.Error(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: "openai", Code: "empty_response", Message: "no choices returned"}
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: mapOpenAIFinishReason(string(choice.FinishReason)),
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream generates a streaming completion.
func (p *OpenAICompatProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error) {
	chatReq := p.toChatRequest(req)
	chatReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Code: "stream_failed", Message: err.Error(), Err: err}
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				ch <- StreamChunk{Done: true}
				return
			}
			if err != nil {
				ch <- StreamChunk{Error: err}
				return
			}
			if len(resp.Choices) > 0 {
				ch <- StreamChunk{Content: resp.Choices[0].Delta.Content}
			}
		}
	}()

	return ch, nil
}

// CountTokens estimates token count; the OpenAI-compatible endpoints
// this provider targets rarely expose a tokenization call of their
// own, so it falls back to the package estimator.
func (p *OpenAICompatProvider) CountTokens(content string) (int, error) {
	return EstimateTokens(content), nil
}

// openAIContextWindows maps well-known OpenAI model identifiers to
// their documented context window. Local servers speaking this same
// API (vLLM, llama.cpp, LM Studio) are configured however their
// operator set them up, so an unrecognized model falls back to a
// moderate default rather than guessing too high or too low.
var openAIContextWindows = map[string]int{
	"gpt-4o":         128000,
	"gpt-4o-mini":    128000,
	"gpt-4-turbo":    128000,
	"gpt-4":          8192,
	"gpt-3.5-turbo":  16385,
	"o1":             200000,
	"o1-mini":        128000,
}

// ContextWindow reports model's context window in tokens.
func (p *OpenAICompatProvider) ContextWindow(model string) int {
	return contextWindowLookup(openAIContextWindows, model, 32768)
}

func (p *OpenAICompatProvider) toChatRequest(req *CompletionRequest) openailib.ChatCompletionRequest {
	messages := make([]openailib.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openailib.ChatCompletionMessage{
			Role:    openailib.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		if m.Role == "tool" {
			messages = append(messages, openailib.ChatCompletionMessage{
				Role:       openailib.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
			continue
		}
		messages = append(messages, openailib.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openailib.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Stop:        req.StopSequences,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	return chatReq
}

func mapOpenAIFinishReason(r string) string {
	switch r {
	case "stop":
		return "stop"
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	default:
		return r
	}
}
