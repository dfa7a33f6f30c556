package agentloop

import (
	"context"
	"sync"

	"github.com/cascadehq/cascade/pkg/llm"
)

// ChatRequest is what the loop hands to a Transport for one model
// call: the full message history plus the system prompt (the
// configured prompt followed by the project summary).
type ChatRequest struct {
	System   string
	Messages []llm.Message
}

// ChatResponse is the transport-normalized shape spec.md §6 describes
// for the model transport port: `chat(messages) -> {content,
// tool_calls?, tokens, time_ms, truncated, stop_reason}`.
type ChatResponse struct {
	Content      string
	Tokens       int
	TimeMs       int64
	Truncated    bool
	StopReason   string
}

// Transport is the model transport port: spec.md §6's chat/
// count_tokens/is_available/get_model_name/get_context_window_size/
// abort surface, layered over the shared llm.Provider interface so
// any concrete provider (Anthropic, Ollama, OpenAI-compatible,
// Gemini) can back it.
type Transport interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	CountTokens(text string) int
	IsAvailable() bool
	ModelName() string
	ContextWindowSize() int
	Abort()
}

// ProviderTransport adapts an llm.Provider + fixed model name into a
// Transport. Abort cancels the context backing the currently in-flight
// Chat call (if any), since llm.Provider itself exposes no abort
// primitive of its own.
type ProviderTransport struct {
	provider llm.Provider
	model    string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewProviderTransport builds a Transport around provider, targeting
// model. The context window is reported by the provider itself
// (ContextWindow), not passed in here.
func NewProviderTransport(provider llm.Provider, model string) *ProviderTransport {
	return &ProviderTransport{provider: provider, model: model}
}

// Chat sends req as a single completion request and normalizes the
// response into ChatResponse.
func (t *ProviderTransport) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	callCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.cancel = nil
		t.mu.Unlock()
		cancel()
	}()

	resp, err := t.provider.Complete(callCtx, &llm.CompletionRequest{
		Model:    t.model,
		System:   req.System,
		Messages: req.Messages,
	})
	if err != nil {
		return ChatResponse{}, err
	}

	return ChatResponse{
		Content:    resp.Content,
		Tokens:     resp.Usage.TotalTokens,
		StopReason: mapStopReason(resp.FinishReason),
	}, nil
}

// CountTokens estimates token usage via the provider, falling back to
// the package's char-based estimator on error.
func (t *ProviderTransport) CountTokens(text string) int {
	n, err := t.provider.CountTokens(text)
	if err != nil {
		return llm.EstimateTokens(text)
	}
	return n
}

// IsAvailable reports whether the underlying provider is currently
// reachable. Providers without their own liveness probe (most of
// them) are treated as always available.
func (t *ProviderTransport) IsAvailable() bool {
	type availabilityProbe interface{ IsAvailable() bool }
	if probe, ok := t.provider.(availabilityProbe); ok {
		return probe.IsAvailable()
	}
	return true
}

// ModelName returns the configured model identifier.
func (t *ProviderTransport) ModelName() string { return t.model }

// ContextWindowSize returns the model's context window size, as
// reported by the underlying provider.
func (t *ProviderTransport) ContextWindowSize() int { return t.provider.ContextWindow(t.model) }

// Abort cancels the currently in-flight Chat call, if any.
func (t *ProviderTransport) Abort() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func mapStopReason(finishReason string) string {
	switch finishReason {
	case "stop":
		return "end"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_use"
	default:
		return "end"
	}
}
