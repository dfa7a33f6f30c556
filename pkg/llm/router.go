package llm

import (
	"context"
	"sync"
)

// Router dispatches completions to one of three model roles
// (planning, execution, validation) over a single underlying
// Provider. cascade's CLI hands the agent loop the execution role
// (ForExecution) for every turn; nothing in cascade uses the planning
// or validation roles.
type Router struct {
	mu sync.RWMutex

	// provider is the underlying LLM provider.
	provider Provider

	planningModel   string
	executionModel  string
	validationModel string
	defaultModel    string
}

// NewRouter creates a router over provider, seeding every role with
// the provider's first model until overridden.
func NewRouter(provider Provider) *Router {
	models := provider.Models()
	defaultModel := ""
	if len(models) > 0 {
		defaultModel = models[0]
	}

	return &Router{
		provider:        provider,
		planningModel:   defaultModel,
		executionModel:  defaultModel,
		validationModel: defaultModel,
		defaultModel:    defaultModel,
	}
}

// SetPlanningModel sets the model for planning tasks.
func (r *Router) SetPlanningModel(model string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.planningModel = model
	return r
}

// SetExecutionModel sets the model for tool-use/execution tasks.
func (r *Router) SetExecutionModel(model string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executionModel = model
	return r
}

// SetValidationModel sets the model for validation tasks.
func (r *Router) SetValidationModel(model string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validationModel = model
	return r
}

// SetDefaultModel sets the fallback model used when a request doesn't
// specify one.
func (r *Router) SetDefaultModel(model string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultModel = model
	return r
}

// PlanningModel returns the planning model.
func (r *Router) PlanningModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.planningModel
}

// ExecutionModel returns the execution model.
func (r *Router) ExecutionModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.executionModel
}

// ValidationModel returns the validation model.
func (r *Router) ValidationModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.validationModel
}

// ForPlanning returns a Provider pinned to the planning model.
func (r *Router) ForPlanning() Provider {
	return &routedProvider{router: r, model: r.PlanningModel()}
}

// ForExecution returns a Provider pinned to the execution model.
func (r *Router) ForExecution() Provider {
	return &routedProvider{router: r, model: r.ExecutionModel()}
}

// ForValidation returns a Provider pinned to the validation model.
func (r *Router) ForValidation() Provider {
	return &routedProvider{router: r, model: r.ValidationModel()}
}

// Provider returns the underlying provider.
func (r *Router) Provider() Provider {
	return r.provider
}

// Name returns the router's name.
func (r *Router) Name() string {
	return "router:" + r.provider.Name()
}

// Models returns the underlying provider's models.
func (r *Router) Models() []string {
	return r.provider.Models()
}

// Complete generates a completion, defaulting to the router's default
// model when the request doesn't name one.
func (r *Router) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req.Model == "" {
		req.Model = r.defaultModel
	}
	return r.provider.Complete(ctx, req)
}

// Stream generates a streaming completion, defaulting to the router's
// default model when the request doesn't name one.
func (r *Router) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error) {
	if req.Model == "" {
		req.Model = r.defaultModel
	}
	return r.provider.Stream(ctx, req)
}

// CountTokens forwards to the underlying provider.
func (r *Router) CountTokens(content string) (int, error) {
	return r.provider.CountTokens(content)
}

// ContextWindow forwards to the underlying provider.
func (r *Router) ContextWindow(model string) int {
	return r.provider.ContextWindow(model)
}

// routedProvider is a Provider view of a Router pinned to one model,
// returned by ForPlanning/ForExecution/ForValidation so callers that
// only know about Provider don't need to know about roles at all.
type routedProvider struct {
	router *Router
	model  string
}

func (p *routedProvider) Name() string {
	return p.router.provider.Name()
}

func (p *routedProvider) Models() []string {
	return []string{p.model}
}

func (p *routedProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	req.Model = p.model
	return p.router.provider.Complete(ctx, req)
}

func (p *routedProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error) {
	req.Model = p.model
	return p.router.provider.Stream(ctx, req)
}

func (p *routedProvider) CountTokens(content string) (int, error) {
	return p.router.provider.CountTokens(content)
}

func (p *routedProvider) ContextWindow(model string) int {
	return p.router.provider.ContextWindow(p.model)
}
