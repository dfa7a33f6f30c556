package main

import (
	"context"
	"fmt"

	"github.com/cascadehq/cascade/internal/config"
	"github.com/cascadehq/cascade/pkg/llm"
)

// buildProvider selects and constructs an llm.Provider per
// cfg.LLM.Provider, matching the four providers pkg/llm implements.
func buildProvider(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return llm.NewAnthropicProvider(cfg.APIKey), nil
	case "ollama":
		return llm.NewOllamaProvider(cfg.BaseURL), nil
	case "openai":
		models := []string{cfg.Model}
		return llm.NewOpenAICompatProvider(cfg.APIKey, cfg.BaseURL, models), nil
	case "gemini":
		models := []string{cfg.Model}
		return llm.NewGeminiProvider(ctx, cfg.APIKey, models)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// buildRouter wraps provider in an llm.Router configured with the
// project's planning/execution model overrides, returning the
// execution-routed Provider and the model name it targets -- the pair
// agentloop.NewProviderTransport expects.
func buildRouter(provider llm.Provider, cfg config.LLMConfig) (llm.Provider, string) {
	router := llm.NewRouter(provider)
	if cfg.PlanningModel != "" {
		router.SetPlanningModel(cfg.PlanningModel)
	}
	if cfg.ExecutionModel != "" {
		router.SetExecutionModel(cfg.ExecutionModel)
	}
	if cfg.Model != "" {
		router.SetDefaultModel(cfg.Model)
		if cfg.ExecutionModel == "" {
			router.SetExecutionModel(cfg.Model)
		}
	}
	return router.ForExecution(), router.ExecutionModel()
}
