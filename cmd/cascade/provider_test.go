package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/config"
)

func TestBuildProvider_Anthropic(t *testing.T) {
	p, err := buildProvider(context.Background(), config.LLMConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestBuildProvider_Ollama(t *testing.T) {
	p, err := buildProvider(context.Background(), config.LLMConfig{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestBuildProvider_UnknownProvider(t *testing.T) {
	_, err := buildProvider(context.Background(), config.LLMConfig{Provider: "not-a-provider"})
	assert.Error(t, err)
}

func TestBuildRouter_AppliesExecutionModelOverride(t *testing.T) {
	p, _ := buildProvider(context.Background(), config.LLMConfig{Provider: "anthropic", APIKey: "k"})
	routed, model := buildRouter(p, config.LLMConfig{Model: "claude-sonnet-4-20250514", ExecutionModel: "claude-3-5-haiku-20241022"})
	assert.Equal(t, "claude-3-5-haiku-20241022", model)
	assert.Equal(t, []string{"claude-3-5-haiku-20241022"}, routed.Models())
}
