package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Agent.MaxToolCalls)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cascade"), 0o755))
	toml := "[agent]\nmax_tool_calls = 5\n\n[llm]\nprovider = \"ollama\"\n"
	require.NoError(t, os.WriteFile(Path(root), []byte(toml), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Agent.MaxToolCalls)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 0.8, cfg.Agent.CompressionThreshold)
}
