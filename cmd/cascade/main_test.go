package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/config"
)

func TestResolveRoot_PrefersFirstNonFlagArg(t *testing.T) {
	root := resolveRoot([]string{"--auto-apply", "/tmp/example", "--model", "x"})
	assert.Equal(t, "/tmp/example", root)
}

func TestResolveRoot_DefaultsToCwd(t *testing.T) {
	cwd, _ := os.Getwd()
	root := resolveRoot([]string{"--auto-apply"})
	assert.Equal(t, cwd, root)
}

func TestDataDir_IsUnderProjectRoot(t *testing.T) {
	assert.Equal(t, filepath.Join("/proj", ".cascade"), dataDir("/proj"))
}

func TestCmdInit_WritesLoadableConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, cmdInit([]string{root}))

	loaded, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Agent.MaxToolCalls, loaded.Agent.MaxToolCalls)
}

func TestCmdIndex_IndexesFilesUnderRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("export const x = 1\n"), 0o644))
	require.NoError(t, cmdIndex([]string{root}))
}
