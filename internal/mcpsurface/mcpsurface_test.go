package mcpsurface

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/project"
	"github.com/cascadehq/cascade/internal/tools"
)

func newTestServer(t *testing.T) (*Server, *project.Project, []model.UndoEntry) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("export const x = 1\nexport const y = 2\n"), 0o644))

	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))

	var undos []model.UndoEntry
	s := New(root, proj, nil, tools.NewBuiltinRegistry(), func(e model.UndoEntry) { undos = append(undos, e) })
	return s, proj, undos
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestServer_GetLines_ReturnsContent(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.handlerFor("get_lines")

	result, err := handler(context.Background(), callRequest("get_lines", map[string]any{"path": "a.ts"}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
}

func TestServer_UnknownTool_ReturnsError(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.handlerFor("not_a_real_tool")

	result, err := handler(context.Background(), callRequest("not_a_real_tool", nil))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestServer_EditLines_AutoAppliesAndRecordsUndo(t *testing.T) {
	s, proj, _ := newTestServer(t)
	handler := s.handlerFor("edit_lines")

	var captured []model.UndoEntry
	s.onUndo = func(e model.UndoEntry) { captured = append(captured, e) }

	result, err := handler(context.Background(), callRequest("edit_lines", map[string]any{
		"path":    "a.ts",
		"start":   float64(1),
		"end":     float64(1),
		"content": "export const x = 99",
	}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	require.Len(t, captured, 1)
	assert.Equal(t, "a.ts", captured[0].FilePath)

	snap, ok := proj.Snapshot("a.ts")
	require.True(t, ok)
	assert.Equal(t, "export const x = 99", snap.Lines[0])
}

func TestNew_BuildsTheUnderlyingMCPServer(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.NotNil(t, s.server)
}
