package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/project"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {\n\t// TODO: wire real args\n}\n"), 0o644))

	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))

	return &Context{
		Root:           root,
		Project:        proj,
		RequestConfirm: func(string, *model.DiffInfo) (bool, []string) { return true, nil },
		CommandTimeout: 5 * time.Second,
	}
}

func TestGetLinesTool_WholeFile(t *testing.T) {
	tc := newTestContext(t)
	result := GetLinesTool{}.Execute(context.Background(), tc, map[string]any{"path": "main.go"})
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.Equal(t, 1, data["startLine"])
}

func TestGetLinesTool_Range(t *testing.T) {
	tc := newTestContext(t)
	result := GetLinesTool{}.Execute(context.Background(), tc, map[string]any{
		"path": "main.go", "start": float64(2), "end": float64(3),
	})
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.Equal(t, 2, data["startLine"])
	assert.Equal(t, 3, data["endLine"])
}

func TestGetLinesTool_MissingFile(t *testing.T) {
	tc := newTestContext(t)
	result := GetLinesTool{}.Execute(context.Background(), tc, map[string]any{"path": "missing.go"})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestGetStructureTool_Default(t *testing.T) {
	tc := newTestContext(t)
	result := GetStructureTool{}.Execute(context.Background(), tc, map[string]any{})
	require.True(t, result.Success)
	node := result.Data.(TreeNode)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "main.go", node.Children[0].Name)
}

func TestGetStructureTool_RejectsZeroDepth(t *testing.T) {
	err := GetStructureTool{}.ValidateParams(map[string]any{"depth": float64(0)})
	assert.Error(t, err)
}

func TestEditLinesTool_ReplacesRangeAndReindexes(t *testing.T) {
	tc := newTestContext(t)
	result := EditLinesTool{}.Execute(context.Background(), tc, map[string]any{
		"path": "main.go", "start": float64(4), "end": float64(4), "content": "\t// TODO: done\n",
	})
	require.True(t, result.Success)

	raw, err := os.ReadFile(filepath.Join(tc.Root, "main.go"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "// TODO: done")

	snap, ok := tc.Project.Snapshot("main.go")
	require.True(t, ok)
	assert.Contains(t, snap.Lines[3], "done")
}

func TestEditLinesTool_CancelledLeavesFileUntouched(t *testing.T) {
	tc := newTestContext(t)
	tc.RequestConfirm = func(string, *model.DiffInfo) (bool, []string) { return false, nil }
	before, _ := os.ReadFile(filepath.Join(tc.Root, "main.go"))

	result := EditLinesTool{}.Execute(context.Background(), tc, map[string]any{
		"path": "main.go", "start": float64(1), "end": float64(1), "content": "changed\n",
	})
	assert.False(t, result.Success)
	assert.Equal(t, "cancelled", result.Error)

	after, _ := os.ReadFile(filepath.Join(tc.Root, "main.go"))
	assert.Equal(t, before, after)
}

func TestEditLinesTool_StartBeyondFileIsError(t *testing.T) {
	tc := newTestContext(t)
	result := EditLinesTool{}.Execute(context.Background(), tc, map[string]any{
		"path": "main.go", "start": float64(99), "end": float64(99), "content": "x\n",
	})
	assert.False(t, result.Success)
}

func TestCreateFileTool_NewFile(t *testing.T) {
	tc := newTestContext(t)
	result := CreateFileTool{}.Execute(context.Background(), tc, map[string]any{
		"path": "pkg/new.go", "content": "package pkg\n",
	})
	require.True(t, result.Success)

	raw, err := os.ReadFile(filepath.Join(tc.Root, "pkg", "new.go"))
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", string(raw))

	_, ok := tc.Project.Snapshot("pkg/new.go")
	assert.True(t, ok)
}

func TestCreateFileTool_RejectsExisting(t *testing.T) {
	tc := newTestContext(t)
	result := CreateFileTool{}.Execute(context.Background(), tc, map[string]any{
		"path": "main.go", "content": "x",
	})
	assert.False(t, result.Success)
}

func TestDeleteFileTool_RemovesFileAndIndex(t *testing.T) {
	tc := newTestContext(t)
	result := DeleteFileTool{}.Execute(context.Background(), tc, map[string]any{"path": "main.go"})
	require.True(t, result.Success)

	_, statErr := os.Stat(filepath.Join(tc.Root, "main.go"))
	assert.True(t, os.IsNotExist(statErr))

	_, ok := tc.Project.Snapshot("main.go")
	assert.False(t, ok)
}

func TestGetTodosTool_FindsMarker(t *testing.T) {
	tc := newTestContext(t)
	result := GetTodosTool{}.Execute(context.Background(), tc, map[string]any{})
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.Equal(t, 1, data["count"])
	byType := data["byType"].(map[string]int)
	assert.Equal(t, 1, byType["TODO"])
}

func TestGetTodosTool_IgnoresBareTokensOutsideComments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(
		"package main\n\nconst BUG = 1\n\nfunc main() {\n\tx := \"this is a NOTE in a string\"\n\t_ = x\n\t// FIXME(alice): handle retries\n}\n",
	), 0o644))
	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))
	tc := &Context{Root: root, Project: proj, CommandTimeout: 5 * time.Second}

	result := GetTodosTool{}.Execute(context.Background(), tc, map[string]any{})
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	todos := data["todos"].([]todoEntry)
	require.Len(t, todos, 1)
	assert.Equal(t, "FIXME", todos[0].Marker)
	assert.Equal(t, "handle retries", todos[0].Text)
	assert.Equal(t, 1, data["count"])
}

func TestGetTodosTool_FiltersByType(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(
		"package main\n\nfunc main() {\n\t// TODO: a\n\t// BUG: b\n}\n",
	), 0o644))
	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))
	tc := &Context{Root: root, Project: proj, CommandTimeout: 5 * time.Second}

	result := GetTodosTool{}.Execute(context.Background(), tc, map[string]any{"type": "bug"})
	require.True(t, result.Success)
	data := result.Data.(map[string]any)
	assert.Equal(t, 1, data["count"])
	todos := data["todos"].([]todoEntry)
	require.Len(t, todos, 1)
	assert.Equal(t, "BUG", todos[0].Marker)
}

func TestFindReferencesTool_FindsLiteralMatch(t *testing.T) {
	tc := newTestContext(t)
	result := FindReferencesTool{}.Execute(context.Background(), tc, map[string]any{"name": "main"})
	require.True(t, result.Success)
}

func TestFindReferencesTool_NoMatch(t *testing.T) {
	tc := newTestContext(t)
	result := FindReferencesTool{}.Execute(context.Background(), tc, map[string]any{"name": "nonexistentSymbol123"})
	assert.False(t, result.Success)
}

func TestRegistry_DispatchUnknownTool(t *testing.T) {
	r := NewRegistry()
	tc := newTestContext(t)
	result := r.Dispatch(context.Background(), tc, model.ToolCall{ID: "1", Name: "nope"})
	assert.False(t, result.Success)
	assert.Equal(t, "1", result.CallID)
}

func TestRegistry_DispatchValidationFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(GetLinesTool{})
	tc := newTestContext(t)
	result := r.Dispatch(context.Background(), tc, model.ToolCall{ID: "2", Name: "get_lines", Params: map[string]any{}})
	assert.False(t, result.Success)
}

func TestNewBuiltinRegistry_RegistersEighteenTools(t *testing.T) {
	r := NewBuiltinRegistry()
	assert.Len(t, r.All(), 18)
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	r := NewRegistry()
	r.Register(GetLinesTool{})
	assert.Panics(t, func() { r.Register(GetLinesTool{}) })
}
