package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T) *project.Project {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))
	return proj
}

func TestUndo_RevertsEditAndReindexes(t *testing.T) {
	proj := newTestProject(t)
	ctx := context.Background()

	newLines := []string{"package main", "", "func main() { println(1) }"}
	require.NoError(t, os.WriteFile(filepath.Join(proj.Root, "main.go"), []byte("package main\n\nfunc main() { println(1) }\n"), 0o644))
	require.NoError(t, proj.PutSnapshot(ctx, "main.go", newLines))

	sess := &model.Session{}
	sess.PushUndo(model.UndoEntry{
		ID:        "u1",
		FilePath:  "main.go",
		PrevLines: []string{"package main", "", "func main() {}"},
		NewLines:  newLines,
	})

	entry, err := Undo(ctx, proj, sess)
	require.NoError(t, err)
	assert.Equal(t, "u1", entry.ID)

	raw, err := os.ReadFile(filepath.Join(proj.Root, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() {}\n", string(raw))

	snap, ok := proj.Snapshot("main.go")
	require.True(t, ok)
	assert.Equal(t, "func main() {}", snap.Lines[2])
}

func TestUndo_EmptyStackErrors(t *testing.T) {
	proj := newTestProject(t)
	sess := &model.Session{}
	_, err := Undo(context.Background(), proj, sess)
	assert.Error(t, err)
}

func TestUndo_ConflictsOnExternalModification(t *testing.T) {
	proj := newTestProject(t)
	ctx := context.Background()

	sess := &model.Session{}
	sess.PushUndo(model.UndoEntry{
		ID:        "u1",
		FilePath:  "main.go",
		PrevLines: []string{"package main", "", "func main() {}"},
		NewLines:  []string{"package main", "", "func main() { /* not on disk */ }"},
	})

	_, err := Undo(ctx, proj, sess)
	require.Error(t, err)
	ce, ok := model.AsCascadeError(err)
	require.True(t, ok)
	assert.Equal(t, model.ErrConflict, ce.Kind)
}
