package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/project"
)

func TestWatcher_ReindexesOnWrite(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(file, []byte("export const x = 1\n"), 0o644))

	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))

	w, err := New(proj, 20, project.DefaultIgnore)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.True(t, w.IsRunning())

	require.NoError(t, os.WriteFile(file, []byte("export const x = 1\nexport const y = 2\n"), 0o644))

	require.Eventually(t, func() bool {
		snap, ok := proj.Snapshot("a.ts")
		return ok && len(snap.Lines) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))

	w, err := New(proj, 0, project.DefaultIgnore)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}
