package pathguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	return New(root), root
}

func TestValidate_Empty(t *testing.T) {
	g, _ := newTestGuard(t)
	res := g.Validate("   ", Options{AllowNonexistent: true})
	assert.Equal(t, Invalid, res.Status)
}

func TestValidate_Traversal(t *testing.T) {
	g, _ := newTestGuard(t)
	for _, p := range []string{"../etc/passwd", "sub/../../etc", "~/secrets", "a/..\\b"} {
		res := g.Validate(p, Options{AllowNonexistent: true})
		assert.Equal(t, Invalid, res.Status, "path %q should be invalid", p)
	}
}

func TestValidate_OutsideProject(t *testing.T) {
	g, _ := newTestGuard(t)
	res := g.Validate("/etc/passwd", Options{AllowNonexistent: true})
	assert.Equal(t, OutsideProject, res.Status)
}

func TestValidate_ValidExistingFile(t *testing.T) {
	g, _ := newTestGuard(t)
	res := g.Validate("main.go", Options{RequireFile: true})
	require.Equal(t, Valid, res.Status)
	assert.Equal(t, "main.go", res.Rel)
}

func TestValidate_RequireDirMismatch(t *testing.T) {
	g, _ := newTestGuard(t)
	res := g.Validate("main.go", Options{RequireDir: true})
	assert.Equal(t, Invalid, res.Status)
}

func TestValidate_NonexistentRejectedByDefault(t *testing.T) {
	g, _ := newTestGuard(t)
	res := g.Validate("missing.go", Options{})
	assert.Equal(t, Invalid, res.Status)
}

func TestValidate_AllowNonexistent(t *testing.T) {
	g, _ := newTestGuard(t)
	res := g.Validate("new/file.go", Options{AllowNonexistent: true})
	require.Equal(t, Valid, res.Status)
	assert.Equal(t, "new/file.go", res.Rel)
}

func TestValidate_RootItself(t *testing.T) {
	g, root := newTestGuard(t)
	res := g.Validate(root, Options{RequireDir: true})
	require.Equal(t, Valid, res.Status)
	assert.Equal(t, ".", res.Rel)
}

func TestResolve(t *testing.T) {
	g, _ := newTestGuard(t)
	abs, rel, ok := g.Resolve("sub", Options{RequireDir: true})
	require.True(t, ok)
	assert.Equal(t, "sub", rel)
	assert.True(t, filepath.IsAbs(abs))
}
