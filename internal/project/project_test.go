package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestIndexAll_BuildsSnapshotsAndDependents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", `import { b } from "./b";\nexport function a() { return b(); }\n`)
	writeFile(t, root, "b.ts", `export function b() { return 1; }\n`)
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {};\n")

	p := New("demo", root, nil, nil)
	defer p.Close()
	require.NoError(t, p.IndexAll(context.Background()))

	paths := p.Paths()
	assert.Contains(t, paths, "a.ts")
	assert.Contains(t, paths, "b.ts")
	assert.NotContains(t, paths, "node_modules/dep/index.js")

	snap, ok := p.Snapshot("a.ts")
	require.True(t, ok)
	assert.NotEmpty(t, snap.Hash)

	m, ok := p.Meta("b.ts")
	require.True(t, ok)
	assert.Contains(t, m.Dependents, "a.ts")
}

func TestIndexFile_RecomputesDependents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", `export function a() { return 1; }\n`)
	writeFile(t, root, "b.ts", `export function b() { return 1; }\n`)

	p := New("demo", root, nil, nil)
	defer p.Close()
	require.NoError(t, p.IndexAll(context.Background()))

	writeFile(t, root, "a.ts", `import { b } from "./b";\nexport function a() { return b(); }\n`)
	require.NoError(t, p.IndexFile(context.Background(), "a.ts"))

	m, ok := p.Meta("b.ts")
	require.True(t, ok)
	assert.Contains(t, m.Dependents, "a.ts")
}

func TestRemoveFile_ClearsState(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "export function a() { return 1; }\n")

	p := New("demo", root, nil, nil)
	defer p.Close()
	require.NoError(t, p.IndexAll(context.Background()))
	require.NoError(t, p.RemoveFile(context.Background(), "a.ts"))

	_, ok := p.Snapshot("a.ts")
	assert.False(t, ok)
	_, ok = p.AST("a.ts")
	assert.False(t, ok)
}

func TestPutSnapshot_UpdatesHashAndReindexes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "export function a() { return 1; }\n")

	p := New("demo", root, nil, nil)
	defer p.Close()
	require.NoError(t, p.IndexAll(context.Background()))

	before, _ := p.Snapshot("a.ts")
	require.NoError(t, p.PutSnapshot(context.Background(), "a.ts", []string{"export function a() { return 2; }"}))
	after, ok := p.Snapshot("a.ts")
	require.True(t, ok)
	assert.NotEqual(t, before.Hash, after.Hash)
}

func TestIndexAll_SkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "binary.dat", "\x00\x01\x02binary")
	writeFile(t, root, "a.ts", "export function a() { return 1; }\n")

	p := New("demo", root, nil, nil)
	defer p.Close()
	require.NoError(t, p.IndexAll(context.Background()))

	paths := p.Paths()
	assert.NotContains(t, paths, "binary.dat")
	assert.Contains(t, paths, "a.ts")
}
