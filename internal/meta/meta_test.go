package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/model"
)

func TestCountLOC(t *testing.T) {
	content := "line one\n// a comment\n\nline two\n/* block\ncontinues */\nline three\n"
	assert.Equal(t, 3, countLOC(content))
}

func TestNestingBucket(t *testing.T) {
	assert.Equal(t, 1, nestingBucket(5))
	assert.Equal(t, 2, nestingBucket(15))
	assert.Equal(t, 3, nestingBucket(30))
	assert.Equal(t, 4, nestingBucket(50))
	assert.Equal(t, 5, nestingBucket(51))
}

func TestResolveDependencies_RewritesExtension(t *testing.T) {
	ast := &model.FileAST{
		Imports: []model.Import{
			{Name: "util", Module: "./util.js", Class: model.ImportInternal},
			{Name: "lodash", Module: "lodash", Class: model.ImportExternal},
		},
	}
	deps := resolveDependencies("src/a.ts", ast)
	require.Len(t, deps, 1)
	assert.Equal(t, "src/util.ts", deps[0])
}

func TestClassifyFileType(t *testing.T) {
	assert.Equal(t, model.FileTest, classifyFileType("src/a.test.ts"))
	assert.Equal(t, model.FileTypes, classifyFileType("src/types.ts"))
	assert.Equal(t, model.FileConfig, classifyFileType("tsconfig.json"))
	assert.Equal(t, model.FileSource, classifyFileType("src/a.ts"))
	assert.Equal(t, model.FileUnknown, classifyFileType("README.md"))
}

func TestIsEntryPoint(t *testing.T) {
	assert.True(t, isEntryPoint("src/index.ts", 3))
	assert.True(t, isEntryPoint("src/util.ts", 0))
	assert.False(t, isEntryPoint("src/util.ts", 2))
}

func TestAnalyzeBatch_DependentsConsistent(t *testing.T) {
	a := NewAnalyzer()
	all := map[string]FileInput{
		"src/a.ts": {Path: "src/a.ts", AST: &model.FileAST{
			Imports: []model.Import{{Name: "b", Module: "./b", Class: model.ImportInternal}},
		}, Content: "export const a = 1\n"},
		"src/b.ts": {Path: "src/b.ts", AST: &model.FileAST{}, Content: "export const b = 1\n"},
	}

	metas := a.AnalyzeBatch(all, all)
	require.Contains(t, metas, "src/b.ts")
	assert.Equal(t, []string{"src/a.ts"}, metas["src/b.ts"].Dependents)
	assert.Equal(t, []string{"src/b.ts"}, metas["src/a.ts"].Dependencies)
}

func TestAnalyzeBatch_EmptyIndex(t *testing.T) {
	a := NewAnalyzer()
	metas := a.AnalyzeBatch(map[string]FileInput{}, map[string]FileInput{})
	assert.Empty(t, metas)
}
