package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/model"
)

func TestSymbolIndex_PutLookupRemove(t *testing.T) {
	idx := NewSymbolIndex()
	idx.Put("a.ts", map[string][]model.SymbolDef{
		"foo": {{Path: "a.ts", Line: 3, Kind: "function"}},
	})
	defs := idx.Lookup("foo")
	require.Len(t, defs, 1)
	assert.Equal(t, "a.ts", defs[0].Path)

	idx.Remove("a.ts")
	assert.Empty(t, idx.Lookup("foo"))
}

func TestDepsGraph_InverseRebuild(t *testing.T) {
	g := NewDepsGraph()
	g.SetDependencies("a.ts", []string{"b.ts"})
	g.SetDependencies("c.ts", []string{"b.ts"})

	assert.ElementsMatch(t, []string{"a.ts", "c.ts"}, g.ImportedBy("b.ts"))

	g.Remove("a.ts")
	assert.ElementsMatch(t, []string{"c.ts"}, g.ImportedBy("b.ts"))
}

func TestSymbolsFromAST(t *testing.T) {
	ast := &model.FileAST{
		Path: "a.ts",
		Functions: []model.FunctionRecord{{Name: "foo", StartLine: 1}},
		Classes: []model.ClassRecord{{
			Name: "Bar", StartLine: 5,
			Methods: []model.MethodRecord{{Name: "baz", StartLine: 6}},
		}},
	}
	syms := SymbolsFromAST(ast)
	assert.Contains(t, syms, "foo")
	assert.Contains(t, syms, "Bar")
	assert.Contains(t, syms, "Bar.baz")
}
