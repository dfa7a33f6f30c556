package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
)

// FindDefinitionTool implements find_definition: resolve a symbol name
// to every definition site the workspace symbol index recorded for it.
type FindDefinitionTool struct{}

func (FindDefinitionTool) Name() string            { return "find_definition" }
func (FindDefinitionTool) Category() Category      { return CategorySearch }
func (FindDefinitionTool) RequiresConfirmation() bool { return false }
func (FindDefinitionTool) Description() string {
	return "Find every definition site recorded for a symbol name across the project."
}
func (FindDefinitionTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "name", Type: ParamString, Required: true, Description: "symbol name"},
	}
}

func (FindDefinitionTool) ValidateParams(params map[string]any) error {
	_, err := requireString(params, "name")
	return err
}

func (FindDefinitionTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	name, _ := paramString(params, "name")
	defs := tc.Project.Symbols.Lookup(name)
	if len(defs) == 0 {
		return errResult(fmt.Sprintf("no definition found for %q", name))
	}
	return ok(map[string]any{"name": name, "definitions": defs})
}

// FindReferencesTool implements find_references: a literal, case-
// sensitive scan of every indexed file's current lines for the given
// identifier (the project index is syntactic/exact-match, not
// embedding-ranked; see SPEC_FULL.md's domain-stack note on why
// chromem-go was dropped).
type FindReferencesTool struct{}

func (FindReferencesTool) Name() string            { return "find_references" }
func (FindReferencesTool) Category() Category      { return CategorySearch }
func (FindReferencesTool) RequiresConfirmation() bool { return false }
func (FindReferencesTool) Description() string {
	return "Find every line across the project that mentions a symbol name."
}
func (FindReferencesTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "name", Type: ParamString, Required: true, Description: "symbol name"},
		{Name: "path", Type: ParamString, Description: "restrict the search to one file"},
	}
}

func (FindReferencesTool) ValidateParams(params map[string]any) error {
	_, err := requireString(params, "name")
	return err
}

type reference struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (FindReferencesTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	name, _ := paramString(params, "name")
	path, hasPath, _ := paramString(params, "path")

	var paths []string
	if hasPath {
		rel, resErr := resolveExisting(tc, path)
		if resErr != nil {
			return errResult(resErr.Error())
		}
		paths = []string{rel}
	} else {
		paths = tc.Project.Paths()
	}

	var refs []reference
	for _, p := range paths {
		lines, err := readLines(tc, p)
		if err != nil {
			continue
		}
		for i, line := range lines {
			if strings.Contains(line, name) {
				refs = append(refs, reference{Path: p, Line: i + 1, Text: strings.TrimSpace(line)})
			}
		}
	}
	if len(refs) == 0 {
		return errResult(fmt.Sprintf("no references found for %q", name))
	}
	return ok(map[string]any{"name": name, "references": refs})
}
