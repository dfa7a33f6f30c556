package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
)

// GetDependenciesTool implements get_dependencies.
type GetDependenciesTool struct{}

func (GetDependenciesTool) Name() string            { return "get_dependencies" }
func (GetDependenciesTool) Category() Category      { return CategoryAnalysis }
func (GetDependenciesTool) RequiresConfirmation() bool { return false }
func (GetDependenciesTool) Description() string {
	return "List the files a given file imports."
}
func (GetDependenciesTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Required: true, Description: "project-relative file path"},
	}
}

func (GetDependenciesTool) ValidateParams(params map[string]any) error {
	_, err := requireString(params, "path")
	return err
}

func (GetDependenciesTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, _ := paramString(params, "path")
	rel, resErr := resolveExisting(tc, path)
	if resErr != nil {
		return errResult(resErr.Error())
	}
	return ok(map[string]any{"path": rel, "dependencies": tc.Project.Deps.Imports(rel)})
}

// GetDependentsTool implements get_dependents.
type GetDependentsTool struct{}

func (GetDependentsTool) Name() string            { return "get_dependents" }
func (GetDependentsTool) Category() Category      { return CategoryAnalysis }
func (GetDependentsTool) RequiresConfirmation() bool { return false }
func (GetDependentsTool) Description() string {
	return "List the files that import a given file."
}
func (GetDependentsTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Required: true, Description: "project-relative file path"},
	}
}

func (GetDependentsTool) ValidateParams(params map[string]any) error {
	_, err := requireString(params, "path")
	return err
}

func (GetDependentsTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, _ := paramString(params, "path")
	rel, resErr := resolveExisting(tc, path)
	if resErr != nil {
		return errResult(resErr.Error())
	}
	return ok(map[string]any{"path": rel, "dependents": tc.Project.Deps.ImportedBy(rel)})
}

// GetComplexityTool implements get_complexity.
type GetComplexityTool struct{}

func (GetComplexityTool) Name() string            { return "get_complexity" }
func (GetComplexityTool) Category() Category      { return CategoryAnalysis }
func (GetComplexityTool) RequiresConfirmation() bool { return false }
func (GetComplexityTool) Description() string {
	return "Report size/shape complexity metrics for a file, or the whole project when path is omitted."
}
func (GetComplexityTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Description: "project-relative file path; omit for a project summary"},
	}
}

func (GetComplexityTool) ValidateParams(map[string]any) error { return nil }

func (GetComplexityTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, hasPath, _ := paramString(params, "path")
	if hasPath {
		rel, resErr := resolveExisting(tc, path)
		if resErr != nil {
			return errResult(resErr.Error())
		}
		m, found := tc.Project.Meta(rel)
		if !found {
			return errResult(fmt.Sprintf("%s is not indexed", rel))
		}
		return ok(map[string]any{"path": rel, "complexity": m.Complexity})
	}

	metas := tc.Project.AllMetas()
	type entry struct {
		Path       string          `json:"path"`
		Complexity model.Complexity `json:"complexity"`
	}
	var entries []entry
	var total, max int
	var hottest string
	for p, m := range metas {
		entries = append(entries, entry{Path: p, Complexity: m.Complexity})
		total += m.Complexity.Score
		if m.Complexity.Score > max {
			max = m.Complexity.Score
			hottest = p
		}
	}
	avg := 0
	if len(entries) > 0 {
		avg = total / len(entries)
	}
	return ok(map[string]any{
		"files":         entries,
		"averageScore":  avg,
		"hottestFile":   hottest,
		"hottestScore":  max,
	})
}

// GetTodosTool implements get_todos: a project-wide scan for
// TODO/FIXME/HACK/XXX/BUG/NOTE marker comments.
type GetTodosTool struct{}

// todoPattern requires the marker to follow a line-comment (//, #) or
// block-comment (/*) opener, per spec.md §4.4 -- a bare TODO/BUG/NOTE
// inside an identifier, string literal, or ordinary prose must not
// match. Group 1 is the keyword, group 2 the optional parenthetical,
// group 3 the remaining text after an optional colon.
var todoPattern = regexp.MustCompile(`(?i)(?://|/\*|#)\s*(TODO|FIXME|HACK|XXX|BUG|NOTE)\b(\([^)]*\))?:?\s*(.*)`)

func (GetTodosTool) Name() string            { return "get_todos" }
func (GetTodosTool) Category() Category      { return CategoryAnalysis }
func (GetTodosTool) RequiresConfirmation() bool { return false }
func (GetTodosTool) Description() string {
	return "Scan the project (or one file) for TODO/FIXME/HACK/XXX/BUG/NOTE marker comments."
}
func (GetTodosTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Description: "restrict the scan to one file"},
		{Name: "type", Type: ParamString, Description: "restrict the scan to one marker type (TODO, FIXME, HACK, XXX, BUG, NOTE)"},
	}
}

func (GetTodosTool) ValidateParams(map[string]any) error { return nil }

type todoEntry struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Marker string `json:"marker"`
	Text   string `json:"text"`
}

func (GetTodosTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, hasPath, _ := paramString(params, "path")
	typeFilter, hasType, _ := paramString(params, "type")
	if hasType {
		typeFilter = strings.ToUpper(strings.TrimSpace(typeFilter))
	}

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

	var todos []todoEntry
	for _, p := range paths {
		lines, err := readLines(tc, p)
		if err != nil {
			continue
		}
		for i, line := range lines {
			m := todoPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			marker := strings.ToUpper(m[1])
			if hasType && marker != typeFilter {
				continue
			}
			todos = append(todos, todoEntry{
				Path:   p,
				Line:   i + 1,
				Marker: marker,
				Text:   strings.TrimSpace(m[3]),
			})
		}
	}

	sort.Slice(todos, func(i, j int) bool {
		if todos[i].Path != todos[j].Path {
			return todos[i].Path < todos[j].Path
		}
		return todos[i].Line < todos[j].Line
	})

	byType := make(map[string]int)
	for _, t := range todos {
		byType[t.Marker]++
	}

	return ok(map[string]any{"todos": todos, "count": len(todos), "byType": byType})
}
