package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/pathguard"
)

// GetLinesTool implements spec.md §4.4's get_lines read tool.
type GetLinesTool struct{}

func (GetLinesTool) Name() string        { return "get_lines" }
func (GetLinesTool) Category() Category  { return CategoryRead }
func (GetLinesTool) RequiresConfirmation() bool { return false }
func (GetLinesTool) Description() string {
	return "Read a range of lines from a file. Omit start/end to read the whole file."
}
func (GetLinesTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Required: true, Description: "project-relative file path"},
		{Name: "start", Type: ParamNumber, Description: "1-based start line (inclusive)"},
		{Name: "end", Type: ParamNumber, Description: "1-based end line (inclusive)"},
	}
}

func (GetLinesTool) ValidateParams(params map[string]any) error {
	if _, err := requireString(params, "path"); err != nil {
		return err
	}
	if _, _, err := paramInt(params, "start"); err != nil {
		return err
	}
	if _, _, err := paramInt(params, "end"); err != nil {
		return err
	}
	return nil
}

func (GetLinesTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, _ := paramString(params, "path")
	rel, resErr := resolveExisting(tc, path)
	if resErr != nil {
		return errResult(resErr.Error())
	}

	lines, err := readLines(tc, rel)
	if err != nil {
		return errResult(err.Error())
	}

	start, hasStart, _ := paramInt(params, "start")
	end, hasEnd, _ := paramInt(params, "end")

	n := len(lines)
	startLine := 1
	endLine := n
	if hasStart {
		startLine = clamp(start, 1, max(n, 1))
	}
	if hasEnd {
		endLine = clamp(end, 1, max(n, 1))
	} else if hasStart {
		endLine = n
	}
	if n == 0 {
		return ok(map[string]any{"content": []string{}, "startLine": 0, "endLine": 0})
	}
	if startLine > endLine {
		startLine, endLine = endLine, startLine
	}

	return ok(map[string]any{
		"content":   lines[startLine-1 : endLine],
		"startLine": startLine,
		"endLine":   endLine,
	})
}

// GetFunctionTool implements get_function.
type GetFunctionTool struct{}

func (GetFunctionTool) Name() string            { return "get_function" }
func (GetFunctionTool) Category() Category      { return CategoryRead }
func (GetFunctionTool) RequiresConfirmation() bool { return false }
func (GetFunctionTool) Description() string {
	return "Read the source of one named top-level function in a file."
}
func (GetFunctionTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Required: true, Description: "project-relative file path"},
		{Name: "name", Type: ParamString, Required: true, Description: "function name"},
	}
}

func (GetFunctionTool) ValidateParams(params map[string]any) error {
	if _, err := requireString(params, "path"); err != nil {
		return err
	}
	_, err := requireString(params, "name")
	return err
}

func (GetFunctionTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, _ := paramString(params, "path")
	name, _ := paramString(params, "name")
	rel, resErr := resolveExisting(tc, path)
	if resErr != nil {
		return errResult(resErr.Error())
	}
	ast, ok2 := tc.Project.AST(rel)
	if !ok2 {
		return errResult(fmt.Sprintf("%s is not indexed", rel))
	}
	for _, fn := range ast.Functions {
		if fn.Name == name {
			lines, err := readLines(tc, rel)
			if err != nil {
				return errResult(err.Error())
			}
			start, end := clampRange(fn.StartLine, fn.EndLine, len(lines))
			return ok(map[string]any{
				"content":   lines[start-1 : end],
				"startLine": fn.StartLine,
				"endLine":   fn.EndLine,
				"async":     fn.Async,
				"exported":  fn.Exported,
			})
		}
	}
	return errResult(fmt.Sprintf("function %q not found in %s", name, rel))
}

// GetClassTool implements get_class.
type GetClassTool struct{}

func (GetClassTool) Name() string            { return "get_class" }
func (GetClassTool) Category() Category      { return CategoryRead }
func (GetClassTool) RequiresConfirmation() bool { return false }
func (GetClassTool) Description() string {
	return "Read the source and member summary of one named class in a file."
}
func (GetClassTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Required: true, Description: "project-relative file path"},
		{Name: "name", Type: ParamString, Required: true, Description: "class name"},
	}
}

func (GetClassTool) ValidateParams(params map[string]any) error {
	if _, err := requireString(params, "path"); err != nil {
		return err
	}
	_, err := requireString(params, "name")
	return err
}

func (GetClassTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, _ := paramString(params, "path")
	name, _ := paramString(params, "name")
	rel, resErr := resolveExisting(tc, path)
	if resErr != nil {
		return errResult(resErr.Error())
	}
	ast, ok2 := tc.Project.AST(rel)
	if !ok2 {
		return errResult(fmt.Sprintf("%s is not indexed", rel))
	}
	for _, cls := range ast.Classes {
		if cls.Name == name {
			lines, err := readLines(tc, rel)
			if err != nil {
				return errResult(err.Error())
			}
			start, end := clampRange(cls.StartLine, cls.EndLine, len(lines))
			return ok(map[string]any{
				"content":    lines[start-1 : end],
				"startLine":  cls.StartLine,
				"endLine":    cls.EndLine,
				"methods":    cls.Methods,
				"properties": cls.Properties,
				"extends":    cls.Extends,
				"implements": cls.Implements,
				"exported":   cls.Exported,
				"abstract":   cls.Abstract,
			})
		}
	}
	return errResult(fmt.Sprintf("class %q not found in %s", name, rel))
}

// GetStructureTool implements get_structure.
type GetStructureTool struct{}

func (GetStructureTool) Name() string            { return "get_structure" }
func (GetStructureTool) Category() Category      { return CategoryRead }
func (GetStructureTool) RequiresConfirmation() bool { return false }
func (GetStructureTool) Description() string {
	return "List the directory tree under path (default: project root) up to depth levels."
}
func (GetStructureTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Description: "project-relative directory path"},
		{Name: "depth", Type: ParamNumber, Description: "maximum depth, >= 1 (default 3)"},
	}
}

func (GetStructureTool) ValidateParams(params map[string]any) error {
	depth, present, err := paramInt(params, "depth")
	if err != nil {
		return err
	}
	if present && depth < 1 {
		return fmt.Errorf("depth must be >= 1")
	}
	return nil
}

// TreeNode is one entry in the get_structure tree.
type TreeNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	IsDir    bool       `json:"is_dir"`
	Children []TreeNode `json:"children,omitempty"`
}

func (GetStructureTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	rawPath, _, _ := paramString(params, "path")
	depth, hasDepth, _ := paramInt(params, "depth")
	if !hasDepth {
		depth = 3
	}

	root := tc.Root
	relBase := ""
	if rawPath != "" {
		res := tc.Project.Guard.Validate(rawPath, pathguard.Options{RequireDir: true})
		if res.Status != pathguard.Valid {
			return errResult(res.Reason)
		}
		root = res.Abs
		relBase = res.Rel
	}

	tree, err := walkTree(tc, root, relBase, depth)
	if err != nil {
		return errResult(err.Error())
	}
	return ok(tree)
}

func walkTree(tc *Context, abs, rel string, depth int) (TreeNode, error) {
	name := filepath.Base(abs)
	node := TreeNode{Name: name, Path: rel, IsDir: true}
	if depth <= 0 {
		return node, nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return node, err
	}

	var dirs, files []TreeNode
	for _, e := range entries {
		if isIgnoredName(tc, e.Name()) {
			continue
		}
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}
		childAbs := filepath.Join(abs, e.Name())
		if e.IsDir() {
			child, err := walkTree(tc, childAbs, childRel, depth-1)
			if err != nil {
				continue
			}
			dirs = append(dirs, child)
		} else {
			files = append(files, TreeNode{Name: e.Name(), Path: childRel, IsDir: false})
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	node.Children = append(dirs, files...)
	return node, nil
}

func isIgnoredName(tc *Context, name string) bool {
	ignore := tc.IgnorePatterns
	defaultIgnore := []string{
		"node_modules", "dist", "build", ".git", ".idea", ".vscode",
		"__pycache__", "coverage",
	}
	for _, ig := range defaultIgnore {
		if name == ig {
			return true
		}
	}
	for _, ig := range ignore {
		if name == ig || strings.EqualFold(name, ig) {
			return true
		}
	}
	return false
}

// resolveExisting validates path exists as a file under the project
// root and returns its project-relative form.
func resolveExisting(tc *Context, path string) (string, error) {
	res := tc.Project.Guard.Validate(path, pathguard.Options{RequireFile: true})
	if res.Status != pathguard.Valid {
		return "", fmt.Errorf("%s", res.Reason)
	}
	return res.Rel, nil
}

// readLines returns a file's current lines: from the project index's
// cached snapshot if present, else freshly read from disk.
func readLines(tc *Context, rel string) ([]string, error) {
	if snap, ok2 := tc.Project.Snapshot(rel); ok2 {
		return snap.Lines, nil
	}
	raw, err := os.ReadFile(filepath.Join(tc.Root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	return splitLines(string(raw)), nil
}

func splitLines(content string) []string {
	if content == "" {
		return []string{}
	}
	trimmed := strings.HasSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	if trimmed {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampRange(start, end, n int) (int, int) {
	s := clamp(start, 1, max(n, 1))
	e := clamp(end, 1, max(n, 1))
	if s > e {
		s, e = e, s
	}
	return s, e
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
