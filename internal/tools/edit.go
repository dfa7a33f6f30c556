package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/pathguard"
)

// EditLinesTool implements spec.md §4.4's edit_lines, the authoritative
// line-range replace-with-confirmation-and-conflict-check tool.
type EditLinesTool struct{}

func (EditLinesTool) Name() string            { return "edit_lines" }
func (EditLinesTool) Category() Category      { return CategoryEdit }
func (EditLinesTool) RequiresConfirmation() bool { return true }
func (EditLinesTool) Description() string {
	return "Replace an inclusive 1-based line range in a file with new content."
}
func (EditLinesTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Required: true, Description: "project-relative file path"},
		{Name: "start", Type: ParamNumber, Required: true, Description: "1-based start line"},
		{Name: "end", Type: ParamNumber, Required: true, Description: "1-based end line"},
		{Name: "content", Type: ParamString, Required: true, Description: "replacement content"},
	}
}

func (EditLinesTool) ValidateParams(params map[string]any) error {
	if _, err := requireString(params, "path"); err != nil {
		return err
	}
	start, hasStart, err := paramInt(params, "start")
	if err != nil {
		return err
	}
	if !hasStart {
		return fmt.Errorf("start is required")
	}
	end, hasEnd, err := paramInt(params, "end")
	if err != nil {
		return err
	}
	if !hasEnd {
		return fmt.Errorf("end is required")
	}
	if start < 1 {
		return fmt.Errorf("start must be >= 1")
	}
	if start > end {
		return fmt.Errorf("start must be <= end")
	}
	if _, err := requireString(params, "content"); err != nil {
		return err
	}
	return nil
}

func (EditLinesTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, _ := paramString(params, "path")
	start, _, _ := paramInt(params, "start")
	end, _, _ := paramInt(params, "end")
	content, _ := paramString(params, "content")

	rel, resErr := resolveExisting(tc, path)
	if resErr != nil {
		return errResult(resErr.Error())
	}

	currentLines, currentHash, fromSnapshot, snapHash, hasSnap, err := currentFileState(tc, rel)
	if err != nil {
		return errResult(err.Error())
	}
	if hasSnap && snapHash != currentHash {
		return errResult("file modified externally")
	}
	_ = fromSnapshot

	lineCount := len(currentLines)
	if start > lineCount {
		return errResult(fmt.Sprintf("start line %d exceeds file length %d", start, lineCount))
	}
	clampedEnd := end
	if clampedEnd > lineCount {
		clampedEnd = lineCount
	}

	replacement := splitLines(content)
	newLines := make([]string, 0, len(currentLines)+len(replacement))
	newLines = append(newLines, currentLines[:start-1]...)
	newLines = append(newLines, replacement...)
	newLines = append(newLines, currentLines[clampedEnd:]...)

	diff := model.DiffInfo{
		FilePath:  rel,
		OldLines:  append([]string(nil), currentLines[start-1:clampedEnd]...),
		NewLines:  replacement,
		StartLine: start,
	}

	confirmed, edited := tc.RequestConfirm(fmt.Sprintf("edit_lines: %s (lines %d-%d)", rel, start, clampedEnd), &diff)
	if !confirmed {
		return errResult("cancelled")
	}
	if edited != nil {
		newLines = make([]string, 0, len(currentLines)+len(edited))
		newLines = append(newLines, currentLines[:start-1]...)
		newLines = append(newLines, edited...)
		newLines = append(newLines, currentLines[clampedEnd:]...)
	}

	if err := writeFile(tc, rel, newLines); err != nil {
		return errResult(err.Error())
	}
	if err := tc.Project.PutSnapshot(context.Background(), rel, newLines); err != nil {
		return errResult(err.Error())
	}

	return ok(map[string]any{
		"path":          rel,
		"linesReplaced": clampedEnd - start + 1,
		"newLineCount":  len(newLines),
	})
}

// CreateFileTool implements create_file.
type CreateFileTool struct{}

func (CreateFileTool) Name() string            { return "create_file" }
func (CreateFileTool) Category() Category      { return CategoryEdit }
func (CreateFileTool) RequiresConfirmation() bool { return true }
func (CreateFileTool) Description() string {
	return "Create a new file with the given content; fails if the file already exists."
}
func (CreateFileTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Required: true, Description: "project-relative file path"},
		{Name: "content", Type: ParamString, Required: true, Description: "file content"},
	}
}

func (CreateFileTool) ValidateParams(params map[string]any) error {
	if _, err := requireString(params, "path"); err != nil {
		return err
	}
	_, err := requireString(params, "content")
	return err
}

func (CreateFileTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, _ := paramString(params, "path")
	content, _ := paramString(params, "content")

	res := tc.Project.Guard.Validate(path, pathguard.Options{AllowNonexistent: true})
	if res.Status != pathguard.Valid {
		return errResult(res.Reason)
	}
	if _, err := os.Stat(res.Abs); err == nil {
		return errResult(fmt.Sprintf("%s already exists", res.Rel))
	}

	newLines := splitLines(content)
	diff := model.DiffInfo{FilePath: res.Rel, OldLines: []string{}, NewLines: newLines}

	confirmed, edited := tc.RequestConfirm(fmt.Sprintf("create_file: %s", res.Rel), &diff)
	if !confirmed {
		return errResult("cancelled")
	}
	if edited != nil {
		newLines = edited
	}

	if err := os.MkdirAll(filepath.Dir(res.Abs), 0o755); err != nil {
		return errResult(err.Error())
	}
	if err := writeFile(tc, res.Rel, newLines); err != nil {
		return errResult(err.Error())
	}
	if err := tc.Project.PutSnapshot(context.Background(), res.Rel, newLines); err != nil {
		return errResult(err.Error())
	}

	return ok(map[string]any{"path": res.Rel, "lineCount": len(newLines)})
}

// DeleteFileTool implements delete_file.
type DeleteFileTool struct{}

func (DeleteFileTool) Name() string            { return "delete_file" }
func (DeleteFileTool) Category() Category      { return CategoryEdit }
func (DeleteFileTool) RequiresConfirmation() bool { return true }
func (DeleteFileTool) Description() string {
	return "Delete an existing regular file."
}
func (DeleteFileTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Required: true, Description: "project-relative file path"},
	}
}

func (DeleteFileTool) ValidateParams(params map[string]any) error {
	_, err := requireString(params, "path")
	return err
}

func (DeleteFileTool) Execute(_ context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, _ := paramString(params, "path")
	rel, resErr := resolveExisting(tc, path)
	if resErr != nil {
		return errResult(resErr.Error())
	}

	currentLines, _, _, _, _, err := currentFileState(tc, rel)
	if err != nil {
		return errResult(err.Error())
	}

	diff := model.DiffInfo{FilePath: rel, OldLines: currentLines, NewLines: []string{}}
	confirmed, _ := tc.RequestConfirm(fmt.Sprintf("delete_file: %s", rel), &diff)
	if !confirmed {
		return errResult("cancelled")
	}

	abs := filepath.Join(tc.Root, filepath.FromSlash(rel))
	if err := os.Remove(abs); err != nil {
		return errResult(err.Error())
	}
	if err := tc.Project.RemoveFile(context.Background(), rel); err != nil {
		return errResult(err.Error())
	}

	return ok(map[string]any{"path": rel, "deleted": true})
}

// currentFileState reads rel's current lines and their hash from disk,
// plus the project snapshot's recorded hash (when rel has a snapshot)
// for the external-modification check.
func currentFileState(tc *Context, rel string) (lines []string, currentHash string, fromSnapshot bool, snapHash string, hasSnap bool, err error) {
	abs := filepath.Join(tc.Root, filepath.FromSlash(rel))
	raw, readErr := os.ReadFile(abs)
	if readErr != nil {
		return nil, "", false, "", false, readErr
	}
	diskLines := splitLines(string(raw))
	diskHash := hashLines(diskLines)

	if snap, ok2 := tc.Project.Snapshot(rel); ok2 {
		return diskLines, diskHash, true, snap.Hash, true, nil
	}
	return diskLines, diskHash, false, "", false, nil
}

// hashLines matches the project package's own snapshot hash so an
// externally-modified file can be detected by comparison.
func hashLines(lines []string) string {
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func writeFile(tc *Context, rel string, lines []string) error {
	abs := filepath.Join(tc.Root, filepath.FromSlash(rel))
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}
