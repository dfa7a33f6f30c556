package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/security"
)

// GitStatusTool implements git_status.
type GitStatusTool struct{}

func (GitStatusTool) Name() string            { return "git_status" }
func (GitStatusTool) Category() Category      { return CategoryGit }
func (GitStatusTool) RequiresConfirmation() bool { return false }
func (GitStatusTool) Description() string {
	return "Report the project's working tree status."
}
func (GitStatusTool) Params() []ParamSpec { return nil }
func (GitStatusTool) ValidateParams(map[string]any) error { return nil }

func (GitStatusTool) Execute(ctx context.Context, tc *Context, _ map[string]any) model.ToolResult {
	res, err := security.Run(ctx, tc.Root, "git status --porcelain=v1 -b", tc.CommandTimeout)
	if err != nil {
		return errResult(err.Error())
	}
	if res.ExitCode != 0 {
		return errResult(strings.TrimSpace(res.Stderr))
	}
	return ok(map[string]any{"status": res.Stdout})
}

// GitDiffTool implements git_diff.
type GitDiffTool struct{}

func (GitDiffTool) Name() string            { return "git_diff" }
func (GitDiffTool) Category() Category      { return CategoryGit }
func (GitDiffTool) RequiresConfirmation() bool { return false }
func (GitDiffTool) Description() string {
	return "Show the diff for the working tree, optionally restricted to one path."
}
func (GitDiffTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "path", Type: ParamString, Description: "restrict the diff to one file"},
		{Name: "staged", Type: ParamBoolean, Description: "show the staged diff instead"},
	}
}

func (GitDiffTool) ValidateParams(map[string]any) error { return nil }

func (GitDiffTool) Execute(ctx context.Context, tc *Context, params map[string]any) model.ToolResult {
	path, hasPath, _ := paramString(params, "path")
	staged, _, _ := paramBool(params, "staged")

	cmd := "git diff"
	if staged {
		cmd += " --staged"
	}
	if hasPath {
		rel, resErr := resolveExisting(tc, path)
		if resErr != nil {
			return errResult(resErr.Error())
		}
		cmd += " -- " + rel
	}

	res, err := security.Run(ctx, tc.Root, cmd, tc.CommandTimeout)
	if err != nil {
		return errResult(err.Error())
	}
	if res.ExitCode != 0 {
		return errResult(strings.TrimSpace(res.Stderr))
	}
	return ok(map[string]any{"diff": res.Stdout})
}

// GitCommitTool implements git_commit: always requires confirmation,
// since it mutates the repository's history.
type GitCommitTool struct{}

func (GitCommitTool) Name() string            { return "git_commit" }
func (GitCommitTool) Category() Category      { return CategoryGit }
func (GitCommitTool) RequiresConfirmation() bool { return true }
func (GitCommitTool) Description() string {
	return "Stage all changes and create a commit with the given message."
}
func (GitCommitTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "message", Type: ParamString, Required: true, Description: "commit message"},
	}
}

func (GitCommitTool) ValidateParams(params map[string]any) error {
	_, err := requireString(params, "message")
	return err
}

func (GitCommitTool) Execute(ctx context.Context, tc *Context, params map[string]any) model.ToolResult {
	message, _ := paramString(params, "message")

	confirmed, _ := tc.RequestConfirm(fmt.Sprintf("git_commit: %s", message), nil)
	if !confirmed {
		return errResult("cancelled")
	}

	if res, err := security.Run(ctx, tc.Root, "git add -A", tc.CommandTimeout); err != nil || res.ExitCode != 0 {
		if err != nil {
			return errResult(err.Error())
		}
		return errResult(strings.TrimSpace(res.Stderr))
	}

	escaped := strings.ReplaceAll(message, `"`, `\"`)
	res, err := security.Run(ctx, tc.Root, fmt.Sprintf(`git commit -m "%s"`, escaped), tc.CommandTimeout)
	if err != nil {
		return errResult(err.Error())
	}
	if res.ExitCode != 0 {
		return errResult(strings.TrimSpace(res.Stderr))
	}
	return ok(map[string]any{"output": res.Stdout})
}
