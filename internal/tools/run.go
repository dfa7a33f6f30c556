package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/security"
)

// RunCommandTool implements run_command: classify the command via
// internal/security, block known-destructive shapes outright, and
// require confirmation for anything not explicitly allowlisted unless
// the session is running with auto-apply.
type RunCommandTool struct{}

func (RunCommandTool) Name() string            { return "run_command" }
func (RunCommandTool) Category() Category      { return CategoryRun }
func (RunCommandTool) RequiresConfirmation() bool { return true }
func (RunCommandTool) Description() string {
	return "Run a shell command in the project root, subject to the command security policy."
}
func (RunCommandTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "command", Type: ParamString, Required: true, Description: "shell command line"},
		{Name: "timeout", Type: ParamNumber, Description: "timeout in seconds"},
	}
}

func (RunCommandTool) ValidateParams(params map[string]any) error {
	_, err := requireString(params, "command")
	return err
}

func (RunCommandTool) Execute(ctx context.Context, tc *Context, params map[string]any) model.ToolResult {
	command, _ := paramString(params, "command")
	timeoutSec, hasTimeout, _ := paramInt(params, "timeout")

	verdict := security.Classify(command)
	if isBlocklisted(tc, command) {
		verdict = security.VerdictBlock
	} else if isAllowlisted(tc, command) {
		verdict = security.VerdictAllow
	}

	if verdict == security.VerdictBlock {
		return errResult(fmt.Sprintf("command blocked by security policy: %s", command))
	}

	if verdict == security.VerdictConfirm && !tc.AutoApply {
		confirmed, _ := tc.RequestConfirm(fmt.Sprintf("run_command: %s", command), nil)
		if !confirmed {
			return errResult("cancelled")
		}
	}

	timeout := tc.CommandTimeout
	if hasTimeout {
		timeout = secondsToDuration(timeoutSec)
	}
	result, err := security.Run(ctx, tc.Root, command, timeout)
	if err != nil {
		if result.TimedOut {
			return errResult(fmt.Sprintf("command timed out: %s", command))
		}
		return errResult(err.Error())
	}

	return ok(map[string]any{
		"exitCode": result.ExitCode,
		"stdout":   result.Stdout,
		"stderr":   result.Stderr,
	})
}

// RunTestsTool implements run_tests: run the project's configured test
// command (default "npm test" when the caller does not supply one).
// It shares run_command's security classification since a malicious
// test command is indistinguishable from any other shell command.
type RunTestsTool struct{}

func (RunTestsTool) Name() string            { return "run_tests" }
func (RunTestsTool) Category() Category      { return CategoryRun }
func (RunTestsTool) RequiresConfirmation() bool { return true }
func (RunTestsTool) Description() string {
	return "Run the project's test suite."
}
func (RunTestsTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "command", Type: ParamString, Description: "test command override (default: npm test)"},
	}
}

func (RunTestsTool) ValidateParams(map[string]any) error { return nil }

func (RunTestsTool) Execute(ctx context.Context, tc *Context, params map[string]any) model.ToolResult {
	command, has, _ := paramString(params, "command")
	if !has || command == "" {
		command = "npm test"
	}
	return RunCommandTool{}.Execute(ctx, tc, map[string]any{"command": command})
}

func isBlocklisted(tc *Context, command string) bool {
	for _, pat := range tc.ExtraBlocklist {
		if pat == command {
			return true
		}
	}
	return false
}

func isAllowlisted(tc *Context, command string) bool {
	for _, pat := range tc.ExtraAllowlist {
		if pat == command {
			return true
		}
	}
	return false
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
