package agentloop

import (
	"github.com/cascadehq/cascade/internal/model"
)

// Status is the agent loop's state, the ready/thinking/tool_call/
// awaiting_confirmation/error machine spec.md §4.7 defines.
type Status string

const (
	StatusReady                Status = "ready"
	StatusThinking              Status = "thinking"
	StatusToolCall              Status = "tool_call"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusError                Status = "error"
)

// ErrorDecision is the terminal UI port's response to on_error:
// retry the failed step, skip it, or abort the loop entirely.
type ErrorDecision string

const (
	ErrorRetry ErrorDecision = "retry"
	ErrorSkip  ErrorDecision = "skip"
	ErrorAbort ErrorDecision = "abort"
)

// EventSink is the terminal UI port spec.md §6 describes: it receives
// loop events synchronously, in program order, and supplies the two
// interactive decisions (confirmation, error handling) the loop
// blocks on.
type EventSink interface {
	OnMessage(msg model.Message)
	OnToolCall(call model.ToolCall)
	OnToolResult(result model.ToolResult)
	OnStatusChange(status Status)
	OnUndoEntry(entry model.UndoEntry)

	// OnConfirmation requests human-in-the-loop approval for a tool's
	// effect. It returns whether the user confirmed and any edited
	// replacement content they supplied in place of diff.NewLines.
	OnConfirmation(message string, diff *model.DiffInfo) (confirmed bool, editedContent []string)

	// OnError reports a CascadeError and asks how to proceed.
	OnError(err *model.CascadeError) ErrorDecision
}

// NoopSink is an EventSink that discards every event and always
// confirms/retries; useful for tests and headless (auto-apply) runs.
type NoopSink struct{}

func (NoopSink) OnMessage(model.Message)         {}
func (NoopSink) OnToolCall(model.ToolCall)       {}
func (NoopSink) OnToolResult(model.ToolResult)   {}
func (NoopSink) OnStatusChange(Status)           {}
func (NoopSink) OnUndoEntry(model.UndoEntry)     {}

func (NoopSink) OnConfirmation(string, *model.DiffInfo) (bool, []string) {
	return true, nil
}

func (NoopSink) OnError(*model.CascadeError) ErrorDecision {
	return ErrorRetry
}
