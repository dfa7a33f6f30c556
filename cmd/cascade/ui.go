package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cascadehq/cascade/internal/agentloop"
	"github.com/cascadehq/cascade/internal/model"
)

// terminalSink implements agentloop.EventSink over stdin/stdout: the
// minimal "terminal UI port" spec.md §6 describes, printing events as
// they happen and prompting on stdin for confirmation/error
// decisions. cmdStart always installs it; under --auto-apply the loop
// approves edits itself and never calls OnConfirmation.
type terminalSink struct {
	in *bufio.Reader
}

func newTerminalSink() *terminalSink {
	return &terminalSink{in: bufio.NewReader(os.Stdin)}
}

func (t *terminalSink) OnMessage(msg model.Message) {
	switch msg.Role {
	case model.RoleAssistant:
		if msg.Content != "" {
			fmt.Println(msg.Content)
		}
	case model.RoleSystem:
		fmt.Println("system:", msg.Content)
	}
}

func (t *terminalSink) OnToolCall(call model.ToolCall) {
	fmt.Printf("-> %s %v\n", call.Name, call.Params)
}

func (t *terminalSink) OnToolResult(result model.ToolResult) {
	if result.Success {
		fmt.Printf("   ok (%s)\n", result.Time)
		return
	}
	fmt.Printf("   error: %s\n", result.Error)
}

func (t *terminalSink) OnStatusChange(status agentloop.Status) {
	fmt.Fprintf(os.Stderr, "[%s]\n", status)
}

func (t *terminalSink) OnUndoEntry(entry model.UndoEntry) {
	fmt.Printf("   (undo available: %s on %s)\n", entry.ID[:8], entry.FilePath)
}

func (t *terminalSink) OnConfirmation(message string, diff *model.DiffInfo) (bool, []string) {
	fmt.Println(message)
	if diff != nil {
		printDiff(diff)
	}
	fmt.Print("Apply? [y/N/edit]: ")
	line, _ := t.in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	switch line {
	case "y", "yes":
		return true, nil
	case "e", "edit":
		fmt.Println("Enter replacement content, end with a single '.' on its own line:")
		var lines []string
		for {
			l, err := t.in.ReadString('\n')
			l = strings.TrimRight(l, "\n")
			if l == "." || err != nil {
				break
			}
			lines = append(lines, l)
		}
		return true, lines
	default:
		return false, nil
	}
}

func (t *terminalSink) OnError(err *model.CascadeError) agentloop.ErrorDecision {
	fmt.Fprintf(os.Stderr, "error: %s\n", err.Message)
	if !err.Kind.Recoverable() {
		return agentloop.ErrorAbort
	}
	fmt.Print("[r]etry / [s]kip / [a]bort: ")
	line, _ := t.in.ReadString('\n')
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "r", "retry":
		return agentloop.ErrorRetry
	case "a", "abort":
		return agentloop.ErrorAbort
	default:
		return agentloop.ErrorSkip
	}
}

func printDiff(diff *model.DiffInfo) {
	fmt.Printf("--- %s\n", diff.FilePath)
	for _, l := range diff.OldLines {
		fmt.Println("- " + l)
	}
	for _, l := range diff.NewLines {
		fmt.Println("+ " + l)
	}
}
