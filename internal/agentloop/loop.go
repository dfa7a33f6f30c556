package agentloop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cascadehq/cascade/internal/ctxmgr"
	"github.com/cascadehq/cascade/internal/logging"
	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/project"
	"github.com/cascadehq/cascade/internal/session"
	"github.com/cascadehq/cascade/internal/tools"
	"github.com/cascadehq/cascade/internal/wire"
	"github.com/cascadehq/cascade/pkg/llm"
	"github.com/google/uuid"
)

// defaultMaxToolCalls is the per-turn tool-call cap spec.md §4.7
// defaults to when Options.MaxToolCalls is zero.
const defaultMaxToolCalls = 20

// Options configures one Loop.
type Options struct {
	SystemPrompt   string
	MaxToolCalls   int
	AutoApply      bool
	ErrorThreshold int // consecutive identical tool errors before the guard trips; 0 disables

	CommandTimeout time.Duration
	ExtraAllowlist []string
	ExtraBlocklist []string
	IgnorePatterns []string

	Sink  EventSink
	Guard *ErrorGuard
}

// Loop is the bounded interaction state machine spec.md §4.7
// describes: it interleaves model calls and tool executions over one
// session, enforcing the per-turn tool-call cap, driving human-in-the-
// loop confirmation, and honoring cooperative cancellation at every
// suspension point.
type Loop struct {
	transport Transport
	registry  *tools.Registry
	proj      *project.Project
	sessions  *session.Store
	ctxmgr    *ctxmgr.Manager
	parser    *wire.Parser

	opts Options
	sink EventSink

	cancelled atomic.Bool

	mu      sync.Mutex
	status  Status
	session *model.Session
}

// New builds a Loop over one session. transport serves turn
// completion, and also compression when it is a *ProviderTransport
// (any other Transport leaves history uncompressed); proj is the
// already-indexed project the tool context targets.
func New(
	transport Transport,
	registry *tools.Registry,
	proj *project.Project,
	sessions *session.Store,
	cm *ctxmgr.Manager,
	sess *model.Session,
	opts Options,
) *Loop {
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = defaultMaxToolCalls
	}
	sink := opts.Sink
	if sink == nil {
		sink = NoopSink{}
	}
	guard := opts.Guard
	if guard == nil {
		guard = NewErrorGuard(opts.ErrorThreshold)
	}
	opts.Guard = guard

	return &Loop{
		transport: transport,
		registry:  registry,
		proj:      proj,
		sessions:  sessions,
		ctxmgr:    cm,
		parser:    wire.NewParser(),
		opts:      opts,
		sink:      sink,
		status:    StatusReady,
		session:   sess,
	}
}

// Cancel requests cooperative cancellation of the current or next turn
// and aborts any in-flight model call.
func (l *Loop) Cancel() {
	l.cancelled.Store(true)
	l.transport.Abort()
}

func (l *Loop) cancelledNow() bool {
	return l.cancelled.Load()
}

func (l *Loop) setStatus(s Status) {
	l.mu.Lock()
	l.status = s
	l.mu.Unlock()
	l.sink.OnStatusChange(s)
}

// Status returns the loop's current state.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// RunTurn appends userInput (if non-empty) to history and drives the
// agent loop until the model produces a plain textual answer, a
// turn-level bound is hit, or the turn is cancelled (spec.md §4.7
// steps 1-2).
func (l *Loop) RunTurn(ctx context.Context, userInput string, recordInput bool) error {
	l.cancelled.Store(false)

	if userInput != "" {
		msg := model.Message{Role: model.RoleUser, Content: userInput, Timestamp: time.Now()}
		l.session.Messages = append(l.session.Messages, msg)
		l.sink.OnMessage(msg)
		if recordInput {
			l.session.PushInput(userInput)
		}
	}
	if err := l.persist(ctx); err != nil {
		return err
	}

	toolCallsThisTurn := 0

	for {
		if l.cancelledNow() {
			l.setStatus(StatusReady)
			return nil
		}

		l.setStatus(StatusThinking)

		resp, err := l.callModel(ctx)
		if err != nil {
			decision := l.sink.OnError(asCascadeError(err))
			switch decision {
			case ErrorRetry:
				continue
			case ErrorSkip:
				l.setStatus(StatusReady)
				return nil
			default:
				sysMsg := model.Message{Role: model.RoleSystem, Content: fmt.Sprintf("model call failed: %v", err), Timestamp: time.Now()}
				l.session.Messages = append(l.session.Messages, sysMsg)
				l.sink.OnMessage(sysMsg)
				l.setStatus(StatusError)
				_ = l.persist(ctx)
				return err
			}
		}

		if l.cancelledNow() {
			l.setStatus(StatusReady)
			return nil
		}

		parsed := l.parser.Parse(resp.Content)

		if len(parsed.Calls) == 0 {
			assistantMsg := model.Message{
				Role:      model.RoleAssistant,
				Content:   parsed.Text,
				Timestamp: time.Now(),
				Stats: &model.MessageStats{
					Tokens: resp.Tokens,
					Time:   time.Duration(resp.TimeMs) * time.Millisecond,
				},
			}
			l.session.Messages = append(l.session.Messages, assistantMsg)
			l.sink.OnMessage(assistantMsg)
			l.session.Stats.TotalTokens += resp.Tokens

			l.ctxmgr.AddTokens(resp.Tokens)
			l.maybeCompress(ctx)
			l.ctxmgr.UpdateSession(l.session)

			l.setStatus(StatusReady)
			return l.persist(ctx)
		}

		assistantMsg := model.Message{
			Role:      model.RoleAssistant,
			Content:   parsed.Text,
			ToolCalls: stampTimestamps(parsed.Calls),
			Timestamp: time.Now(),
			Stats: &model.MessageStats{
				Tokens:        resp.Tokens,
				Time:          time.Duration(resp.TimeMs) * time.Millisecond,
				ToolCallCount: len(parsed.Calls),
			},
		}
		l.session.Messages = append(l.session.Messages, assistantMsg)
		l.sink.OnMessage(assistantMsg)
		l.session.Stats.TotalTokens += resp.Tokens
		l.ctxmgr.AddTokens(resp.Tokens)

		toolCallsThisTurn += len(assistantMsg.ToolCalls)
		if toolCallsThisTurn > l.opts.MaxToolCalls {
			sysMsg := model.Message{
				Role:      model.RoleSystem,
				Content:   fmt.Sprintf("Maximum tool calls (%d) exceeded", l.opts.MaxToolCalls),
				Timestamp: time.Now(),
			}
			l.session.Messages = append(l.session.Messages, sysMsg)
			l.sink.OnMessage(sysMsg)
			l.setStatus(StatusReady)
			return l.persist(ctx)
		}

		results := l.runToolCalls(ctx, assistantMsg.ToolCalls)
		if l.cancelledNow() {
			l.setStatus(StatusReady)
			return nil
		}

		toolMsg := model.Message{
			Role:       model.RoleTool,
			Timestamp:  time.Now(),
			ToolResult: results,
		}
		l.session.Messages = append(l.session.Messages, toolMsg)
		l.sink.OnMessage(toolMsg)

		l.maybeCompress(ctx)
		l.ctxmgr.UpdateSession(l.session)
		if err := l.persist(ctx); err != nil {
			return err
		}
	}
}

// runToolCalls executes calls in order, emitting tool-call/tool-result
// events and honoring cancellation between calls (spec.md §4.7 step
// e, §5 ordering guarantees).
func (l *Loop) runToolCalls(ctx context.Context, calls []model.ToolCall) []model.ToolResult {
	l.setStatus(StatusToolCall)
	results := make([]model.ToolResult, 0, len(calls))

	toolCtx := &tools.Context{
		Root:           l.proj.Root,
		Project:        l.proj,
		RequestConfirm: l.confirm,
		OnProgress:     func(msg string) { logging.Get().Debug().Msg(msg) },
		AutoApply:      l.opts.AutoApply,
		CommandTimeout: l.opts.CommandTimeout,
		ExtraAllowlist: l.opts.ExtraAllowlist,
		ExtraBlocklist: l.opts.ExtraBlocklist,
		IgnorePatterns: l.opts.IgnorePatterns,
	}

	for _, call := range calls {
		if l.cancelledNow() {
			break
		}
		l.sink.OnToolCall(call)

		result := l.registry.Dispatch(ctx, toolCtx, call)
		l.sink.OnToolResult(result)
		results = append(results, result)

		l.session.Stats.ToolCalls++
		if result.Success {
			l.opts.Guard.RecordSuccess()
			if t, found := l.registry.Get(call.Name); found && t.Category() == tools.CategoryEdit {
				l.session.Stats.EditsApplied++
			}
		} else {
			l.opts.Guard.Record(result.Error)
		}
	}

	return results
}

// confirm is the agent's injected request_confirmation implementation
// (spec.md §4.7 "Confirmation flow"): under auto-apply it creates an
// undo entry unconditionally and approves; otherwise it delegates to
// the sink and, on approval, pushes an UndoEntry built from the diff
// (substituting any user-edited content).
func (l *Loop) confirm(message string, diff *model.DiffInfo) (bool, []string) {
	if l.opts.AutoApply {
		if diff != nil {
			l.pushUndo(message, diff, nil)
		}
		return true, nil
	}

	confirmed, edited := l.sink.OnConfirmation(message, diff)
	if !confirmed {
		return false, nil
	}
	if diff != nil {
		l.pushUndo(message, diff, edited)
	}
	return true, edited
}

func (l *Loop) pushUndo(description string, diff *model.DiffInfo, edited []string) {
	newLines := diff.NewLines
	if edited != nil {
		newLines = edited
	}
	entry := model.UndoEntry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		FilePath:    diff.FilePath,
		PrevLines:   diff.OldLines,
		NewLines:    newLines,
		Description: description,
	}
	l.session.PushUndo(entry)
	l.sink.OnUndoEntry(entry)
}

// callModel assembles the system prompt, project summary, and session
// history into the transport's message list (spec.md §4.7 step a),
// appending a transient tool-use reminder when the last history entry
// is a user message, then sends the turn.
func (l *Loop) callModel(ctx context.Context) (ChatResponse, error) {
	system := l.opts.SystemPrompt
	if l.proj != nil {
		system += "\n\n" + ProjectSummary(l.proj)
	}

	history := toLLMMessages(l.session.Messages)
	if n := len(l.session.Messages); n > 0 && l.session.Messages[n-1].Role == model.RoleUser {
		history = append(history, llm.SystemMessage("Remember: use a tool_call to act on the workspace, or answer in plain text if you are done."))
	}

	return l.transport.Chat(ctx, ChatRequest{System: system, Messages: history})
}

func (l *Loop) maybeCompress(ctx context.Context) {
	if !l.ctxmgr.NeedsCompression() {
		return
	}
	pt, ok := l.transport.(*ProviderTransport)
	if !ok {
		return
	}
	newHistory, result, err := ctxmgr.Compress(ctx, pt.provider, pt.model, l.session.Messages, l.ctxmgr.Method())
	if err != nil || !result.Compressed {
		return
	}
	l.session.Messages = newHistory
	l.ctxmgr.AddTokens(-result.TokensSaved)
}

func (l *Loop) persist(ctx context.Context) error {
	if l.sessions == nil {
		return nil
	}
	return l.sessions.Save(ctx, l.session)
}

// stampTimestamps fills in the call timestamp the wire parser leaves
// zero, keeping each call's id as the parser assigned it.
func stampTimestamps(calls []model.ToolCall) []model.ToolCall {
	out := make([]model.ToolCall, len(calls))
	for i, c := range calls {
		c.Timestamp = time.Now()
		out[i] = c
	}
	return out
}

// asCascadeError normalizes a transport error into a CascadeError,
// using the provider error classifiers to attach a remediation
// suggestion where the failure shape is recognized.
func asCascadeError(err error) *model.CascadeError {
	if ce, ok := model.AsCascadeError(err); ok {
		return ce
	}
	ce := model.NewError(model.ErrLLM, err.Error(), err)
	switch {
	case llm.IsRateLimitError(err):
		return ce.WithSuggestion("the provider is rate-limiting requests; wait a moment and retry")
	case llm.IsAuthError(err):
		return ce.WithSuggestion("check the API key configured for this provider")
	case llm.IsContextLengthError(err):
		return ce.WithSuggestion("the conversation exceeded the model's context window; compression should reduce it before the next turn")
	default:
		return ce
	}
}
