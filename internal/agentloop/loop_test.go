package agentloop

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/ctxmgr"
	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/project"
	"github.com/cascadehq/cascade/internal/session"
	"github.com/cascadehq/cascade/internal/storage"
	"github.com/cascadehq/cascade/internal/tools"
)

// scriptedTransport replays a fixed sequence of ChatResponses, one per
// call; once exhausted it repeats the last entry, letting tests model
// "the model keeps emitting the same tool call forever".
type scriptedTransport struct {
	responses []ChatResponse
	calls     int
	onCall    func(n int)
}

func (s *scriptedTransport) Chat(context.Context, ChatRequest) (ChatResponse, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	if s.onCall != nil {
		s.onCall(s.calls)
	}
	return s.responses[idx], nil
}
func (s *scriptedTransport) CountTokens(text string) int { return len(text) / 4 }
func (s *scriptedTransport) IsAvailable() bool           { return true }
func (s *scriptedTransport) ModelName() string           { return "test-model" }
func (s *scriptedTransport) ContextWindowSize() int       { return 100000 }
func (s *scriptedTransport) Abort()                       {}

func newTestLoop(t *testing.T, responses []ChatResponse, opts Options) (*Loop, *project.Project, *model.Session) {
	t.Helper()
	return newTestLoopWithTransport(t, &scriptedTransport{responses: responses}, opts)
}

func newTestLoopWithTransport(t *testing.T, transport Transport, opts Options) (*Loop, *project.Project, *model.Session) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("export const x = 1\nexport const y = 2\nexport const z = 3\n"), 0o644))

	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))

	sess := &model.Session{ID: "s1", ProjectName: "demo"}
	cm := ctxmgr.NewManager(100000)

	loop := New(transport, tools.NewBuiltinRegistry(), proj, nil, cm, sess, opts)
	return loop, proj, sess
}

func TestRunTurn_PlainTextAnswer(t *testing.T) {
	loop, _, sess := newTestLoop(t, []ChatResponse{{Content: "The answer is 42."}}, Options{})

	err := loop.RunTurn(context.Background(), "what is the answer?", true)
	require.NoError(t, err)

	require.Len(t, sess.Messages, 2)
	assert.Equal(t, model.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, "The answer is 42.", sess.Messages[1].Content)
	assert.Equal(t, StatusReady, loop.Status())
}

func TestRunTurn_ToolCallThenAnswer(t *testing.T) {
	getLines := `<tool_call name="get_lines"><param name="path">a.ts</param><param name="start">1</param><param name="end">1</param></tool_call>`
	loop, _, sess := newTestLoop(t, []ChatResponse{
		{Content: getLines},
		{Content: "Line 1 is: export const x = 1"},
	}, Options{})

	err := loop.RunTurn(context.Background(), "read a.ts line 1", true)
	require.NoError(t, err)

	require.Len(t, sess.Messages, 4)
	assert.Equal(t, model.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, sess.Messages[1].Role)
	require.Len(t, sess.Messages[1].ToolCalls, 1)
	assert.Equal(t, "get_lines", sess.Messages[1].ToolCalls[0].Name)
	assert.Equal(t, model.RoleTool, sess.Messages[2].Role)
	require.Len(t, sess.Messages[2].ToolResult, 1)
	assert.True(t, sess.Messages[2].ToolResult[0].Success)
	assert.Equal(t, model.RoleAssistant, sess.Messages[3].Role)
}

func TestRunTurn_MaxToolCallsExceeded(t *testing.T) {
	repeated := `<tool_call name="get_lines"><param name="path">a.ts</param></tool_call>`
	loop, _, sess := newTestLoop(t, []ChatResponse{{Content: repeated}}, Options{MaxToolCalls: 3})

	err := loop.RunTurn(context.Background(), "loop forever", true)
	require.NoError(t, err)

	toolCallCount := 0
	for _, m := range sess.Messages {
		if m.Role == model.RoleTool {
			toolCallCount += len(m.ToolResult)
		}
	}
	assert.Equal(t, 3, toolCallCount)

	last := sess.Messages[len(sess.Messages)-1]
	assert.Equal(t, model.RoleSystem, last.Role)
	assert.Contains(t, last.Content, "Maximum tool calls (3) exceeded")
	assert.Equal(t, StatusReady, loop.Status())
}

func TestRunTurn_EditConfirmedCreatesUndoEntry(t *testing.T) {
	edit := `<tool_call name="edit_lines"><param name="path">a.ts</param><param name="start">1</param><param name="end">1</param><param name="content">export const x = 99</param></tool_call>`
	loop, proj, sess := newTestLoop(t, []ChatResponse{
		{Content: edit},
		{Content: "Done."},
	}, Options{Sink: confirmingSink{}})

	err := loop.RunTurn(context.Background(), "rename x to 99", true)
	require.NoError(t, err)

	require.Len(t, sess.UndoStack, 1)
	assert.Equal(t, "a.ts", sess.UndoStack[0].FilePath)
	assert.Equal(t, 1, sess.Stats.EditsApplied)

	snap, ok := proj.Snapshot("a.ts")
	require.True(t, ok)
	assert.Equal(t, "export const x = 99", snap.Lines[0])
}

func TestRunTurn_AutoApplyPushesUndoWithoutConfirmationCallback(t *testing.T) {
	edit := `<tool_call name="edit_lines"><param name="path">a.ts</param><param name="start">2</param><param name="end">2</param><param name="content">export const y = 20</param></tool_call>`
	loop, _, sess := newTestLoop(t, []ChatResponse{
		{Content: edit},
		{Content: "Done."},
	}, Options{AutoApply: true, Sink: refusingSink{}})

	err := loop.RunTurn(context.Background(), "bump y", true)
	require.NoError(t, err)
	require.Len(t, sess.UndoStack, 1)
}

func TestRunTurn_CancelledMidTurn(t *testing.T) {
	repeated := `<tool_call name="get_lines"><param name="path">a.ts</param></tool_call>`
	transport := &scriptedTransport{responses: []ChatResponse{{Content: repeated}}}
	loop, _, sess := newTestLoopWithTransport(t, transport, Options{})
	transport.onCall = func(int) { loop.Cancel() }

	err := loop.RunTurn(context.Background(), "hi", true)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, loop.Status())
	require.Len(t, sess.Messages, 1) // only the user message; the response was never parsed/applied
}

// confirmingSink always confirms and accepts no edited content.
type confirmingSink struct{ NoopSink }

func (confirmingSink) OnConfirmation(string, *model.DiffInfo) (bool, []string) { return true, nil }

// refusingSink always refuses, to prove AutoApply never calls it.
type refusingSink struct{ NoopSink }

func (refusingSink) OnConfirmation(string, *model.DiffInfo) (bool, []string) {
	panic("OnConfirmation should not be called under AutoApply")
}

func TestNewSession_ThenRunTurn_Persists(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("export const x = 1\n"), 0o644))
	proj := project.New("demo", root, nil, nil)
	require.NoError(t, proj.IndexAll(context.Background()))

	backend := storage.NewBoltStore(filepath.Join(t.TempDir(), "cascade.bolt"))
	require.NoError(t, backend.Connect(context.Background()))
	t.Cleanup(func() { backend.Disconnect(context.Background()) })
	store := session.NewStore(backend)
	sess, err := store.New(context.Background(), "demo")
	require.NoError(t, err)

	cm := ctxmgr.NewManager(100000)
	transport := &scriptedTransport{responses: []ChatResponse{{Content: "hi there"}}}
	loop := New(transport, tools.NewBuiltinRegistry(), proj, store, cm, sess, Options{})

	require.NoError(t, loop.RunTurn(context.Background(), "hello", true))

	reloaded, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Messages, 2)
	assert.Equal(t, "hi there", reloaded.Messages[1].Content)
}
