package ctxmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/pkg/llm"
)

type fakeProvider struct {
	response *llm.CompletionResponse
	err      error
	lastReq  *llm.CompletionRequest
}

func (f *fakeProvider) Name() string        { return "fake" }
func (f *fakeProvider) Models() []string     { return []string{"fake-model"} }
func (f *fakeProvider) CountTokens(s string) (int, error) { return len(s) / 4, nil }
func (f *fakeProvider) ContextWindow(model string) int    { return 100000 }
func (f *fakeProvider) Stream(ctx context.Context, req *llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return nil, nil
}
func (f *fakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func TestManager_AddFileReplacesCount(t *testing.T) {
	m := NewManager(1000)
	m.AddFile("a.ts", 100)
	m.AddFile("a.ts", 50)
	assert.Len(t, m.files, 1)
	assert.Equal(t, 50, m.files["a.ts"].Tokens)
}

func TestManager_UsageAndNeedsCompression(t *testing.T) {
	m := NewManager(1000)
	m.AddTokens(700)
	assert.InDelta(t, 0.7, m.Usage(), 0.001)
	assert.False(t, m.NeedsCompression())

	m.AddTokens(200)
	assert.True(t, m.NeedsCompression())
}

func TestManager_AddTokensClampsAtZero(t *testing.T) {
	m := NewManager(1000)
	m.AddTokens(50)
	m.AddTokens(-500)
	assert.Equal(t, 0, m.TokenCount())
}

func TestManager_SyncAndUpdateSession(t *testing.T) {
	m := NewManager(1000)
	s := &model.Session{}
	s.Context.TokenUsage = 0.5
	s.Context.FilesInContext = []string{"x.ts", "y.ts"}

	m.SyncFromSession(s)
	assert.Equal(t, 500, m.TokenCount())
	assert.Len(t, m.files, 2)

	m.AddFile("z.ts", 10)
	m.UpdateSession(s)
	assert.Len(t, s.Context.FilesInContext, 3)
	assert.InDelta(t, 0.5, s.Context.TokenUsage, 0.001)
}

func TestManager_SetMethodAndGetter(t *testing.T) {
	m := NewManager(1000)
	assert.Equal(t, MethodSummary, m.Method())
	m.SetMethod(MethodTruncate)
	assert.Equal(t, MethodTruncate, m.Method())
}

func TestCompress_BelowMinHistoryNotCompressed(t *testing.T) {
	history := make([]model.Message, 5)
	provider := &fakeProvider{}
	result, res, err := Compress(context.Background(), provider, "fake-model", history, MethodSummary)
	require.NoError(t, err)
	assert.False(t, res.Compressed)
	assert.Equal(t, "not compressed", res.Reason)
	assert.Equal(t, history, result)
}

func TestCompress_SummarizesAndKeepsLast5(t *testing.T) {
	history := make([]model.Message, 0, 12)
	for i := 0; i < 7; i++ {
		history = append(history, model.Message{Role: model.RoleUser, Content: "old message", Stats: &model.MessageStats{Tokens: 100}})
	}
	for i := 0; i < 5; i++ {
		history = append(history, model.Message{Role: model.RoleAssistant, Content: "recent message"})
	}

	provider := &fakeProvider{response: &llm.CompletionResponse{
		Content: "summary text",
		Usage:   llm.TokenUsage{TotalTokens: 50},
	}}

	result, res, err := Compress(context.Background(), provider, "fake-model", history, MethodSummary)
	require.NoError(t, err)
	assert.True(t, res.Compressed)
	assert.Equal(t, 700-50, res.TokensSaved)
	require.Len(t, result, 6)
	assert.Equal(t, model.RoleSystem, result[0].Role)
	assert.Contains(t, result[0].Content, "summary text")
	assert.Equal(t, "recent message", result[1].Content)

	require.NotNil(t, provider.lastReq)
	assert.Contains(t, provider.lastReq.System, "Summarize")
}

func TestCompress_TruncationDropsPrefixWithoutCallingProvider(t *testing.T) {
	history := make([]model.Message, 0, 12)
	for i := 0; i < 7; i++ {
		history = append(history, model.Message{Role: model.RoleUser, Content: "old message", Stats: &model.MessageStats{Tokens: 100}})
	}
	for i := 0; i < 5; i++ {
		history = append(history, model.Message{Role: model.RoleAssistant, Content: "recent message"})
	}

	provider := &fakeProvider{}
	result, res, err := Compress(context.Background(), provider, "fake-model", history, MethodTruncate)
	require.NoError(t, err)
	assert.True(t, res.Compressed)
	require.Len(t, result, 6)
	assert.Equal(t, model.RoleSystem, result[0].Role)
	assert.Contains(t, result[0].Content, "[truncated]")
	assert.Equal(t, "recent message", result[1].Content)
	assert.Nil(t, provider.lastReq, "truncation should not call the provider")
}

func TestCompress_SkipsToolMessages(t *testing.T) {
	history := make([]model.Message, 0, 12)
	history = append(history, model.Message{Role: model.RoleTool, Content: "tool output that should be skipped entirely"})
	for i := 0; i < 6; i++ {
		history = append(history, model.Message{Role: model.RoleUser, Content: "filler"})
	}
	for i := 0; i < 5; i++ {
		history = append(history, model.Message{Role: model.RoleAssistant, Content: "recent"})
	}

	provider := &fakeProvider{response: &llm.CompletionResponse{Content: "s", Usage: llm.TokenUsage{TotalTokens: 1}}}
	_, res, err := Compress(context.Background(), provider, "fake-model", history, MethodSummary)
	require.NoError(t, err)
	assert.True(t, res.Compressed)
	assert.NotContains(t, provider.lastReq.Messages[0].Content, "tool output")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 3, EstimateTokens("hello world"))
}
