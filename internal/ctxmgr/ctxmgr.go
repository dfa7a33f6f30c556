// Package ctxmgr tracks the session's token budget and files nominally
// loaded into context, and runs summary- or truncation-based
// compression when usage crosses a threshold.
package ctxmgr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/pkg/llm"
)

// FileEntry is one file nominally held in context.
type FileEntry struct {
	Path    string
	Tokens  int
	AddedAt time.Time
}

// CompressionMethod selects how Manager reduces history size.
type CompressionMethod string

const (
	MethodSummary  CompressionMethod = "summary"
	MethodTruncate CompressionMethod = "truncate"
)

const compressionInstruction = "Summarize the conversation so far concisely, preserving all decisions, file paths, and unresolved tasks."

// Manager implements the context/window manager spec.md §4.6
// describes.
type Manager struct {
	files      map[string]FileEntry
	tokenCount int
	windowSize int
	threshold  float64
	method     CompressionMethod
}

// NewManager constructs a Manager for a window of the given size, with
// the default 0.8 compression threshold and the summary method.
func NewManager(windowSize int) *Manager {
	return &Manager{
		files:      make(map[string]FileEntry),
		windowSize: windowSize,
		threshold:  0.8,
		method:     MethodSummary,
	}
}

// SetThreshold overrides the compression threshold.
func (m *Manager) SetThreshold(t float64) { m.threshold = t }

// SetMethod overrides the compression method.
func (m *Manager) SetMethod(method CompressionMethod) { m.method = method }

// AddFile records path as in-context, replacing any previous entry for
// the same path.
func (m *Manager) AddFile(path string, tokens int) {
	m.files[path] = FileEntry{Path: path, Tokens: tokens, AddedAt: time.Now()}
}

// RemoveFile drops path from context tracking.
func (m *Manager) RemoveFile(path string) {
	delete(m.files, path)
}

// AddTokens adds n to the running token count (may be negative, e.g.
// after compression).
func (m *Manager) AddTokens(n int) {
	m.tokenCount += n
	if m.tokenCount < 0 {
		m.tokenCount = 0
	}
}

// TokenCount returns the current token count.
func (m *Manager) TokenCount() int { return m.tokenCount }

// Usage returns tokens/window, spec.md's usage() operation.
func (m *Manager) Usage() float64 {
	if m.windowSize <= 0 {
		return 0
	}
	return float64(m.tokenCount) / float64(m.windowSize)
}

// NeedsCompression reports usage() > threshold.
func (m *Manager) NeedsCompression() bool {
	return m.Usage() > m.threshold
}

// SyncFromSession pulls token count and file-in-context state from a
// session's persisted ContextState.
func (m *Manager) SyncFromSession(s *model.Session) {
	m.tokenCount = int(s.Context.TokenUsage * float64(m.windowSize))
	m.files = make(map[string]FileEntry, len(s.Context.FilesInContext))
	for _, p := range s.Context.FilesInContext {
		m.files[p] = FileEntry{Path: p}
	}
}

// UpdateSession writes the manager's current state back onto a
// session's ContextState.
func (m *Manager) UpdateSession(s *model.Session) {
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	s.Context.FilesInContext = paths
	s.Context.TokenUsage = m.Usage()
	s.Context.NeedsCompression = m.NeedsCompression()
}

// Method returns the configured compression method.
func (m *Manager) Method() CompressionMethod { return m.method }

// CompressionResult is the outcome of a Compress call.
type CompressionResult struct {
	Compressed  bool
	Reason      string
	TokensSaved int
}

const keepLast = 5
const minHistory = 10

// Compress reduces history by the given method, keeping the last
// keepLast messages verbatim either way. Requires history length >=
// minHistory; returns {Compressed:false} otherwise.
func Compress(ctx context.Context, provider llm.Provider, model_ string, history []model.Message, method CompressionMethod) ([]model.Message, CompressionResult, error) {
	if len(history) < minHistory {
		return history, CompressionResult{Compressed: false, Reason: "not compressed"}, nil
	}

	switch method {
	case MethodTruncate:
		return compressByTruncation(history)
	default:
		return compressBySummary(ctx, provider, model_, history)
	}
}

// compressBySummary formats everything before the last keepLast
// messages as "Role: content-truncated-to-500-chars" (skipping
// tool-role messages), asks the model to summarize it via a
// Conversation, and replaces the compressed prefix with one system
// message tagged as a summary.
func compressBySummary(ctx context.Context, provider llm.Provider, model_ string, history []model.Message) ([]model.Message, CompressionResult, error) {
	splitAt := len(history) - keepLast
	toCompress := history[:splitAt]
	kept := history[splitAt:]

	var formatted strings.Builder
	compressedTokens := 0
	for _, msg := range toCompress {
		if msg.Role == model.RoleTool {
			continue
		}
		content := msg.Content
		if len(content) > 500 {
			content = content[:500]
		}
		fmt.Fprintf(&formatted, "%s: %s\n", msg.Role, content)
		if msg.Stats != nil {
			compressedTokens += msg.Stats.Tokens
		}
	}

	conv := llm.NewConversation().SetSystem(compressionInstruction).AddUser(formatted.String())
	resp, err := provider.Complete(ctx, conv.ToRequest(model_, 0))
	if err != nil {
		return history, CompressionResult{}, err
	}

	summaryTokens := resp.Usage.TotalTokens
	summaryMsg := model.Message{
		Role:      model.RoleSystem,
		Content:   "[summary] " + resp.Content,
		Timestamp: time.Now(),
	}

	newHistory := append([]model.Message{summaryMsg}, kept...)
	tokensSaved := compressedTokens - summaryTokens

	return newHistory, CompressionResult{Compressed: true, TokensSaved: tokensSaved}, nil
}

// compressByTruncation drops everything before the last keepLast
// messages, replacing it with a single note (capped to ~200 tokens)
// instead of asking the model to summarize it -- cheaper and
// synchronous, at the cost of losing detail a summary would keep.
func compressByTruncation(history []model.Message) ([]model.Message, CompressionResult, error) {
	splitAt := len(history) - keepLast
	toCompress := history[:splitAt]
	kept := history[splitAt:]

	var note strings.Builder
	droppedTokens := 0
	for _, msg := range toCompress {
		if msg.Role == model.RoleTool {
			continue
		}
		content := msg.Content
		if len(content) > 200 {
			content = content[:200]
		}
		fmt.Fprintf(&note, "%s: %s\n", msg.Role, content)
		if msg.Stats != nil {
			droppedTokens += msg.Stats.Tokens
		}
	}

	capped := llm.TruncateToTokens(note.String(), 200)
	noteMsg := model.Message{
		Role:      model.RoleSystem,
		Content:   "[truncated] " + capped,
		Timestamp: time.Now(),
	}

	newHistory := append([]model.Message{noteMsg}, kept...)
	tokensSaved := droppedTokens - llm.EstimateTokens(noteMsg.Content)

	return newHistory, CompressionResult{Compressed: true, TokensSaved: tokensSaved}, nil
}

// EstimateTokens is the 4-chars-per-token estimator, the same formula
// as llm.EstimateTokens (which the truncation path above and
// ProviderTransport's CountTokens fallback call).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
