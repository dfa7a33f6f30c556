package llm

import "strings"

// Conversation accumulates a system prompt plus a message history and
// renders it into a CompletionRequest. internal/ctxmgr builds its
// summary-compression prompt through this rather than populating a
// CompletionRequest by hand.
type Conversation struct {
	messages []Message
	system   string
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		messages: make([]Message, 0),
	}
}

// SetSystem sets the system prompt.
func (c *Conversation) SetSystem(system string) *Conversation {
	c.system = system
	return c
}

// AddMessage appends a message.
func (c *Conversation) AddMessage(msg Message) *Conversation {
	c.messages = append(c.messages, msg)
	return c
}

// AddUser appends a user message.
func (c *Conversation) AddUser(content string) *Conversation {
	return c.AddMessage(UserMessage(content))
}

// ToRequest renders the conversation into a CompletionRequest for
// model, capped at maxTokens output tokens (0 leaves it unset).
func (c *Conversation) ToRequest(model string, maxTokens int) *CompletionRequest {
	return &CompletionRequest{
		Model:     model,
		Messages:  c.messages,
		System:    c.system,
		MaxTokens: maxTokens,
	}
}

// EstimateTokens provides a rough token estimate for text.
// This is approximately 4 characters per token for English text.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// TruncateToTokens truncates text to approximately the given token
// limit, preferring to cut at a word boundary near the end.
func TruncateToTokens(text string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	truncated := text[:maxChars]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxChars*3/4 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}
