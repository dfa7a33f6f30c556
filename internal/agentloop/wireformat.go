package agentloop

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/wire"
	"github.com/cascadehq/cascade/pkg/llm"
)

// toLLMMessages flattens session history into the transport's plain
// llm.Message shape, re-serializing assistant tool calls back into
// wire-format tags and tool results into a compact summary so the
// model sees the same shape it originally produced and consumed.
func toLLMMessages(history []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case model.RoleUser:
			out = append(out, llm.UserMessage(m.Content))
		case model.RoleSystem:
			out = append(out, llm.SystemMessage(m.Content))
		case model.RoleAssistant:
			content := m.Content
			for _, call := range m.ToolCalls {
				content += renderToolCallTag(call)
			}
			out = append(out, llm.AssistantMessage(content))
		case model.RoleTool:
			out = append(out, llm.NewMessage("tool", renderToolResults(m.ToolResult)))
		}
	}
	return out
}

func renderToolCallTag(call model.ToolCall) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n<tool_call name=%q>", call.Name)

	keys := make([]string, 0, len(call.Params))
	for k := range call.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&sb, "<param name=%q>%s</param>", k, renderParamValue(call.Params[k]))
	}
	sb.WriteString("</tool_call>")
	return sb.String()
}

func renderParamValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case wire.Undefined:
		return "undefined"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}

func renderToolResults(results []model.ToolResult) string {
	var sb strings.Builder
	for _, r := range results {
		if r.Success {
			data, _ := json.Marshal(r.Data)
			fmt.Fprintf(&sb, "[%s] success: %s\n", r.CallID, string(data))
		} else {
			fmt.Fprintf(&sb, "[%s] error: %s\n", r.CallID, r.Error)
		}
	}
	return sb.String()
}
