package wire

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
)

// Serialize re-renders calls in the wire format Parse consumes, for
// tests that check the parse -> serialize -> parse round trip.
func Serialize(calls []model.ToolCall) string {
	var b strings.Builder
	for _, c := range calls {
		fmt.Fprintf(&b, `<tool_call name="%s">`, c.Name)
		b.WriteString("\n")
		for name, val := range c.Params {
			fmt.Fprintf(&b, `<param name="%s">%s</param>`, name, serializeValue(val))
			b.WriteString("\n")
		}
		b.WriteString(toolClose)
		b.WriteString("\n")
	}
	return b.String()
}

func serializeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case Undefined:
		return "undefined"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%g", val)
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
