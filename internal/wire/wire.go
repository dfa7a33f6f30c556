// Package wire implements the response parser: it extracts tool
// invocations from raw model output written in the XML-like wire
// format spec.md §4.5/§6 defines, coercing parameter values and
// preserving surrounding prose.
package wire

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
)

const (
	toolOpenPrefix = "<tool_call "
	toolOpenAttr   = `name="`
	toolClose      = "</tool_call>"
	paramOpenAttr  = `name="`
	paramOpen      = "<param "
	paramClose     = "</param>"
)

// ParseResult is the outcome of parsing one model response.
type ParseResult struct {
	Text               string
	Calls              []model.ToolCall
	IncompleteToolCall bool
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Parser extracts ToolCalls from raw model text. It is stateless
// except for a monotonically increasing call-id counter, so one
// Parser should be shared across a session's turns to keep ids
// strictly increasing.
type Parser struct {
	nextID int
}

// NewParser constructs a Parser with its id counter at zero.
func NewParser() *Parser {
	return &Parser{}
}

// Parse scans text for tool_call elements in source order, returning
// the cleaned prose and the ordered list of calls.
func (p *Parser) Parse(text string) ParseResult {
	var calls []model.ToolCall
	var prose strings.Builder
	incomplete := false

	pos := 0
	for {
		openIdx := strings.Index(text[pos:], toolOpenPrefix)
		if openIdx == -1 {
			prose.WriteString(text[pos:])
			break
		}
		openIdx += pos
		prose.WriteString(text[pos:openIdx])

		tagEnd := strings.Index(text[openIdx:], ">")
		if tagEnd == -1 {
			incomplete = true
			break
		}
		tagEnd += openIdx
		openTag := text[openIdx : tagEnd+1]
		name := extractAttr(openTag, "name")

		closeIdx := strings.Index(text[tagEnd+1:], toolClose)
		if closeIdx == -1 {
			incomplete = true
			break
		}
		closeIdx += tagEnd + 1
		body := text[tagEnd+1 : closeIdx]

		call := model.ToolCall{
			ID:     p.nextCallID(),
			Name:   name,
			Params: parseParams(body),
		}
		calls = append(calls, call)

		pos = closeIdx + len(toolClose)
	}

	return ParseResult{
		Text:               collapseBlankRuns(strings.TrimSpace(prose.String())),
		Calls:              calls,
		IncompleteToolCall: incomplete,
	}
}

func (p *Parser) nextCallID() string {
	p.nextID++
	return "call_" + strconv.Itoa(p.nextID)
}

func collapseBlankRuns(s string) string {
	return blankRunRe.ReplaceAllString(s, "\n\n")
}

func parseParams(body string) map[string]any {
	params := make(map[string]any)
	pos := 0
	for {
		openIdx := strings.Index(body[pos:], paramOpen)
		if openIdx == -1 {
			break
		}
		openIdx += pos
		tagEnd := strings.Index(body[openIdx:], ">")
		if tagEnd == -1 {
			break
		}
		tagEnd += openIdx
		openTag := body[openIdx : tagEnd+1]
		name := extractAttr(openTag, "name")

		closeIdx := strings.Index(body[tagEnd+1:], paramClose)
		if closeIdx == -1 {
			break
		}
		closeIdx += tagEnd + 1
		raw := strings.TrimSpace(body[tagEnd+1 : closeIdx])

		if name != "" {
			params[name] = coerce(raw)
		}
		pos = closeIdx + len(paramClose)
	}
	return params
}

var numberRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// coerce applies the value-coercion order spec.md §4.5 defines:
// bool -> null -> undefined -> number -> JSON -> string.
func coerce(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "undefined":
		return undefinedValue
	}

	if numberRe.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}

	if strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "{") {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
		return raw
	}

	return raw
}

// Undefined is the sentinel value for a parameter coerced from the
// literal string "undefined": distinct from nil/null so a validated
// decode can tell "absent" apart from "explicitly null".
type Undefined struct{}

var undefinedValue = Undefined{}

func extractAttr(tag, attr string) string {
	needle := attr + `="`
	idx := strings.Index(tag, needle)
	if idx == -1 {
		return ""
	}
	start := idx + len(needle)
	end := strings.Index(tag[start:], `"`)
	if end == -1 {
		return ""
	}
	return tag[start : start+end]
}
