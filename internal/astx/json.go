package astx

import (
	"encoding/json"

	"github.com/cascadehq/cascade/internal/model"
)

// extractJSON emits each top-level object key as a variable export,
// per the extractor's JSON edge policy. Array/scalar top-level
// documents have no keys to report and yield an empty export list
// without being treated as a parse error.
func extractJSON(content []byte, ast *model.FileAST) {
	var top any
	if err := json.Unmarshal(content, &top); err != nil {
		ast.ParseError = true
		ast.ParseMsg = err.Error()
		return
	}

	obj, ok := top.(map[string]any)
	if !ok {
		return
	}

	for key := range obj {
		ast.Exports = append(ast.Exports, model.Export{
			Name:      key,
			Line:      1,
			IsDefault: false,
			Kind:      model.ExportVariable,
		})
	}
}
