package astx

import (
	"gopkg.in/yaml.v3"

	"github.com/cascadehq/cascade/internal/model"
)

// extractYAML emits top-level mapping keys as variable exports, or a
// single "(array)" export for a sequence document, per the extractor's
// YAML edge policy.
func extractYAML(content []byte, ast *model.FileAST) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		ast.ParseError = true
		ast.ParseMsg = err.Error()
		return
	}

	if len(doc.Content) == 0 {
		return
	}
	root := doc.Content[0]

	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			keyNode := root.Content[i]
			ast.Exports = append(ast.Exports, model.Export{
				Name:      keyNode.Value,
				Line:      keyNode.Line,
				IsDefault: false,
				Kind:      model.ExportVariable,
			})
		}
	case yaml.SequenceNode:
		ast.Exports = append(ast.Exports, model.Export{
			Name:      "(array)",
			Line:      root.Line,
			IsDefault: false,
			Kind:      model.ExportVariable,
		})
	}
}
