package astx

import (
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/cascadehq/cascade/internal/model"
)

// tsExtractor owns one tree-sitter parser per grammar the extractor
// supports. Each parser is not safe for concurrent Parse calls, so a
// mutex guards it; this mirrors a pool-free parser-per-language
// layout, adequate for a single-session local agent.
type tsExtractor struct {
	mu         sync.Mutex
	jsParser   *tree_sitter.Parser
	tsxParser  *tree_sitter.Parser
	tsParser   *tree_sitter.Parser
	jsLanguage *tree_sitter.Language
	tsLanguage *tree_sitter.Language
	tsxLang    *tree_sitter.Language
}

func newTSExtractor() *tsExtractor {
	jsLang := tree_sitter.NewLanguage(ts_javascript.Language())
	tsLang := tree_sitter.NewLanguage(ts_typescript.LanguageTypescript())
	tsxLang := tree_sitter.NewLanguage(ts_typescript.LanguageTSX())

	jsParser := tree_sitter.NewParser()
	jsParser.SetLanguage(jsLang)

	tsParser := tree_sitter.NewParser()
	tsParser.SetLanguage(tsLang)

	tsxParser := tree_sitter.NewParser()
	tsxParser.SetLanguage(tsxLang)

	return &tsExtractor{
		jsParser:   jsParser,
		tsxParser:  tsxParser,
		tsParser:   tsParser,
		jsLanguage: jsLang,
		tsLanguage: tsLang,
		tsxLang:    tsxLang,
	}
}

func (e *tsExtractor) Close() {
	e.jsParser.Close()
	e.tsxParser.Close()
	e.tsParser.Close()
}

func (e *tsExtractor) parserFor(lang Language) *tree_sitter.Parser {
	switch lang {
	case LangTypeScript:
		return e.tsParser
	case LangTSX:
		return e.tsxParser
	default:
		return e.jsParser
	}
}

// extract parses content with the grammar matching lang and walks the
// resulting tree into ast. Any panic from the native bindings (a
// library exception per the extractor's edge policy) is converted into
// a fully-empty AST carrying the exception message.
func (e *tsExtractor) extract(lang Language, path string, content []byte, ast *model.FileAST) {
	defer func() {
		if r := recover(); r != nil {
			*ast = model.FileAST{Path: path, Language: string(lang), ParseError: true, ParseMsg: fmt.Sprintf("parser exception: %v", r)}
		}
	}()

	e.mu.Lock()
	parser := e.parserFor(lang)
	tree := parser.Parse(content, nil)
	e.mu.Unlock()
	if tree == nil {
		ast.ParseError = true
		ast.ParseMsg = "parser returned no tree"
		return
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &walker{src: content, ast: ast}
	w.walkTop(root)

	if root.HasError() {
		ast.ParseError = true
		if ast.ParseMsg == "" {
			ast.ParseMsg = "syntax error"
		}
	}
}

type walker struct {
	src []byte
	ast *model.FileAST
}

func (w *walker) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(w.src) || start > end {
		return ""
	}
	return string(w.src[start:end])
}

func (w *walker) line(n *tree_sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPosition().Row) + 1
}

func (w *walker) endLine(n *tree_sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.EndPosition().Row) + 1
}

// walkTop iterates only top-level children, per the extractor's
// "traversal extracts only top-level declarations" contract.
func (w *walker) walkTop(root *tree_sitter.Node) {
	count := root.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := root.NamedChild(i)
		w.topLevelNode(child, false)
	}
}

// topLevelNode dispatches one top-level statement. isDefaultExport and
// the export wrapper are unwrapped here so the inner declaration is
// always what reaches the per-kind handlers.
func (w *walker) topLevelNode(n *tree_sitter.Node, _ bool) {
	switch n.Kind() {
	case "import_statement":
		w.handleImport(n)
	case "export_statement":
		w.handleExport(n)
	case "function_declaration", "generator_function_declaration":
		fn := w.functionRecord(n, false)
		w.ast.Functions = append(w.ast.Functions, fn)
	case "class_declaration", "abstract_class_declaration":
		w.ast.Classes = append(w.ast.Classes, w.classRecord(n, false))
	case "interface_declaration":
		w.ast.Interfaces = append(w.ast.Interfaces, w.interfaceRecord(n, false))
	case "type_alias_declaration":
		w.ast.TypeAliases = append(w.ast.TypeAliases, w.typeAliasRecord(n, false))
	case "lexical_declaration", "variable_declaration":
		w.handleVariableDeclaration(n, false, false)
	}
}

func (w *walker) handleImport(n *tree_sitter.Node) {
	line := w.line(n)
	source := n.ChildByFieldName("source")
	module := strings.Trim(w.text(source), "\"'`")
	class := classifyModule(module)

	clause := findChildKind(n, "import_clause")
	if clause == nil {
		return
	}

	for i := uint(0); i < clause.NamedChildCount(); i++ {
		part := clause.NamedChild(i)
		switch part.Kind() {
		case "identifier":
			w.ast.Imports = append(w.ast.Imports, model.Import{
				Name: w.text(part), Module: module, Line: line, Class: class, IsDefault: true,
			})
		case "namespace_import":
			name := w.text(part.NamedChild(0))
			w.ast.Imports = append(w.ast.Imports, model.Import{
				Name: name, Module: module, Line: line, Class: class, IsDefault: false,
			})
		case "named_imports":
			for j := uint(0); j < part.NamedChildCount(); j++ {
				spec := part.NamedChild(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				aliasNode := spec.ChildByFieldName("alias")
				name := w.text(nameNode)
				if aliasNode != nil {
					name = w.text(aliasNode)
				}
				w.ast.Imports = append(w.ast.Imports, model.Import{
					Name: name, Module: module, Line: line, Class: class, IsDefault: false,
				})
			}
		}
	}
}

func classifyModule(module string) model.ImportClass {
	switch {
	case strings.HasPrefix(module, ".") || strings.HasPrefix(module, "/"):
		return model.ImportInternal
	case module == "":
		return model.ImportInternal
	default:
		return model.ImportExternal
	}
}

// handleExport covers declarations attached to an export (function,
// class, interface, type alias, variable) and bare re-export clauses,
// per the extractor's export edge policy.
func (w *walker) handleExport(n *tree_sitter.Node) {
	isDefault := false
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == "default" {
			isDefault = true
		}
	}

	decl := n.ChildByFieldName("declaration")
	if decl == nil {
		// bare re-export / export clause with no attached declaration:
		// emit each exported name as a variable export.
		exportClause := findChildKind(n, "export_clause")
		if exportClause != nil {
			for i := uint(0); i < exportClause.NamedChildCount(); i++ {
				spec := exportClause.NamedChild(i)
				if spec.Kind() != "export_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				w.ast.Exports = append(w.ast.Exports, model.Export{
					Name: w.text(nameNode), Line: w.line(n), IsDefault: false, Kind: model.ExportVariable,
				})
			}
			return
		}
		// `export default <expr>`: value may not be a declaration node.
		if isDefault {
			value := n.NamedChild(n.NamedChildCount() - 1)
			w.ast.Exports = append(w.ast.Exports, model.Export{
				Name: "default", Line: w.line(n), IsDefault: true, Kind: model.ExportVariable,
			})
			_ = value
		}
		return
	}

	switch decl.Kind() {
	case "function_declaration", "generator_function_declaration":
		fn := w.functionRecord(decl, true)
		w.ast.Functions = append(w.ast.Functions, fn)
		w.ast.Exports = append(w.ast.Exports, model.Export{
			Name: fn.Name, Line: fn.StartLine, IsDefault: isDefault, Kind: model.ExportFunction,
		})
	case "class_declaration", "abstract_class_declaration":
		cls := w.classRecord(decl, true)
		w.ast.Classes = append(w.ast.Classes, cls)
		w.ast.Exports = append(w.ast.Exports, model.Export{
			Name: cls.Name, Line: cls.StartLine, IsDefault: isDefault, Kind: model.ExportClass,
		})
	case "interface_declaration":
		iface := w.interfaceRecord(decl, true)
		w.ast.Interfaces = append(w.ast.Interfaces, iface)
		w.ast.Exports = append(w.ast.Exports, model.Export{
			Name: iface.Name, Line: iface.StartLine, IsDefault: isDefault, Kind: model.ExportInterface,
		})
	case "type_alias_declaration":
		alias := w.typeAliasRecord(decl, true)
		w.ast.TypeAliases = append(w.ast.TypeAliases, alias)
		w.ast.Exports = append(w.ast.Exports, model.Export{
			Name: alias.Name, Line: alias.Line, IsDefault: isDefault, Kind: model.ExportType,
		})
	case "lexical_declaration", "variable_declaration":
		w.handleVariableDeclaration(decl, true, isDefault)
	}
}

// handleVariableDeclaration emits function-shaped bindings (identifier
// bound to an arrow or function expression) as functions, everything
// else as variable exports when exported is true.
func (w *walker) handleVariableDeclaration(n *tree_sitter.Node, exported, isDefault bool) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		decl := n.NamedChild(i)
		if decl.Kind() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		valueNode := decl.ChildByFieldName("value")
		name := w.text(nameNode)

		if valueNode != nil && (valueNode.Kind() == "arrow_function" || valueNode.Kind() == "function_expression" || valueNode.Kind() == "generator_function") {
			fn := model.FunctionRecord{
				Name:      name,
				StartLine: w.line(n),
				EndLine:   w.endLine(n),
				Params:    w.paramList(valueNode.ChildByFieldName("parameters")),
				Async:     hasLeadingKeyword(valueNode, "async"),
				Exported:  exported,
			}
			w.ast.Functions = append(w.ast.Functions, fn)
			if exported {
				w.ast.Exports = append(w.ast.Exports, model.Export{
					Name: name, Line: fn.StartLine, IsDefault: isDefault, Kind: model.ExportFunction,
				})
			}
			continue
		}

		if exported {
			w.ast.Exports = append(w.ast.Exports, model.Export{
				Name: name, Line: w.line(n), IsDefault: isDefault, Kind: model.ExportVariable,
			})
		}
	}
}

func (w *walker) functionRecord(n *tree_sitter.Node, exported bool) model.FunctionRecord {
	nameNode := n.ChildByFieldName("name")
	return model.FunctionRecord{
		Name:       w.text(nameNode),
		StartLine:  w.line(n),
		EndLine:    w.endLine(n),
		Params:     w.paramList(n.ChildByFieldName("parameters")),
		Async:      hasLeadingKeyword(n, "async"),
		Exported:   exported,
		ReturnType: w.text(n.ChildByFieldName("return_type")),
	}
}

func (w *walker) paramList(params *tree_sitter.Node) []model.Param {
	if params == nil {
		return nil
	}
	var out []model.Param
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		switch p.Kind() {
		case "required_parameter", "optional_parameter":
			patternNode := p.ChildByFieldName("pattern")
			typeAnn := p.ChildByFieldName("type")
			out = append(out, model.Param{Name: w.text(patternNode), Type: strings.TrimPrefix(w.text(typeAnn), ":")})
		case "identifier":
			out = append(out, model.Param{Name: w.text(p)})
		default:
			out = append(out, model.Param{Name: w.text(p)})
		}
	}
	return out
}

func (w *walker) classRecord(n *tree_sitter.Node, exported bool) model.ClassRecord {
	nameNode := n.ChildByFieldName("name")
	cls := model.ClassRecord{
		Name:      w.text(nameNode),
		StartLine: w.line(n),
		EndLine:   w.endLine(n),
		Exported:  exported,
		Abstract:  n.Kind() == "abstract_class_declaration",
	}

	heritage := findChildKind(n, "class_heritage")
	if heritage != nil {
		for i := uint(0); i < heritage.NamedChildCount(); i++ {
			h := heritage.NamedChild(i)
			switch h.Kind() {
			case "extends_clause":
				if v := h.NamedChild(0); v != nil {
					cls.Extends = w.text(v)
				}
			case "implements_clause", "extends_type_clause":
				for j := uint(0); j < h.NamedChildCount(); j++ {
					cls.Implements = append(cls.Implements, w.text(h.NamedChild(j)))
				}
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		switch member.Kind() {
		case "method_definition", "method_signature":
			mNameNode := member.ChildByFieldName("name")
			cls.Methods = append(cls.Methods, model.MethodRecord{
				Name:       w.text(mNameNode),
				StartLine:  w.line(member),
				EndLine:    w.endLine(member),
				Params:     w.paramList(member.ChildByFieldName("parameters")),
				Visibility: visibilityOf(w, member),
				Static:     hasLeadingKeyword(member, "static"),
				Async:      hasLeadingKeyword(member, "async"),
			})
		case "public_field_definition", "field_definition", "property_declaration":
			pNameNode := member.ChildByFieldName("name")
			cls.Properties = append(cls.Properties, model.PropertyRecord{
				Name:       w.text(pNameNode),
				Line:       w.line(member),
				Visibility: visibilityOf(w, member),
				Static:     hasLeadingKeyword(member, "static"),
			})
		}
	}
	return cls
}

func visibilityOf(w *walker, n *tree_sitter.Node) model.Visibility {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.Kind() != "accessibility_modifier" {
			continue
		}
		switch w.text(c) {
		case "private":
			return model.VisPrivate
		case "protected":
			return model.VisProtected
		}
	}
	return model.VisPublic
}

func (w *walker) interfaceRecord(n *tree_sitter.Node, exported bool) model.InterfaceRecord {
	nameNode := n.ChildByFieldName("name")
	rec := model.InterfaceRecord{
		Name:      w.text(nameNode),
		StartLine: w.line(n),
		EndLine:   w.endLine(n),
		Exported:  exported,
	}
	extends := findChildKind(n, "extends_type_clause")
	if extends != nil {
		for i := uint(0); i < extends.NamedChildCount(); i++ {
			rec.Extends = append(rec.Extends, w.text(extends.NamedChild(i)))
		}
	}
	return rec
}

func (w *walker) typeAliasRecord(n *tree_sitter.Node, exported bool) model.TypeAliasRecord {
	nameNode := n.ChildByFieldName("name")
	valueNode := n.ChildByFieldName("value")
	return model.TypeAliasRecord{
		Name:     w.text(nameNode),
		Line:     w.line(n),
		Exported: exported,
		Aliased:  w.text(valueNode),
	}
}

func findChildKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func hasLeadingKeyword(n *tree_sitter.Node, keyword string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.Kind() == keyword {
			return true
		}
	}
	return false
}
