// Package astx turns raw source text into the structural summary the
// rest of cascade's index is built on. It is polymorphic over a small
// set of source variants; every other language yields an empty,
// error-free AST.
package astx

import (
	"strings"

	"github.com/cascadehq/cascade/internal/model"
)

// Language is one of the variants the extractor understands natively.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJavaScript Language = "javascript"
	LangJSX        Language = "jsx"
	LangJSON       Language = "json"
	LangYAML       Language = "yaml"
	LangOther      Language = "other"
)

// DetectLanguage maps a project-relative path to a Language by
// extension.
func DetectLanguage(path string) Language {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tsx"):
		return LangTSX
	case strings.HasSuffix(lower, ".ts"):
		return LangTypeScript
	case strings.HasSuffix(lower, ".jsx"):
		return LangJSX
	case strings.HasSuffix(lower, ".js"), strings.HasSuffix(lower, ".mjs"), strings.HasSuffix(lower, ".cjs"):
		return LangJavaScript
	case strings.HasSuffix(lower, ".json"):
		return LangJSON
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return LangYAML
	default:
		return LangOther
	}
}

// Extractor parses source text into a model.FileAST. One Extractor is
// safe for concurrent use: the tree-sitter parsers it owns share one
// mutex, so parses are serialized.
type Extractor struct {
	ts *tsExtractor
}

// NewExtractor builds an Extractor with its tree-sitter parsers ready.
func NewExtractor() *Extractor {
	return &Extractor{ts: newTSExtractor()}
}

// Close releases the native tree-sitter parser handles.
func (e *Extractor) Close() {
	e.ts.Close()
}

// Extract builds a FileAST for path given its current content. Never
// returns an error: a parser exception or syntax error is captured as
// ParseError/ParseMsg on the returned AST per the extractor's edge
// policy for parse failures.
func (e *Extractor) Extract(path string, content []byte) *model.FileAST {
	lang := DetectLanguage(path)
	ast := &model.FileAST{Path: path, Language: string(lang)}

	switch lang {
	case LangTypeScript, LangTSX, LangJavaScript, LangJSX:
		e.ts.extract(lang, path, content, ast)
	case LangJSON:
		extractJSON(content, ast)
	case LangYAML:
		extractYAML(content, ast)
	default:
		// parse_error stays false; every other language is out of
		// scope for structural extraction.
	}

	return ast
}
