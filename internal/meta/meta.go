// Package meta derives per-file complexity, dependency, and
// classification data from a file's AST and the set of all ASTs in the
// project.
package meta

import (
	"math"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
)

// FileInput is one file's raw material for analysis.
type FileInput struct {
	Path    string
	AST     *model.FileAST
	Content string
}

// Analyzer computes FileMeta values. It is stateless; every method
// call is independent and pure given its inputs.
type Analyzer struct{}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze computes the meta for one file given the full project AST
// set, so dependents are computed from a consistent snapshot.
func (a *Analyzer) Analyze(target FileInput, all map[string]FileInput) model.FileMeta {
	return a.AnalyzeBatch(map[string]FileInput{target.Path: target}, all)[target.Path]
}

// AnalyzeBatch computes metas for every file in targets, using all for
// dependency/dependent resolution so results are consistent across the
// batch (spec §4.3 batch API requirement).
func (a *Analyzer) AnalyzeBatch(targets map[string]FileInput, all map[string]FileInput) map[string]model.FileMeta {
	normalizedDeps := make(map[string][]string, len(all))
	for p, f := range all {
		normalizedDeps[p] = resolveDependencies(p, f.AST)
	}

	dependentsOf := computeDependents(normalizedDeps)

	out := make(map[string]model.FileMeta, len(targets))
	for p, f := range targets {
		deps := resolveDependencies(p, f.AST)
		deps = dedupSorted(deps)

		dependents := dedupSorted(dependentsOf[normalizeKey(p)])

		out[p] = model.FileMeta{
			Path:         p,
			Complexity:   computeComplexity(f.Content, f.AST),
			Dependencies: deps,
			Dependents:   dependents,
			IsHub:        len(dependents) > 5,
			IsEntryPoint: isEntryPoint(p, len(dependents)),
			FileType:     classifyFileType(p),
		}
	}
	return out
}

var (
	lineCommentRe  = regexp.MustCompile(`^\s*//`)
	blockCommentRe = regexp.MustCompile(`^\s*/\*.*\*/\s*$`)
	blockStartRe   = regexp.MustCompile(`^\s*/\*`)
	blockEndRe     = regexp.MustCompile(`\*/\s*$`)
)

func computeComplexity(content string, ast *model.FileAST) model.Complexity {
	loc := countLOC(content)

	maxNesting := 0
	funcSpanSum := 0.0
	for _, fn := range ast.Functions {
		nesting := nestingBucket(fn.EndLine - fn.StartLine + 1)
		if nesting > maxNesting {
			maxNesting = nesting
		}
		funcSpanSum += math.Ceil(float64(fn.EndLine-fn.StartLine+1) / 8.0)
	}

	methodSpanSum := 0.0
	for _, cls := range ast.Classes {
		classMax := 0
		for _, m := range cls.Methods {
			span := m.EndLine - m.StartLine + 1
			n := nestingBucket(span)
			if n > classMax {
				classMax = n
			}
			methodSpanSum += math.Ceil(float64(span) / 10.0)
		}
		classMax++ // classes add +1 to the maximum method nesting
		if classMax > maxNesting {
			maxNesting = classMax
		}
	}

	cyclomatic := 1 + int(funcSpanSum) + int(methodSpanSum)

	locScore := math.Min(100, float64(loc)/500*100)
	nestScore := math.Min(100, float64(maxNesting)/6*100)
	cycloScore := math.Min(100, float64(cyclomatic)/30*100)
	score := int(math.Round(math.Min(100, 0.3*locScore+0.35*nestScore+0.35*cycloScore)))

	return model.Complexity{
		LOC:        loc,
		MaxNesting: maxNesting,
		Cyclomatic: cyclomatic,
		Score:      score,
	}
}

func nestingBucket(spanLines int) int {
	switch {
	case spanLines <= 5:
		return 1
	case spanLines <= 15:
		return 2
	case spanLines <= 30:
		return 3
	case spanLines <= 50:
		return 4
	default:
		return 5
	}
}

func countLOC(content string) int {
	lines := strings.Split(content, "\n")
	inBlock := false
	loc := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if inBlock {
			if blockEndRe.MatchString(line) {
				inBlock = false
			}
			continue
		}
		if blockCommentRe.MatchString(line) {
			continue
		}
		if blockStartRe.MatchString(line) {
			inBlock = true
			continue
		}
		if lineCommentRe.MatchString(line) {
			continue
		}
		loc++
	}
	return loc
}

var knownSourceExt = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
}

// resolveDependencies resolves every internal import of file's AST
// relative to file's directory, rewriting .js/.jsx to .ts/.tsx and
// appending .ts when no known extension is present, dropping anything
// outside the project.
func resolveDependencies(file string, ast *model.FileAST) []string {
	if ast == nil {
		return nil
	}
	dir := path.Dir(file)
	var deps []string
	for _, imp := range ast.Imports {
		if imp.Class != model.ImportInternal {
			continue
		}
		resolved := resolveModulePath(dir, imp.Module)
		if resolved == "" || escapesProject(resolved) {
			continue
		}
		deps = append(deps, resolved)
	}
	return deps
}

func escapesProject(p string) bool {
	depth := 0
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "..":
			depth--
		case ".", "":
		default:
			depth++
		}
		if depth < 0 {
			return true
		}
	}
	return false
}

func resolveModulePath(dir, module string) string {
	if module == "" {
		return ""
	}
	joined := path.Clean(path.Join(dir, module))
	joined = normalizeExt(joined)
	return joined
}

func normalizeExt(p string) string {
	switch {
	case strings.HasSuffix(p, ".jsx"):
		return strings.TrimSuffix(p, ".jsx") + ".tsx"
	case strings.HasSuffix(p, ".js"):
		return strings.TrimSuffix(p, ".js") + ".ts"
	case knownSourceExt[path.Ext(p)]:
		return p
	default:
		return p + ".ts"
	}
}

// normalizeKey strips the extension and collapses dir/index to dir so
// dependency/dependent comparisons treat the two as equivalent.
func normalizeKey(p string) string {
	ext := path.Ext(p)
	base := strings.TrimSuffix(p, ext)
	base = strings.TrimSuffix(base, "/index")
	if base == "" {
		base = "."
	}
	return base
}

// computeDependents inverts a normalized dependency mapping into a
// normalized-key -> dependent-file mapping.
func computeDependents(deps map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for file, fileDeps := range deps {
		for _, dep := range fileDeps {
			key := normalizeKey(dep)
			out[key] = append(out[key], file)
		}
	}
	return out
}

func dedupSorted(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

var configTokens = []string{
	"config", "tsconfig", "webpack", "babel", "eslint", "prettier",
	"jest", "vite", "rollup", "package.json", ".env",
}

func classifyFileType(p string) model.FileType {
	lower := strings.ToLower(p)
	base := strings.ToLower(path.Base(p))

	switch {
	case strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") ||
		strings.Contains(lower, "/tests/") || strings.Contains(lower, "/__tests__/"):
		return model.FileTest
	case strings.HasSuffix(base, ".d.ts") || strings.Contains(lower, "/types/") || strings.HasPrefix(base, "types."):
		return model.FileTypes
	}

	for _, token := range configTokens {
		if strings.Contains(base, token) {
			return model.FileConfig
		}
	}

	ext := path.Ext(base)
	if knownSourceExt[ext] {
		return model.FileSource
	}
	return model.FileUnknown
}

func isEntryPoint(p string, dependentCount int) bool {
	base := strings.ToLower(path.Base(p))
	for _, prefix := range []string{"index.", "main.", "app.", "cli.", "server."} {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return dependentCount == 0
}
