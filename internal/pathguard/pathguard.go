// Package pathguard validates workspace paths against a project root,
// rejecting traversal and absolute escapes before any other subsystem
// touches the filesystem.
package pathguard

import (
	"os"
	"path/filepath"
	"strings"
)

// Guard is constructed once from an absolute project root and is pure
// and deterministic: no caching, no mutable state.
type Guard struct {
	root string
}

// New creates a Guard rooted at root, which must already be absolute.
func New(root string) *Guard {
	return &Guard{root: filepath.Clean(root)}
}

// Root returns the project root this guard was constructed with.
func (g *Guard) Root() string {
	return g.root
}

// Options controls how Validate checks a candidate path.
type Options struct {
	AllowNonexistent bool
	RequireDir       bool
	RequireFile      bool
	FollowSymlinks   bool
}

// Status is the outcome kind of a Validate call.
type Status int

const (
	Valid Status = iota
	Invalid
	OutsideProject
)

// Result is the outcome of Validate.
type Result struct {
	Status Status
	Abs    string
	Rel    string
	Reason string
}

// Validate applies the reject rules from spec.md §4.1 in order:
// blank/whitespace, traversal segments, outside-project, then the
// requested existence/kind check.
func (g *Guard) Validate(p string, opts Options) Result {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return Result{Status: Invalid, Reason: "path is empty"}
	}

	if hasTraversal(trimmed) {
		return Result{Status: Invalid, Reason: "path contains a traversal segment"}
	}

	abs := trimmed
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(g.root, abs)
	}
	abs = filepath.Clean(abs)

	rootWithSep := g.root
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	if abs != g.root && !strings.HasPrefix(abs+string(filepath.Separator), rootWithSep) {
		return Result{Status: OutsideProject, Reason: "path escapes the project root"}
	}

	rel, err := filepath.Rel(g.root, abs)
	if err != nil {
		return Result{Status: Invalid, Reason: "cannot relativize path"}
	}
	rel = filepath.ToSlash(rel)

	if opts.AllowNonexistent {
		return Result{Status: Valid, Abs: abs, Rel: rel}
	}

	info, err := statPath(abs, opts.FollowSymlinks)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Status: Invalid, Reason: "path does not exist"}
		}
		return Result{Status: Invalid, Reason: err.Error()}
	}

	if opts.RequireDir && !info.IsDir() {
		return Result{Status: Invalid, Reason: "path is not a directory"}
	}
	if opts.RequireFile && info.IsDir() {
		return Result{Status: Invalid, Reason: "path is not a file"}
	}

	return Result{Status: Valid, Abs: abs, Rel: rel}
}

func statPath(abs string, followSymlinks bool) (os.FileInfo, error) {
	if followSymlinks {
		return os.Stat(abs)
	}
	return os.Lstat(abs)
}

// ValidateSync is the synchronous form used by callers that only need
// traversal/containment checking without touching the filesystem.
func (g *Guard) ValidateSync(p string) Result {
	return g.Validate(p, Options{AllowNonexistent: true})
}

// Resolve validates p and returns (abs, rel, true), or empty strings
// and false when p is not Valid; the failure reason is not returned.
func (g *Guard) Resolve(p string, opts Options) (abs, rel string, ok bool) {
	res := g.Validate(p, opts)
	if res.Status != Valid {
		return "", "", false
	}
	return res.Abs, res.Rel, true
}

// hasTraversal detects ".." segments and leading "~", treating both
// forward and back slashes as separators.
func hasTraversal(p string) bool {
	if strings.HasPrefix(p, "~") {
		return true
	}
	normalized := strings.ReplaceAll(p, "\\", "/")
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
