// Package project is the indexer: it walks a workspace, extracts ASTs,
// derives metas, and maintains the symbol/deps substrate every tool
// queries, persisting each artifact through the storage port.
package project

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cascadehq/cascade/internal/astx"
	"github.com/cascadehq/cascade/internal/meta"
	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/pathguard"
	"github.com/cascadehq/cascade/internal/storage"
	"github.com/cascadehq/cascade/internal/workspace"
)

// DefaultIgnore is the minimum ignore set spec.md §4.4 requires for
// get_structure and the indexer walk alike.
var DefaultIgnore = []string{
	"node_modules", "dist", "build", ".git", ".idea", ".vscode",
	"__pycache__", "coverage",
}

// MaxFileSize bounds what the walker will read into memory.
const MaxFileSize = 2 * 1024 * 1024

// Project ties the path guard, AST extractor, meta analyzer, and
// workspace indexes to one project root, caching the current snapshot/
// AST/meta for every indexed file and mirroring it into storage.
type Project struct {
	mu sync.RWMutex

	Name  string
	Root  string
	Guard *pathguard.Guard

	store     storage.Store
	extractor *astx.Extractor
	analyzer  *meta.Analyzer

	Symbols *workspace.SymbolIndex
	Deps    *workspace.DepsGraph

	ignore    []string
	snapshots map[string]model.FileSnapshot
	asts      map[string]*model.FileAST
	metas     map[string]model.FileMeta
}

// New constructs a Project rooted at root. Call IndexAll to populate
// it before serving tool calls.
func New(name, root string, store storage.Store, extraIgnore []string) *Project {
	ignore := append(append([]string(nil), DefaultIgnore...), extraIgnore...)
	return &Project{
		Name:      name,
		Root:      root,
		Guard:     pathguard.New(root),
		store:     store,
		extractor: astx.NewExtractor(),
		analyzer:  meta.NewAnalyzer(),
		Symbols:   workspace.NewSymbolIndex(),
		Deps:      workspace.NewDepsGraph(),
		ignore:    ignore,
		snapshots: make(map[string]model.FileSnapshot),
		asts:      make(map[string]*model.FileAST),
		metas:     make(map[string]model.FileMeta),
	}
}

// Close releases native extractor resources.
func (p *Project) Close() {
	p.extractor.Close()
}

// IndexAll walks the project root, builds a snapshot+AST for every
// eligible file, then runs one batch meta analysis so dependents are
// computed from a single consistent view (spec.md §5's "result mapping
// is assembled sequentially before meta analysis begins").
func (p *Project) IndexAll(ctx context.Context) error {
	type parsed struct {
		path    string
		content string
		lines   []string
		ast     *model.FileAST
	}
	var files []parsed

	err := filepath.WalkDir(p.Root, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(p.Root, abs)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if p.isIgnored(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if p.isIgnored(rel) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > MaxFileSize {
			return nil
		}
		raw, readErr := os.ReadFile(abs)
		if readErr != nil {
			return nil
		}
		if isBinary(raw) {
			return nil
		}
		content := string(raw)
		ast := p.extractor.Extract(rel, raw)
		files = append(files, parsed{path: rel, content: content, lines: splitLines(content), ast: ast})
		return nil
	})
	if err != nil {
		return err
	}

	all := make(map[string]meta.FileInput, len(files))
	for _, f := range files {
		all[f.path] = meta.FileInput{Path: f.path, AST: f.ast, Content: f.content}
	}
	metas := p.analyzer.AnalyzeBatch(all, all)

	p.mu.Lock()
	p.snapshots = make(map[string]model.FileSnapshot, len(files))
	p.asts = make(map[string]*model.FileAST, len(files))
	p.metas = metas
	for _, f := range files {
		p.snapshots[f.path] = model.FileSnapshot{
			Path:    f.path,
			Lines:   f.lines,
			Hash:    hashLines(f.lines),
			Size:    int64(len(f.content)),
			ModTime: time.Now(),
		}
		p.asts[f.path] = f.ast
		p.Symbols.Put(f.path, workspace.SymbolsFromAST(f.ast))
		p.Deps.SetDependencies(f.path, metas[f.path].Dependencies)
	}
	p.mu.Unlock()

	return p.persistAll(ctx)
}

// IndexFile (re)indexes a single file after an external edit and
// recomputes metas for the whole project so dependents stay accurate.
func (p *Project) IndexFile(ctx context.Context, rel string) error {
	abs := filepath.Join(p.Root, filepath.FromSlash(rel))
	raw, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return p.RemoveFile(ctx, rel)
		}
		return err
	}
	content := string(raw)
	ast := p.extractor.Extract(rel, raw)

	p.mu.Lock()
	p.asts[rel] = ast
	p.snapshots[rel] = model.FileSnapshot{
		Path:    rel,
		Lines:   splitLines(content),
		Hash:    hashLines(splitLines(content)),
		Size:    int64(len(content)),
		ModTime: time.Now(),
	}
	all := p.allInputsLocked()
	all[rel] = meta.FileInput{Path: rel, AST: ast, Content: content}
	metas := p.analyzer.AnalyzeBatch(all, all)
	p.metas = metas
	p.Symbols.Put(rel, workspace.SymbolsFromAST(ast))
	p.Deps.SetDependencies(rel, metas[rel].Dependencies)
	p.mu.Unlock()

	return p.persistFile(ctx, rel)
}

// RemoveFile drops a path's snapshot/AST/meta/index entries.
func (p *Project) RemoveFile(ctx context.Context, rel string) error {
	p.mu.Lock()
	delete(p.snapshots, rel)
	delete(p.asts, rel)
	delete(p.metas, rel)
	p.Symbols.Remove(rel)
	p.Deps.Remove(rel)
	p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	_ = p.store.Delete(ctx, storage.NSFiles, rel)
	_ = p.store.Delete(ctx, storage.NSASTs, rel)
	return p.store.Delete(ctx, storage.NSMetas, rel)
}

// PutSnapshot installs a new snapshot for rel (used by edit tools
// after a confirmed write) and reindexes it.
func (p *Project) PutSnapshot(ctx context.Context, rel string, lines []string) error {
	content := strings.Join(lines, "\n")
	ast := p.extractor.Extract(rel, []byte(content))

	p.mu.Lock()
	p.asts[rel] = ast
	p.snapshots[rel] = model.FileSnapshot{
		Path:    rel,
		Lines:   append([]string(nil), lines...),
		Hash:    hashLines(lines),
		Size:    int64(len(strings.Join(lines, "\n"))),
		ModTime: time.Now(),
	}
	all := p.allInputsLocked()
	metas := p.analyzer.AnalyzeBatch(all, all)
	p.metas = metas
	p.Symbols.Put(rel, workspace.SymbolsFromAST(ast))
	p.Deps.SetDependencies(rel, metas[rel].Dependencies)
	p.mu.Unlock()

	return p.persistFile(ctx, rel)
}

func (p *Project) allInputsLocked() map[string]meta.FileInput {
	out := make(map[string]meta.FileInput, len(p.asts))
	for path, ast := range p.asts {
		snap := p.snapshots[path]
		out[path] = meta.FileInput{Path: path, AST: ast, Content: strings.Join(snap.Lines, "\n")}
	}
	return out
}

// Snapshot returns the cached snapshot for rel.
func (p *Project) Snapshot(rel string) (model.FileSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.snapshots[rel]
	return s, ok
}

// AST returns the cached AST for rel.
func (p *Project) AST(rel string) (*model.FileAST, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.asts[rel]
	return a, ok
}

// Meta returns the cached meta for rel.
func (p *Project) Meta(rel string) (model.FileMeta, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.metas[rel]
	return m, ok
}

// AllMetas returns a snapshot of every indexed file's meta.
func (p *Project) AllMetas() map[string]model.FileMeta {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]model.FileMeta, len(p.metas))
	for k, v := range p.metas {
		out[k] = v
	}
	return out
}

// Paths returns every indexed path, sorted.
func (p *Project) Paths() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.snapshots))
	for k := range p.snapshots {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (p *Project) isIgnored(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		for _, ig := range p.ignore {
			if seg == ig {
				return true
			}
		}
	}
	return false
}

func (p *Project) persistAll(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	p.mu.RLock()
	paths := make([]string, 0, len(p.snapshots))
	for path := range p.snapshots {
		paths = append(paths, path)
	}
	p.mu.RUnlock()
	for _, path := range paths {
		if err := p.persistFile(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) persistFile(ctx context.Context, rel string) error {
	if p.store == nil {
		return nil
	}
	p.mu.RLock()
	snap, hasSnap := p.snapshots[rel]
	ast, hasAST := p.asts[rel]
	m, hasMeta := p.metas[rel]
	p.mu.RUnlock()

	if hasSnap {
		if b, err := json.Marshal(snap); err == nil {
			if err := p.store.Set(ctx, storage.NSFiles, rel, b); err != nil {
				return err
			}
		}
	}
	if hasAST {
		if b, err := json.Marshal(ast); err == nil {
			if err := p.store.Set(ctx, storage.NSASTs, rel, b); err != nil {
				return err
			}
		}
	}
	if hasMeta {
		if b, err := json.Marshal(m); err == nil {
			if err := p.store.Set(ctx, storage.NSMetas, rel, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func splitLines(content string) []string {
	if content == "" {
		return []string{}
	}
	trimmed := strings.HasSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	if trimmed {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func hashLines(lines []string) string {
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func isBinary(content []byte) bool {
	n := len(content)
	if n > 8000 {
		n = 8000
	}
	for i := 0; i < n; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
