// Package workspace maintains the project-wide symbol index and the
// bidirectional file dependency graph, the substrate every read/
// search/analysis tool queries against.
package workspace

import (
	"sort"
	"sync"

	"github.com/cascadehq/cascade/internal/model"
)

// SymbolIndex maps a symbol name to every definition site recorded for
// it across the project.
type SymbolIndex struct {
	mu    sync.RWMutex
	defs  map[string][]model.SymbolDef
}

// NewSymbolIndex constructs an empty index.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{defs: make(map[string][]model.SymbolDef)}
}

// Put replaces every definition previously recorded for path with defs,
// keyed by symbol name.
func (s *SymbolIndex) Put(path string, entries map[string][]model.SymbolDef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(path)
	for name, defs := range entries {
		s.defs[name] = append(s.defs[name], defs...)
	}
}

// Remove deletes every definition recorded for path.
func (s *SymbolIndex) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(path)
}

func (s *SymbolIndex) removeLocked(path string) {
	for name, defs := range s.defs {
		kept := defs[:0]
		for _, d := range defs {
			if d.Path != path {
				kept = append(kept, d)
			}
		}
		if len(kept) == 0 {
			delete(s.defs, name)
		} else {
			s.defs[name] = kept
		}
	}
}

// Lookup returns every definition recorded for name, sorted by
// (path, line).
func (s *SymbolIndex) Lookup(name string) []model.SymbolDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := append([]model.SymbolDef(nil), s.defs[name]...)
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Path != defs[j].Path {
			return defs[i].Path < defs[j].Path
		}
		return defs[i].Line < defs[j].Line
	})
	return defs
}

// All returns a snapshot of the full symbol -> definitions map.
func (s *SymbolIndex) All() map[string][]model.SymbolDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]model.SymbolDef, len(s.defs))
	for name, defs := range s.defs {
		out[name] = append([]model.SymbolDef(nil), defs...)
	}
	return out
}

// DepsGraph holds the two per-file mappings spec.md §3 names:
// imports[file] -> files and imported_by[file] -> files.
type DepsGraph struct {
	mu         sync.RWMutex
	imports    map[string][]string
	importedBy map[string][]string
}

// NewDepsGraph constructs an empty graph.
func NewDepsGraph() *DepsGraph {
	return &DepsGraph{
		imports:    make(map[string][]string),
		importedBy: make(map[string][]string),
	}
}

// SetDependencies records file's outgoing dependency list and rebuilds
// the inverse (imported_by) mapping from the full current state.
func (g *DepsGraph) SetDependencies(file string, deps []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.imports[file] = append([]string(nil), deps...)
	g.rebuildInverseLocked()
}

// Remove deletes file from both mappings.
func (g *DepsGraph) Remove(file string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.imports, file)
	g.rebuildInverseLocked()
}

func (g *DepsGraph) rebuildInverseLocked() {
	inverse := make(map[string][]string)
	for file, deps := range g.imports {
		for _, dep := range deps {
			inverse[dep] = append(inverse[dep], file)
		}
	}
	for k := range inverse {
		sort.Strings(inverse[k])
	}
	g.importedBy = inverse
}

// Imports returns the dependency list for file.
func (g *DepsGraph) Imports(file string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.imports[file]...)
}

// ImportedBy returns the dependent list for file.
func (g *DepsGraph) ImportedBy(file string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.importedBy[file]...)
}

// Snapshot returns both mappings copied out, matching the persisted
// shape spec.md §6 describes ({imports: [[k,[v]]…], importedBy: …}).
func (g *DepsGraph) Snapshot() (imports, importedBy map[string][]string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	imports = make(map[string][]string, len(g.imports))
	for k, v := range g.imports {
		imports[k] = append([]string(nil), v...)
	}
	importedBy = make(map[string][]string, len(g.importedBy))
	for k, v := range g.importedBy {
		importedBy[k] = append([]string(nil), v...)
	}
	return imports, importedBy
}
