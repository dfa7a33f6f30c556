package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cascadehq/cascade/internal/model"
)

// Registry holds every tool definition by name and is read-only after
// construction (spec.md §5: "The tool registry is read-only after
// construction").
type Registry struct {
	byName map[string]Tool
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are a programming error, per
// spec.md §4.4.
func (r *Registry) Register(t Tool) {
	if _, exists := r.byName[t.Name()]; exists {
		panic(fmt.Sprintf("tools: duplicate registration for %q", t.Name()))
	}
	r.byName[t.Name()] = t
}

// Get returns the tool named name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// All returns every registered tool, sorted by name.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ByCategory returns every tool in the given category, sorted by name.
func (r *Registry) ByCategory(cat Category) []Tool {
	var out []Tool
	for _, t := range r.byName {
		if t.Category() == cat {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// SchemaEntry is one tool's exported schema.
type SchemaEntry struct {
	Name                 string
	Description          string
	Category             Category
	RequiresConfirmation bool
	Params               []ParamSpec
}

// Schemas exports every tool's schema, sorted by name.
func (r *Registry) Schemas() []SchemaEntry {
	all := r.All()
	out := make([]SchemaEntry, 0, len(all))
	for _, t := range all {
		out = append(out, SchemaEntry{
			Name:                 t.Name(),
			Description:          t.Description(),
			Category:             t.Category(),
			RequiresConfirmation: t.RequiresConfirmation(),
			Params:               t.Params(),
		})
	}
	return out
}

// Dispatch validates and executes call against the registered tool,
// converting a missing tool, a validation failure, or any panic during
// execution into an error ToolResult per spec.md §7's propagation
// policy ("inside a tool, any exception is caught and converted to an
// error ToolResult").
func (r *Registry) Dispatch(ctx context.Context, tc *Context, call model.ToolCall) (result model.ToolResult) {
	start := time.Now()
	defer func() {
		result.CallID = call.ID
		result.Time = time.Since(start)
		if rec := recover(); rec != nil {
			result = model.ToolResult{
				CallID: call.ID,
				Success: false,
				Error:  fmt.Sprintf("tool panicked: %v", rec),
				Time:   time.Since(start),
			}
		}
	}()

	t, found := r.Get(call.Name)
	if !found {
		return errResult(fmt.Sprintf("unknown tool %q", call.Name))
	}
	if err := t.ValidateParams(call.Params); err != nil {
		return errResult(err.Error())
	}
	return t.Execute(ctx, tc, call.Params)
}
