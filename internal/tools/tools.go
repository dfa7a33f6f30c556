// Package tools implements the 18-tool catalog spec.md §4.4 defines,
// behind one uniform contract (schema, validate, execute) the agent
// loop drives and the model targets.
package tools

import (
	"context"
	"time"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/project"
	"github.com/cascadehq/cascade/internal/storage"
)

// Category tags a tool for by_category lookups; categories are tags,
// not types (DESIGN.md: "no base-class inheritance is needed").
type Category string

const (
	CategoryRead     Category = "read"
	CategoryEdit     Category = "edit"
	CategorySearch   Category = "search"
	CategoryAnalysis Category = "analysis"
	CategoryGit      Category = "git"
	CategoryRun      Category = "run"
)

// ParamType is the dynamic type of one declared tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
)

// ParamSpec declares one tool parameter for the schema export.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
}

// Confirmer requests human-in-the-loop confirmation for a tool's
// effect, optionally carrying a diff. It returns whether the user
// confirmed and any edited replacement content they supplied.
type Confirmer func(message string, diff *model.DiffInfo) (confirmed bool, editedContent []string)

// ProgressFunc streams an informational progress message.
type ProgressFunc func(message string)

// Context carries everything a tool's Execute needs: the project
// root/guard, the project index, the storage port, and the
// confirmation/progress callbacks spec.md §4.4 describes.
type Context struct {
	Root              string
	Project           *project.Project
	Store             storage.Store
	RequestConfirm    Confirmer
	OnProgress        ProgressFunc
	CommandTimeout    time.Duration
	ExtraAllowlist    []string
	ExtraBlocklist    []string
	IgnorePatterns    []string
	AutoApply         bool
}

func (c *Context) progress(msg string) {
	if c.OnProgress != nil {
		c.OnProgress(msg)
	}
}

// Tool is the uniform capability surface every concrete tool
// implements: a name, description, category, confirmation policy,
// parameter schema, a pure synchronous validator, and an executor.
// Execute reports only Success/Data/Error; the registry fills in
// CallID and Time so individual tools never have to thread a call id
// through their own logic.
type Tool interface {
	Name() string
	Description() string
	Category() Category
	RequiresConfirmation() bool
	Params() []ParamSpec
	ValidateParams(params map[string]any) error
	Execute(ctx context.Context, tc *Context, params map[string]any) model.ToolResult
}

// ok builds a successful partial ToolResult (CallID/Time are filled
// in by the registry dispatcher).
func ok(data any) model.ToolResult {
	return model.ToolResult{Success: true, Data: data}
}

// errResult builds a partial error ToolResult.
func errResult(msg string) model.ToolResult {
	return model.ToolResult{Success: false, Error: msg}
}
