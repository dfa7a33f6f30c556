// Package mcpsurface exposes the same 18-tool registry internal/tools
// builds over the Model Context Protocol, grounded on the teacher's
// index/mcp_server.go: one mcp.Tool per registry entry, generated from
// each tool's Params() schema rather than hand-written per tool, so the
// MCP surface and the agent loop's native tool_call surface can never
// drift out of sync — they dispatch through the identical
// Registry.Dispatch contract.
package mcpsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cascadehq/cascade/internal/logging"
	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/project"
	"github.com/cascadehq/cascade/internal/storage"
	"github.com/cascadehq/cascade/internal/tools"
)

// Server wraps a tools.Registry for MCP clients (editors, external
// agents). Every call runs with AutoApply forced on: there is no
// human on the other end of a stdio pipe to answer a confirmation
// prompt, so edits are applied immediately and still land on the
// session's undo stack via onUndo.
type Server struct {
	registry *tools.Registry
	toolCtx  *tools.Context
	server   *server.MCPServer
	onUndo   func(model.UndoEntry)
}

// New builds a Server over registry, executing tools against proj
// rooted at root. onUndo, if non-nil, receives an UndoEntry for every
// edit tool MCP clients apply, so a concurrently open interactive
// session can still `undo` MCP-driven edits.
func New(root string, proj *project.Project, store storage.Store, registry *tools.Registry, onUndo func(model.UndoEntry)) *Server {
	s := &Server{registry: registry, onUndo: onUndo}

	s.toolCtx = &tools.Context{
		Root:       root,
		Project:    proj,
		Store:      store,
		AutoApply:  true,
		OnProgress: func(msg string) { logging.Get().Debug().Str("component", "mcpsurface").Msg(msg) },
	}
	s.toolCtx.RequestConfirm = s.confirm

	mcpServer := server.NewMCPServer(
		"cascade",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

// confirm backs tools.Context.RequestConfirm for MCP-driven calls:
// there's no interactive human to ask, so it approves unconditionally
// and simply records the resulting undo entry.
func (s *Server) confirm(message string, diff *model.DiffInfo) (bool, []string) {
	if diff != nil && s.onUndo != nil {
		s.onUndo(model.UndoEntry{
			ID:          uuid.NewString(),
			Timestamp:   time.Now(),
			FilePath:    diff.FilePath,
			PrevLines:   diff.OldLines,
			NewLines:    diff.NewLines,
			Description: message,
		})
	}
	return true, nil
}

// registerTools translates every registry schema into an mcp.Tool and
// binds it to the single generic dispatch handler.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	for _, schema := range s.registry.Schemas() {
		opts := []mcp.ToolOption{mcp.WithDescription(schema.Description)}
		for _, p := range schema.Params {
			opts = append(opts, paramOption(p))
		}
		mcpServer.AddTool(mcp.NewTool(schema.Name, opts...), s.handlerFor(schema.Name))
	}
}

// paramOption converts one tools.ParamSpec into the matching mcp.With*
// declaration. Array parameters are declared as strings, the same as
// string parameters; none of the built-in tools declares an array
// parameter.
func paramOption(p tools.ParamSpec) mcp.ToolOption {
	propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
	if p.Required {
		propOpts = append(propOpts, mcp.Required())
	}
	if len(p.Enum) > 0 {
		propOpts = append(propOpts, mcp.Enum(p.Enum...))
	}

	switch p.Type {
	case tools.ParamNumber:
		return mcp.WithNumber(p.Name, propOpts...)
	case tools.ParamBoolean:
		return mcp.WithBoolean(p.Name, propOpts...)
	default: // ParamString, ParamArray
		return mcp.WithString(p.Name, propOpts...)
	}
}

// handlerFor returns the generic MCP handler for toolName: pull every
// declared param out of the request in the type the registry expects,
// dispatch through the exact same Registry.Dispatch the agent loop
// uses, and render the ToolResult as MCP text/error content.
func (s *Server) handlerFor(toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, found := s.registry.Get(toolName)
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tool %q", toolName)), nil
		}

		params := make(map[string]any, len(t.Params()))
		for _, p := range t.Params() {
			switch p.Type {
			case tools.ParamNumber:
				if v := request.GetFloat(p.Name, 0); v != 0 || hasArg(request, p.Name) {
					params[p.Name] = v
				}
			case tools.ParamBoolean:
				params[p.Name] = request.GetBool(p.Name, false)
			case tools.ParamArray:
				if raw := request.GetString(p.Name, ""); raw != "" {
					var arr []string
					if err := json.Unmarshal([]byte(raw), &arr); err == nil {
						params[p.Name] = arr
					}
				}
			default:
				if v := request.GetString(p.Name, ""); v != "" {
					params[p.Name] = v
				}
			}
		}

		call := model.ToolCall{ID: uuid.NewString(), Name: toolName, Params: params, Timestamp: time.Now()}
		result := s.registry.Dispatch(ctx, s.toolCtx, call)
		if !result.Success {
			return mcp.NewToolResultError(result.Error), nil
		}

		switch data := result.Data.(type) {
		case string:
			return mcp.NewToolResultText(data), nil
		default:
			encoded, err := json.MarshalIndent(result.Data, "", "  ")
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
			}
			return mcp.NewToolResultText(string(encoded)), nil
		}
	}
}

// hasArg reports whether the request's raw arguments include key at
// all, distinguishing "omitted" from "explicitly zero" for numeric
// params.
func hasArg(request mcp.CallToolRequest, key string) bool {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return false
	}
	_, present := args[key]
	return present
}

// ServeStdio runs the MCP server on stdin/stdout until the transport
// closes, matching the teacher's ServeStdio entrypoint.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}
