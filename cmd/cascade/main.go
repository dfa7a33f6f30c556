// Command cascade is the CLI entrypoint spec.md §6 assumes but leaves
// undefined ("consumed, not defined here"): it wires storage, project
// indexing, the LLM transport, the tool registry, and the agent loop
// into the three commands spec.md names -- start, init, index -- plus
// an mcp command exposing the same tool registry to external MCP
// clients, grounded on the teacher's cmd/iter-service/main.go
// flag-then-subcommand dispatch style.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cascadehq/cascade/internal/agentloop"
	"github.com/cascadehq/cascade/internal/api"
	"github.com/cascadehq/cascade/internal/config"
	"github.com/cascadehq/cascade/internal/ctxmgr"
	"github.com/cascadehq/cascade/internal/logging"
	"github.com/cascadehq/cascade/internal/mcpsurface"
	"github.com/cascadehq/cascade/internal/project"
	"github.com/cascadehq/cascade/internal/session"
	"github.com/cascadehq/cascade/internal/storage"
	"github.com/cascadehq/cascade/internal/tools"
	"github.com/cascadehq/cascade/internal/watch"
)

const systemPrompt = `You are cascade, a local coding agent with direct access to one project's files.
Use a <tool_call name="..."> element to act on the workspace (read, search, edit, run commands, inspect git/AST).
When you have a final answer for the user with no further action needed, respond in plain text with no tool_call.`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "start":
		err = cmdStart(args[1:])
	case "init":
		err = cmdInit(args[1:])
	case "index":
		err = cmdIndex(args[1:])
	case "mcp":
		err = cmdMCP(args[1:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cascade - a local interactive coding agent

Usage:
  cascade start [path] [--auto-apply] [--model name]   Start an interactive session
  cascade init [path]                                   Write a default .cascade/config.toml
  cascade index [path]                                  Index a project and exit
  cascade mcp [path]                                    Serve the tool registry over MCP (stdio)`)
}

func cmdInit(args []string) error {
	root := resolveRoot(args)
	cfg := config.Default()
	if err := cfg.Save(root); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Created %s\n", config.Path(root))
	return nil
}

func cmdIndex(args []string) error {
	root := resolveRoot(args)
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Setup(logging.Options{DataDir: dataDir(root), ToFile: cfg.Logging.ToFile, ToStdout: cfg.Logging.ToStdout})

	backend, err := openStorage(root)
	if err != nil {
		return err
	}
	defer backend.Disconnect(context.Background())

	proj := project.New(filepath.Base(root), root, backend, cfg.Index.ExcludeGlobs)
	if err := proj.IndexAll(context.Background()); err != nil {
		return fmt.Errorf("index project: %w", err)
	}

	paths := proj.Paths()
	fmt.Printf("Indexed %d files under %s\n", len(paths), root)
	return nil
}

func cmdStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	autoApply := fs.Bool("auto-apply", false, "apply edits without confirmation")
	modelOverride := fs.String("model", "", "override the configured model name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root := resolveRoot(fs.Args())
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *modelOverride != "" {
		cfg.LLM.Model = *modelOverride
	}
	if *autoApply {
		cfg.Agent.AutoApply = true
	}

	logging.Setup(logging.Options{DataDir: dataDir(root), ToFile: cfg.Logging.ToFile, ToStdout: cfg.Logging.ToStdout})
	logger := logging.Get()

	backend, err := openStorage(root)
	if err != nil {
		return err
	}
	defer backend.Disconnect(context.Background())

	proj := project.New(filepath.Base(root), root, backend, cfg.Index.ExcludeGlobs)
	if err := proj.IndexAll(context.Background()); err != nil {
		return fmt.Errorf("index project: %w", err)
	}

	var watcher *watch.Watcher
	if cfg.Index.WatchEnabled {
		watcher, err = watch.New(proj, cfg.Index.DebounceMs, cfg.Index.ExcludeGlobs)
		if err != nil {
			logger.Warn().Err(err).Msg("file watcher unavailable, continuing without live reindex")
		} else if err := watcher.Start(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to start file watcher")
		} else {
			defer watcher.Stop()
		}
	}

	sessions := session.NewStore(backend)
	sess, found, err := sessions.Latest(context.Background(), proj.Name)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !found {
		sess, err = sessions.New(context.Background(), proj.Name)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
	}

	provider, err := buildProvider(context.Background(), cfg.LLM)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}
	routed, modelName := buildRouter(provider, cfg.LLM)
	transport := agentloop.NewProviderTransport(routed, modelName)

	registry := tools.NewBuiltinRegistry()
	cm := ctxmgr.NewManager(transport.ContextWindowSize())

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(&cfg.API, sessions, func() string { return "" })
		go func() {
			if err := startAPIServer(apiServer); err != nil {
				logger.Warn().Err(err).Msg("introspection server stopped")
			}
		}()
	}

	sink := newTerminalSink()
	loop := agentloop.New(transport, registry, proj, sessions, cm, sess, agentloop.Options{
		SystemPrompt:   systemPrompt,
		MaxToolCalls:   cfg.Agent.MaxToolCalls,
		AutoApply:      cfg.Agent.AutoApply,
		ErrorThreshold: 3,
		CommandTimeout: time.Duration(cfg.Security.CommandTimeoutSecs) * time.Second,
		ExtraAllowlist: cfg.Security.ExtraAllowlist,
		ExtraBlocklist: cfg.Security.ExtraBlocklist,
		IgnorePatterns: cfg.Index.ExcludeGlobs,
		Sink:           sink,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		loop.Cancel()
	}()

	fmt.Printf("cascade session %s on %s (model %s)\n", sess.ID, root, modelName)
	return runREPL(ctx, loop)
}

func runREPL(ctx context.Context, loop *agentloop.Loop) error {
	reader := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := loop.RunTurn(ctx, line, true); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func cmdMCP(args []string) error {
	root := resolveRoot(args)
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Setup(logging.Options{DataDir: dataDir(root), ToFile: cfg.Logging.ToFile, ToStdout: false})

	backend, err := openStorage(root)
	if err != nil {
		return err
	}
	defer backend.Disconnect(context.Background())

	proj := project.New(filepath.Base(root), root, backend, cfg.Index.ExcludeGlobs)
	if err := proj.IndexAll(context.Background()); err != nil {
		return fmt.Errorf("index project: %w", err)
	}

	registry := tools.NewBuiltinRegistry()
	server := mcpsurface.New(root, proj, backend, registry, nil)
	return server.ServeStdio()
}

func resolveRoot(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			abs, err := filepath.Abs(a)
			if err == nil {
				return abs
			}
			return a
		}
	}
	cwd, _ := os.Getwd()
	return cwd
}

func dataDir(root string) string {
	return filepath.Join(root, ".cascade")
}

func startAPIServer(s *api.Server) error {
	return http.ListenAndServe(s.Addr(), s.Handler())
}

func openStorage(root string) (storage.Store, error) {
	backend := storage.NewBoltStore(filepath.Join(dataDir(root), "cascade.bolt"))
	if err := backend.Connect(context.Background()); err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}
	return backend, nil
}
