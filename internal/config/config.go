// Package config loads cascade's project configuration from
// .cascade/config.toml, layering it over coded defaults the way the
// original service layered a TOML file over DefaultConfig().
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is cascade's project-level configuration.
type Config struct {
	Agent    AgentConfig    `toml:"agent"`
	LLM      LLMConfig      `toml:"llm"`
	Index    IndexConfig    `toml:"index"`
	Logging  LoggingConfig  `toml:"logging"`
	API      APIConfig      `toml:"api"`
	Security SecurityConfig `toml:"security"`
}

// AgentConfig controls the agent loop's bounds.
type AgentConfig struct {
	MaxToolCalls        int     `toml:"max_tool_calls"`
	AutoApply           bool    `toml:"auto_apply"`
	CompressionThreshold float64 `toml:"compression_threshold"`
}

// LLMConfig selects and configures the model transport.
type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	PlanningModel  string `toml:"planning_model"`
	ExecutionModel string `toml:"execution_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSecs    int    `toml:"timeout_seconds"`
}

// IndexConfig controls project indexing and the file watcher.
type IndexConfig struct {
	ExcludeGlobs []string `toml:"exclude_globs"`
	MaxFileSize  int64    `toml:"max_file_size_bytes"`
	DebounceMs   int      `toml:"debounce_ms"`
	WatchEnabled bool     `toml:"watch_enabled"`
}

// LoggingConfig mirrors the ambient logging setup's knobs.
type LoggingConfig struct {
	Level    string `toml:"level"`
	ToFile   bool   `toml:"to_file"`
	ToStdout bool   `toml:"to_stdout"`
}

// APIConfig controls the local read-only introspection server.
type APIConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// SecurityConfig holds overrides for the command security classifier.
type SecurityConfig struct {
	CommandTimeoutSecs int      `toml:"command_timeout_seconds"`
	ExtraAllowlist      []string `toml:"extra_allowlist"`
	ExtraBlocklist      []string `toml:"extra_blocklist"`
}

// Default returns cascade's coded defaults.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxToolCalls:         20,
			AutoApply:            false,
			CompressionThreshold: 0.8,
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet",
			TimeoutSecs: 60,
		},
		Index: IndexConfig{
			ExcludeGlobs: []string{
				"node_modules/**", "dist/**", "build/**", ".git/**",
				".idea/**", ".vscode/**", "__pycache__/**", "coverage/**",
			},
			MaxFileSize:  1024 * 1024,
			DebounceMs:   300,
			WatchEnabled: true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			ToStdout: true,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8787,
		},
		Security: SecurityConfig{
			CommandTimeoutSecs: 30,
		},
	}
}

// Save writes cfg as TOML to .cascade/config.toml under projectRoot,
// creating the directory if needed, matching the teacher's
// Config.Save.
func (c *Config) Save(projectRoot string) error {
	path := Path(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Path returns the project's config file path relative to root.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, ".cascade", "config.toml")
}

// Load reads .cascade/config.toml under projectRoot and merges it over
// Default(). A missing file is not an error: the defaults are
// returned as-is.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}
