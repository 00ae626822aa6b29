// Package config defines Bellwether's consumed configuration schema (§6).
// Bellwether does not own configuration format evolution the way a
// long-running service would; it loads one YAML document per run and
// validates it strictly except for forward-compatible unknown keys.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Mode selects whether an interview run explores freely or merely checks
// structural conformance against declared schemas.
type Mode string

const (
	ModeStructural Mode = "structural"
	ModeExplore    Mode = "explore"
)

// OutputFormat selects the report format(s) written at the end of a run.
type OutputFormat string

const (
	FormatAgentsMD OutputFormat = "agents.md"
	FormatJSON     OutputFormat = "json"
	FormatBoth     OutputFormat = "both"
)

// Config is the top-level configuration document (§6).
type Config struct {
	Mode      Mode            `yaml:"mode"`
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Test      TestConfig      `yaml:"test"`
	Scenarios ScenariosConfig `yaml:"scenarios"`
	Workflows WorkflowsConfig `yaml:"workflows"`
	Baseline  BaselineConfig  `yaml:"baseline"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Output    OutputConfig    `yaml:"output"`

	// Extra retains unrecognized top-level keys verbatim so newer config
	// files stay loadable by older binaries (§6: "unknown keys pass
	// through").
	Extra map[string]any `yaml:"-"`
}

// ServerConfig describes the MCP server under audit.
type ServerConfig struct {
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	Timeout   int               `yaml:"timeout,omitempty"` // seconds
	Transport string            `yaml:"transport,omitempty"`
	URL       string            `yaml:"url,omitempty"` // base URL for http/sse/streamable-http transports
}

// LLMConfig selects and configures the LLM provider used for interviews.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"baseUrl,omitempty"`
}

// TestConfig configures the interview scheduler.
type TestConfig struct {
	Personas            []string `yaml:"personas,omitempty"`
	MaxQuestionsPerTool int      `yaml:"maxQuestionsPerTool,omitempty"`
	ParallelPersonas    bool     `yaml:"parallelPersonas,omitempty"`
	PersonaConcurrency  int      `yaml:"personaConcurrency,omitempty"`
	SkipErrorTests      bool     `yaml:"skipErrorTests,omitempty"`
}

// ScenariosConfig selects user-supplied scenario files.
type ScenariosConfig struct {
	Path string   `yaml:"path,omitempty"`
	Only []string `yaml:"only,omitempty"`
}

// WorkflowsConfig selects user-supplied workflow files and discovery mode.
type WorkflowsConfig struct {
	Path       string `yaml:"path,omitempty"`
	Discover   bool   `yaml:"discover,omitempty"`
	TrackState bool   `yaml:"trackState,omitempty"`
}

// BaselineConfig configures drift comparison against a prior baseline.
type BaselineConfig struct {
	ComparePath string `yaml:"comparePath,omitempty"`
	FailOnDrift bool   `yaml:"failOnDrift,omitempty"`
}

// CacheConfig configures the interview response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// LoggingConfig configures log verbosity.
type LoggingConfig struct {
	Level   string `yaml:"level,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// OutputConfig configures where and how reports are written.
type OutputConfig struct {
	Dir    string       `yaml:"dir,omitempty"`
	Format OutputFormat `yaml:"format,omitempty"`
}

// Default returns a Config with the same defaults the CLI falls back to
// when a key is omitted.
func Default() Config {
	return Config{
		Mode: ModeExplore,
		Test: TestConfig{
			MaxQuestionsPerTool: 5,
			PersonaConcurrency:  3,
		},
		Cache: CacheConfig{Enabled: true},
		Logging: LoggingConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Dir:    "./bellwether-out",
			Format: FormatBoth,
		},
	}
}

// UnmarshalYAML decodes a Config while retaining any keys not named by a
// struct field into Extra, so a newer config schema's additions survive
// being loaded by this binary instead of erroring or silently vanishing.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain Config
	p := plain(*c)
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Config(p)

	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	known := map[string]bool{
		"mode": true, "server": true, "llm": true, "test": true,
		"scenarios": true, "workflows": true, "baseline": true,
		"cache": true, "logging": true, "output": true,
	}
	extra := map[string]any{}
	for key, valueNode := range raw {
		if known[key] {
			continue
		}
		var v any
		if err := valueNode.Decode(&v); err != nil {
			return fmt.Errorf("decoding unknown config key %q: %w", key, err)
		}
		extra[key] = v
	}
	if len(extra) > 0 {
		c.Extra = extra
	}
	return nil
}

// Load parses a YAML configuration document, applying defaults for any
// field the document omits and then validating the result.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
