package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotsetlabs/bellwether/internal/logging"
)

// DefaultConfigFileName is the conventional config file name looked for in
// the current directory when no explicit path is given.
const DefaultConfigFileName = "bellwether.yaml"

// LoadFile loads configuration from a single YAML file at path. A missing
// file is not an error: it yields Default() so a bare `bellwether run
// --server ./my-server` works without any config file at all.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "no config file at %s, using defaults", path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg, err := Load(data)
	if err != nil {
		return Config{}, fmt.Errorf("loading config from %s: %w", path, err)
	}
	logging.Info("ConfigLoader", "loaded configuration from %s", path)

	if err := resolveCredentials(&cfg); err != nil {
		return Config{}, fmt.Errorf("resolving credentials: %w", err)
	}
	return cfg, nil
}

// resolveCredentials looks up the LLM API key for cfg.LLM.Provider: the
// BELLWETHER_<PROVIDER>_API_KEY environment variable first, then the
// project .env, then the user-global .env, exporting the first value found
// into the environment. It stores nothing on Config and does not consult
// the OS keychain. MCP server auth is handled by the transport's own
// bearer-token/session mechanics.
func resolveCredentials(cfg *Config) error {
	if cfg.LLM.Provider == "" {
		return nil
	}

	envVar := "BELLWETHER_" + strings.ToUpper(cfg.LLM.Provider) + "_API_KEY"
	if v := os.Getenv(envVar); v != "" {
		return nil // already resolvable by the provider construction step; nothing to store on Config itself
	}

	for _, dotenvPath := range []string{".env", filepath.Join(mustUserHome(), ".env")} {
		if v, ok := readDotenvKey(dotenvPath, envVar); ok {
			os.Setenv(envVar, v)
			logging.Debug("ConfigLoader", "resolved %s from %s", envVar, dotenvPath)
			return nil
		}
	}

	logging.Debug("ConfigLoader", "no credential found for %s via env or .env; keychain/none resolution deferred to provider construction", cfg.LLM.Provider)
	return nil
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// readDotenvKey reads a simple KEY=VALUE line from a .env-style file
// without pulling in a dotenv parsing dependency for a single lookup.
func readDotenvKey(path, key string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(name) != key {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"'`), true
	}
	return "", false
}
