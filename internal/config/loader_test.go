package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_MissingFileReturnsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	cfg, err := LoadFile(filepath.Join(tempDir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile_ParsesAndValidatesDocument(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "bellwether.yaml")
	doc := `
mode: structural
server:
  command: npx
  args: ["-y", "@my-org/mcp-server"]
  transport: stdio
llm:
  provider: openai
  model: gpt-4o-mini
test:
  personas: ["developer"]
  maxQuestionsPerTool: 3
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeStructural, cfg.Mode)
	assert.Equal(t, "npx", cfg.Server.Command)
	assert.Equal(t, []string{"-y", "@my-org/mcp-server"}, cfg.Server.Args)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Test.MaxQuestionsPerTool)
}

func TestLoadFile_RejectsInvalidDocument(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "bellwether.yaml")
	doc := `
mode: structural
server:
  transport: stdio
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err, "stdio transport without a command must fail validation")
}

func TestLoadFile_PreservesUnknownTopLevelKeys(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "bellwether.yaml")
	doc := `
mode: explore
server:
  command: my-server
experimental:
  newFeature: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Contains(t, cfg.Extra, "experimental")
}

func TestReadDotenvKey(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nFOO=bar\nBAZ=\"quoted\"\n"), 0o644))

	v, ok := readDotenvKey(path, "FOO")
	require.True(t, ok)
	assert.Equal(t, "bar", v)

	v, ok = readDotenvKey(path, "BAZ")
	require.True(t, ok)
	assert.Equal(t, "quoted", v)

	_, ok = readDotenvKey(path, "MISSING")
	assert.False(t, ok)
}
