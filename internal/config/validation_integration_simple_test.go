package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

func TestConfig_Validate_AcceptsMinimalStdioConfig(t *testing.T) {
	cfg := Default()
	cfg.Server.Command = "npx"
	cfg.Server.Transport = "stdio"

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RejectsMissingServerTarget(t *testing.T) {
	cfg := Default()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, bwerrors.ValidationConfig, bwerrors.CodeOf(err))
}

func TestConfig_Validate_RejectsStdioWithoutCommand(t *testing.T) {
	cfg := Default()
	cfg.Server.Transport = "stdio"
	cfg.Server.URL = "unused"

	require.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsHTTPFamilyWithoutURL(t *testing.T) {
	for _, transport := range []string{"sse", "streamable-http", "http"} {
		cfg := Default()
		cfg.Server.Transport = transport
		cfg.Server.Command = "unused"

		err := cfg.Validate()
		require.Error(t, err, "transport %s requires server.url", transport)
	}
}

func TestConfig_Validate_RejectsUnrecognizedTransport(t *testing.T) {
	cfg := Default()
	cfg.Server.Command = "npx"
	cfg.Server.Transport = "carrier-pigeon"

	require.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsParallelPersonasWithoutConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Server.Command = "npx"
	cfg.Test.ParallelPersonas = true
	cfg.Test.PersonaConcurrency = 0

	require.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsFailOnDriftWithoutComparePath(t *testing.T) {
	cfg := Default()
	cfg.Server.Command = "npx"
	cfg.Baseline.FailOnDrift = true

	require.Error(t, cfg.Validate())
}

func TestConfig_Validate_AccumulatesMultipleProblems(t *testing.T) {
	cfg := Default()
	cfg.Mode = "bogus"
	cfg.Test.MaxQuestionsPerTool = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATION_CONFIG")
	assert.Contains(t, err.Error(), "validation failed:")
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("server", "one of command or url must be set")
	assert.Equal(t, "field 'server': one of command or url must be set", errs.Error())

	errs.Add("test.maxQuestionsPerTool", "must not be negative", -1)
	assert.Contains(t, errs.Error(), "validation failed:")
	assert.True(t, errs.HasErrors())
}
