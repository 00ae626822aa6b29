// Package config defines Bellwether's consumed configuration schema (§6
// of the design): a single YAML document describing the server under
// audit, the LLM provider, interview scheduling knobs, scenario/workflow
// file locations, baseline drift settings, and output options.
//
// Unlike a long-running service's layered, hot-reloadable configuration,
// Bellwether loads exactly one document per run via LoadFile and never
// mutates it afterward; unknown top-level keys are retained in
// Config.Extra rather than rejected, so newer config files stay loadable
// by older binaries.
//
// # Example
//
//	mode: explore
//	server:
//	  command: npx
//	  args: ["-y", "@my-org/mcp-server"]
//	  transport: stdio
//	llm:
//	  provider: openai
//	  model: gpt-4o-mini
//	test:
//	  personas: ["developer", "security-reviewer"]
//	  maxQuestionsPerTool: 5
//	  parallelPersonas: true
//	  personaConcurrency: 3
//	baseline:
//	  comparePath: ./baseline.json
//	  failOnDrift: true
//	output:
//	  dir: ./bellwether-out
//	  format: both
//
// Credential resolution (the LLM API key) checks the environment variable,
// then the project .env, then the user-global .env — handled by
// resolveCredentials in loader.go, which does not consult the OS keychain.
package config
