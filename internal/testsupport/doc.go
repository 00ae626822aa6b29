// Package testsupport collects test doubles shared across Bellwether's
// package tests: a manual clock, a scripted LLM provider, an in-memory
// transport.Driver, and an HTTP test double server speaking the same
// JSON-RPC-over-POST protocol internal/transport's HTTP family drivers
// expect. Nothing here is imported by non-test code.
package testsupport
