//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed via `go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools (install via `go install`):
//
// mockgen - regenerates internal/mocks from the ports
//   Install: go install go.uber.org/mock/mockgen@v0.6.0
//   Usage:   go generate ./internal/mocks
//
// golangci-lint - static analysis
//   Install: go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@v2.1.6
//   Docs: https://golangci-lint.run
