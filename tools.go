//go:build tools

package tools

// Tool dependencies were previously tracked here with blank imports.
// This file imports nothing. go.mod requires mockery v2, but the
// repository has no mockery configuration and its tests use hand-written
// fakes.
