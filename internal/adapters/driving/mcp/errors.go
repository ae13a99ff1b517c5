// Package mcp provides an MCP (Model Context Protocol) server adapter for persona.
// It lets AI assistants ask the persona questions and read its cached posts.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
