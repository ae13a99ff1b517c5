package mcp

import (
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Answers answers questions as the persona.
	Answers driving.AnswerService

	// Posts fetches posts through the cache. Optional.
	Posts driving.PostService

	// Cache lists cache records. Optional.
	Cache driving.CacheAdmin

	// Docs exposes the documentation index. Optional.
	Docs driving.DocsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answers == nil {
		return ErrMissingAnswerService
	}
	return nil
}
