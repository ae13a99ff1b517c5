// Package tui provides the interactive chat terminal UI for persona.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI calls.
type Ports struct {
	// Answers produces persona answers. Required.
	Answers driving.AnswerService

	// Docs is warmed in the background when set so the first technical
	// question does not pay for ingestion.
	Docs driving.DocsService
}

// Validate ensures required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Answers == nil {
		return ErrMissingAnswerService
	}
	return nil
}
