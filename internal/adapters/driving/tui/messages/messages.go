// Package messages defines Bubbletea message types for the chat TUI.
package messages

import (
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

// QuestionSubmitted is sent when the user presses enter on a question.
type QuestionSubmitted struct {
	Question string
}

// AnswerReceived carries an answer (or the failure) back to the model.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Elapsed  time.Duration
	Err      error
}

// DocsWarmed reports the docs index finished loading in the background.
type DocsWarmed struct {
	Status domain.DocsStatus
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the transcript and question input.
	ViewChat ViewType = iota
	// ViewHelp lists the keybindings.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
