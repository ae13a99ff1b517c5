// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/persona-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/persona-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/persona-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/persona-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/persona-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
)

var (
	errNoAnswerService = errors.New("answer service not configured")
	errNoAnswer        = errors.New("no answer returned")
)

// chromeHeight is the rows used by the title, input and status bar.
const chromeHeight = 7

type turn struct {
	question string
	answer   *domain.Answer
	err      error
	elapsed  time.Duration
}

// View shows the transcript above a question input and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	statusbar *status.Bar
	viewport  viewport.Model
	spinner   spinner.Model

	answers  driving.AnswerService
	identity string
	ctx      context.Context

	turns    []turn
	pending  string
	thinking bool

	width  int
	height int
}

// NewView creates a chat view answering as identity. An empty identity
// uses the configured persona.
func NewView(s *styles.Styles, km *keymap.KeyMap, answers driving.AnswerService, identity string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Muted

	v := &View{
		styles:    s,
		keymap:    km,
		input:     input.NewQuestionInput(s),
		statusbar: status.NewBar(s, km),
		viewport:  viewport.New(80, 24-chromeHeight),
		spinner:   sp,
		answers:   answers,
		identity:  strings.TrimPrefix(strings.TrimSpace(identity), "@"),
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
	v.refresh()
	return v
}

// WithContext sets the context questions are answered under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor blink.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.AnswerReceived:
		if msg.Err == nil && msg.Answer == nil {
			msg.Err = errNoAnswer
		}
		v.turns = append(v.turns, turn{
			question: msg.Question,
			answer:   msg.Answer,
			err:      msg.Err,
			elapsed:  msg.Elapsed,
		})
		v.pending = ""
		v.thinking = false
		if msg.Err != nil {
			v.statusbar.SetState(status.StateError)
			v.statusbar.SetMessage(msg.Err.Error())
		} else {
			v.statusbar.SetState(status.StateReady)
			v.statusbar.SetMessage("")
			v.statusbar.IncAnswered()
		}
		v.refresh()
		return v, v.input.Focus()

	case messages.DocsWarmed:
		if v.thinking {
			return v, nil
		}
		if msg.Err != nil {
			v.statusbar.SetMessage("docs unavailable, answering from posts only")
		} else {
			v.statusbar.SetMessage(fmt.Sprintf("docs ready (%d chunks)", msg.Status.ChunkCount))
		}
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil

	case spinner.TickMsg:
		if !v.thinking {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh()
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Send):
		if v.thinking {
			return v, nil
		}
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.input.Reset()
		v.pending = question
		v.thinking = true
		v.statusbar.SetState(status.StateThinking)
		v.refresh()
		return v, tea.Batch(v.ask(question), v.spinner.Tick)

	case keymap.Matches(key, v.keymap.Clear):
		v.turns = nil
		v.statusbar.Clear()
		v.refresh()
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollUp), keymap.Matches(key, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask answers in the background. The service and context are captured so
// the command never reads the view from another goroutine.
func (v *View) ask(question string) tea.Cmd {
	ctx, answers, identity := v.ctx, v.answers, v.identity
	return func() tea.Msg {
		if answers == nil {
			return messages.AnswerReceived{Question: question, Err: errNoAnswerService}
		}
		start := time.Now()
		answer, err := answers.Answer(ctx, question, identity)
		return messages.AnswerReceived{
			Question: question,
			Answer:   answer,
			Elapsed:  time.Since(start),
			Err:      err,
		}
	}
}

func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) speaker() string {
	if v.identity == "" {
		return "Persona"
	}
	return "@" + v.identity
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 && v.pending == "" {
		return v.styles.Muted.Render(fmt.Sprintf("Ask %s a question to get started.", v.speaker()))
	}

	answerStyle := v.styles.Answer.Width(max(v.width-4, 20))

	var b strings.Builder
	for _, t := range v.turns {
		b.WriteString(v.styles.Question.Render("You: "))
		b.WriteString(t.question)
		b.WriteString("\n")
		b.WriteString(v.styles.Persona.Render(v.speaker() + ":"))
		b.WriteString("\n")
		if t.err != nil {
			b.WriteString(v.styles.Error.Render("  " + t.err.Error()))
		} else {
			b.WriteString(answerStyle.Render(t.answer.Text))
			b.WriteString("\n")
			b.WriteString(v.styles.Badge.Render("  " + badge(t.answer, t.elapsed)))
		}
		b.WriteString("\n\n")
	}
	if v.pending != "" {
		b.WriteString(v.styles.Question.Render("You: "))
		b.WriteString(v.pending)
		b.WriteString("\n")
		b.WriteString(v.styles.Persona.Render(v.speaker() + ":"))
		b.WriteString(" ")
		b.WriteString(v.spinner.View())
		b.WriteString("\n")
	}
	return b.String()
}

func badge(a *domain.Answer, elapsed time.Duration) string {
	parts := []string{string(a.Path)}
	if a.GroundedInDocs {
		parts = append(parts, "grounded in docs")
	}
	if elapsed > 0 {
		parts = append(parts, elapsed.Round(10*time.Millisecond).String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// View renders the chat view.
func (v *View) View() string {
	title := v.styles.Title.Render("persona chat") + v.styles.Muted.Render("  answering as "+v.speaker())

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(v.viewport.View())
	b.WriteString("\n")
	b.WriteString(v.input.View())
	b.WriteString("\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

// SetDimensions resizes the view.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-chromeHeight, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Thinking reports whether a question is awaiting its answer.
func (v *View) Thinking() bool {
	return v.thinking
}

// Turns returns the number of answered questions in the transcript.
func (v *View) Turns() int {
	return len(v.turns)
}

// Transcript returns the rendered transcript.
func (v *View) Transcript() string {
	return v.renderTranscript()
}

// Status returns the status bar.
func (v *View) Status() *status.Bar {
	return v.statusbar
}

// Input returns the question input.
func (v *View) Input() *input.QuestionInput {
	return v.input
}
