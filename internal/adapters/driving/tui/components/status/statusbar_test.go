package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/persona-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/persona-cli/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.Answered())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_Update(t *testing.T) {
	bar := NewBar(nil, nil)

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
	assert.Nil(t, bar.Init())
}

func TestStatusBar_ViewByState(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*Bar)
		contains string
	}{
		{"ready", func(*Bar) {}, "Ready"},
		{"thinking", func(b *Bar) { b.SetState(StateThinking) }, "Thinking..."},
		{"error with message", func(b *Bar) {
			b.SetState(StateError)
			b.SetMessage("boom")
		}, "Error: boom"},
		{"error without message", func(b *Bar) { b.SetState(StateError) }, "Error"},
		{"help", func(b *Bar) { b.SetState(StateHelp) }, "Help"},
		{"answered count", func(b *Bar) {
			b.IncAnswered()
			b.IncAnswered()
		}, "2 answered"},
		{"ready message", func(b *Bar) { b.SetMessage("docs ready") }, "docs ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(120)
			tt.setup(bar)

			assert.Contains(t, bar.View(), tt.contains)
		})
	}
}

func TestStatusBar_ViewShowsHints(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)

	view := bar.View()

	assert.Contains(t, view, "enter: ask")
	assert.Contains(t, view, "ctrl+c: quit")
	assert.NotContains(t, view, "\n")
}

func TestStatusBar_ViewDropsHintsThatDoNotFit(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(40)

	view := bar.View()

	assert.Contains(t, view, "Ready")
	assert.Contains(t, view, "enter: ask | f1: help")
	assert.NotContains(t, view, "ctrl+c")
	assert.NotContains(t, view, "\n")
}

func TestStatusBar_NarrowWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(5)

	view := bar.View()
	assert.NotEmpty(t, view)
	assert.NotContains(t, view, "\n")
	assert.Equal(t, 5, bar.Width())
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("x")
	bar.IncAnswered()

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.Answered())
}
