package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/persona-cli/internal/adapters/driving/tui"
)

var chatAs string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the persona in the terminal",
	Long: `Launch an interactive chat with the persona.

Background tasks (cache sweep, cache warmup, docs refresh) run while the
chat is open when the scheduler is enabled.

Controls:
  Enter        - Ask
  Ctrl+L       - Clear transcript
  PgUp/PgDown  - Scroll
  F1           - Toggle help
  Esc          - Back
  Ctrl+C       - Quit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatAs, "as", "", "handle to answer as (default: persona.handle)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Surface a stack trace instead of leaving the terminal in raw mode.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if answerService == nil {
		return errors.New("answer service not configured")
	}

	stop := startBackground(cmd.Context())
	defer stop()

	app, err := tui.NewApp(&tui.Ports{Answers: answerService, Docs: docsService}, chatAs)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
