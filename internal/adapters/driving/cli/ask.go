package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askAs   string
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask the persona a question",
	Long: `Answers a question in the persona's voice.

Questions about the most recent or most liked post are answered directly from
the cached history. Technical questions are grounded in the product
documentation. Everything else goes to the configured LLM, falling back to a
keyword match over the posts when generation fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askAs, "as", "", "handle to answer as (default: persona.handle)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("question is empty")
	}

	answer, err := answerService.Answer(cmd.Context(), question, askAs)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if verbose {
		cmd.Printf("\n(path: %s, grounded in docs: %t)\n", answer.Path, answer.GroundedInDocs)
	}
	return nil
}
