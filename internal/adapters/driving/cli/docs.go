package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var docsLimit int

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the documentation index",
	Long: `The documentation index grounds technical answers in the product docs.
It is fetched on first use and kept on disk until it is older than
docs.max_age_days.`,
}

var docsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the documentation index status",
	RunE:  runDocsStatus,
}

var docsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch the documentation corpus",
	RunE:  runDocsRefresh,
}

var docsSearchCmd = &cobra.Command{
	Use:   "search [question...]",
	Short: "Show the sections that best match a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocsSearch,
}

func init() {
	docsSearchCmd.Flags().IntVarP(&docsLimit, "limit", "n", 3, "maximum number of sections")

	docsCmd.AddCommand(docsStatusCmd)
	docsCmd.AddCommand(docsRefreshCmd)
	docsCmd.AddCommand(docsSearchCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsStatus(cmd *cobra.Command, _ []string) error {
	if docsService == nil {
		return errors.New("docs service not configured")
	}

	if err := docsService.EnsureReady(cmd.Context()); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}

	st := docsService.Status()
	cmd.Println("[Docs]")
	cmd.Printf("  Ready: %t\n", st.Ready)
	cmd.Printf("  Sections: %d\n", st.ChunkCount)
	if st.LastUpdated.IsZero() {
		cmd.Println("  Last updated: never")
	} else {
		cmd.Printf("  Last updated: %s\n", st.LastUpdated.Format("2006-01-02 15:04"))
	}
	if st.Stale {
		cmd.Println("  Stale: yes (run 'persona docs refresh')")
	}
	return nil
}

func runDocsRefresh(cmd *cobra.Command, _ []string) error {
	if docsService == nil {
		return errors.New("docs service not configured")
	}

	cmd.Print("Refreshing documentation... ")
	if err := docsService.Refresh(cmd.Context()); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("docs refresh failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Printf("Indexed %d sections.\n", docsService.Status().ChunkCount)
	return nil
}

func runDocsSearch(cmd *cobra.Command, args []string) error {
	if docsService == nil {
		return errors.New("docs service not configured")
	}

	if err := docsService.EnsureReady(cmd.Context()); err != nil {
		return fmt.Errorf("docs unavailable: %w", err)
	}

	question := strings.Join(args, " ")
	matches := docsService.TopMatches(question, docsLimit)
	if len(matches) == 0 {
		cmd.Println("No matching sections.")
		return nil
	}

	for i := range matches {
		m := &matches[i]
		cmd.Printf("  [%d] %s (score %d)\n", i+1, m.Title, m.Score)
		cmd.Printf("      %s\n", preview(m.Content, 160))
		cmd.Println()
	}
	return nil
}

// preview flattens s to one line of at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
