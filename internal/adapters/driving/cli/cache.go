package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	cacheJSON   bool
	cacheMaxAge time.Duration
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the post cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cache records",
	RunE:  runCacheList,
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict [key]",
	Short: "Remove one cache record",
	Long: `Remove one cache record by its storage key, e.g. "user_jack" or
"hashtag_groq". Use 'persona cache list' to see the keys.`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheEvict,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache record",
	RunE:  runCacheClear,
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired cache records",
	RunE:  runCacheSweep,
}

func init() {
	cacheListCmd.Flags().BoolVar(&cacheJSON, "json", false, "output records as JSON")
	cacheSweepCmd.Flags().DurationVar(&cacheMaxAge, "max-age", 0, "expire records older than this (0 = cache.max_age_hours)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	if cacheAdmin == nil {
		return errors.New("cache service not configured")
	}

	infos, err := cacheAdmin.ListCaches(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list caches: %w", err)
	}

	if cacheJSON {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal caches: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(infos) == 0 {
		cmd.Println("Cache is empty.")
		return nil
	}

	cmd.Println("Cache records:")
	cmd.Println()
	for i := range infos {
		info := &infos[i]
		if info.IsCorrupt() {
			cmd.Printf("  %s  (unreadable: %s)\n", info.Key, info.Error)
			continue
		}
		state := "fresh"
		if info.Expired {
			state = "expired"
		}
		cmd.Printf("  %s  %d posts, %s old, %d bytes, %s\n",
			info.Key, info.PostCount, info.Age.Round(time.Minute), info.Size, state)
	}
	return nil
}

func runCacheEvict(cmd *cobra.Command, args []string) error {
	if cacheAdmin == nil {
		return errors.New("cache service not configured")
	}

	removed, err := cacheAdmin.Evict(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to evict %s: %w", args[0], err)
	}
	if !removed {
		cmd.Printf("No cache record %q.\n", args[0])
		return nil
	}
	cmd.Printf("Evicted %s.\n", args[0])
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if cacheAdmin == nil {
		return errors.New("cache service not configured")
	}

	n, err := cacheAdmin.EvictAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	cmd.Printf("Removed %d cache records.\n", n)
	return nil
}

func runCacheSweep(cmd *cobra.Command, _ []string) error {
	if cacheAdmin == nil {
		return errors.New("cache service not configured")
	}

	n, err := cacheAdmin.SweepExpired(cmd.Context(), cacheMaxAge)
	if err != nil {
		return fmt.Errorf("failed to sweep cache: %w", err)
	}
	cmd.Printf("Removed %d expired cache records.\n", n)
	return nil
}
