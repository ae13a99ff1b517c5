package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

var (
	postsLimit   int
	postsRefresh bool
	postsJSON    bool
	postsReplies bool
	postsReposts bool
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Fetch posts through the cache",
	Long: `Fetch posts for a user timeline, a free-text search, or a hashtag.

Results are served from the cache while it is fresh and fetched from the
upstream API otherwise. If the API is unavailable, a stale cache entry is
returned instead of an error.`,
}

var postsUserCmd = &cobra.Command{
	Use:   "user [handle]",
	Short: "Show a user's recent posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosts(cmd, domain.NamespaceUser, args[0])
	},
}

var postsSearchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search recent posts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosts(cmd, domain.NamespaceSearch, strings.Join(args, " "))
	},
}

var postsHashtagCmd = &cobra.Command{
	Use:   "hashtag [tag]",
	Short: "Show recent posts with a hashtag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosts(cmd, domain.NamespaceHashtag, args[0])
	},
}

func init() {
	postsCmd.PersistentFlags().IntVarP(&postsLimit, "limit", "n", 0, "maximum number of posts to request (0 = default)")
	postsCmd.PersistentFlags().BoolVar(&postsRefresh, "refresh", false, "bypass the cache")
	postsCmd.PersistentFlags().BoolVar(&postsJSON, "json", false, "output posts as JSON")
	postsUserCmd.Flags().BoolVar(&postsReplies, "replies", false, "include replies")
	postsUserCmd.Flags().BoolVar(&postsReposts, "reposts", false, "include reposts")

	postsCmd.AddCommand(postsUserCmd)
	postsCmd.AddCommand(postsSearchCmd)
	postsCmd.AddCommand(postsHashtagCmd)
	rootCmd.AddCommand(postsCmd)
}

func runPosts(cmd *cobra.Command, ns domain.Namespace, value string) error {
	if postService == nil {
		return errors.New("post service not configured")
	}

	result, err := postService.GetPosts(cmd.Context(), domain.PostQuery{
		Namespace:      ns,
		Value:          value,
		Limit:          postsLimit,
		IncludeReplies: postsReplies,
		IncludeReposts: postsReposts,
		ForceRefresh:   postsRefresh,
	})
	if err != nil {
		return fmt.Errorf("fetching posts failed: %w", err)
	}

	if postsJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal posts: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printPosts(cmd, result)
	return nil
}

func printPosts(cmd *cobra.Command, result *domain.PostsResult) {
	if p := result.Profile; p != nil {
		cmd.Printf("@%s", p.Handle)
		if p.DisplayName != "" {
			cmd.Printf(" (%s)", p.DisplayName)
		}
		cmd.Printf(" - %d followers, %d posts\n", p.FollowerCount, p.PostCount)
		if p.Bio != "" {
			cmd.Printf("  %s\n", p.Bio)
		}
		cmd.Println()
	}

	if len(result.Posts) == 0 {
		cmd.Println("No posts found.")
	}
	for i := range result.Posts {
		post := &result.Posts[i]
		date := "unknown date"
		if !post.CreatedAt.IsZero() {
			date = post.CreatedAt.Format("2006-01-02 15:04")
		}
		cmd.Printf("  [%d] %s  (%d likes, %d reposts)\n", i+1, date, post.LikeCount, post.RepostCount)
		cmd.Printf("      %s\n", strings.ReplaceAll(post.Text, "\n", "\n      "))
		cmd.Println()
	}

	cmd.Printf("Source: %s", result.Source)
	if result.Source == domain.PostSourceCache && !result.CachedAt.IsZero() {
		cmd.Printf(" (cached %s ago)", time.Since(result.CachedAt).Round(time.Minute))
	}
	cmd.Println()
}
