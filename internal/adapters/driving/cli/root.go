// Package cli implements the persona command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
	"github.com/custodia-labs/persona-cli/internal/logger"
)

// version is set at build time by main.
var version = "dev"

// Services wired in by main (or by tests).
var (
	answerService   driving.AnswerService
	postService     driving.PostService
	cacheAdmin      driving.CacheAdmin
	docsService     driving.DocsService
	settingsService driving.SettingsService
	scheduler       driving.Scheduler
	watchPrompts    func(ctx context.Context)

	schedulerEnabled bool
)

var (
	verbose   bool
	configDir string
)

// noServicesAnnotation marks commands that run without building services.
const noServicesAnnotation = "persona/no-services"

// Services holds the driving ports the commands call.
type Services struct {
	Answers   driving.AnswerService
	Posts     driving.PostService
	Cache     driving.CacheAdmin
	Docs      driving.DocsService
	Settings  driving.SettingsService
	Scheduler driving.Scheduler

	// SchedulerEnabled starts Scheduler for long-running commands.
	SchedulerEnabled bool

	// WatchPrompts starts prompt hot reload for long-running commands.
	WatchPrompts func(ctx context.Context)

	// Close releases what the services hold open.
	Close func() error
}

// Bootstrap builds the services once flags are parsed.
type Bootstrap func(ctx context.Context, configDir string) (*Services, error)

var (
	bootstrap     Bootstrap
	closeServices func() error
)

var rootCmd = &cobra.Command{
	Use:   "persona",
	Short: "Ask questions answered in a persona's voice",
	Long: `persona answers questions as a social-media persona.

Answers draw on the persona's cached post history, are grounded in product
documentation when the question is technical, and are generated by the
configured LLM provider. When no LLM is reachable a keyword match over the
posts is returned instead.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.persona)")
}

// SetVersion sets the version reported by 'persona version'.
func SetVersion(v string) {
	version = v
}

// SetServices installs the services the commands call.
func SetServices(s *Services) {
	answerService = s.Answers
	postService = s.Posts
	cacheAdmin = s.Cache
	docsService = s.Docs
	settingsService = s.Settings
	scheduler = s.Scheduler
	watchPrompts = s.WatchPrompts
	schedulerEnabled = s.SchedulerEnabled
}

// startBackground runs the scheduler and prompt watcher until the returned
// stop function is called. Used by commands that stay up.
func startBackground(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)

	if watchPrompts != nil {
		go watchPrompts(ctx)
	}

	sched := scheduler
	if !schedulerEnabled || sched == nil {
		return cancel
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sched.Start(ctx); err != nil {
			logger.Warn("scheduler stopped: %v", err)
		}
	}()

	return func() {
		cancel()
		if err := sched.Stop(); err != nil {
			logger.Warn("scheduler stop: %v", err)
		}
		<-done
	}
}

// Execute runs the root command. Services are built lazily by b, so
// commands like 'version' never touch the config directory.
func Execute(ctx context.Context, b Bootstrap) error {
	bootstrap = b
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("closing services: %v", err)
			}
			closeServices = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[noServicesAnnotation] == "true" || bootstrap == nil || closeServices != nil {
		return nil
	}

	svcs, err := bootstrap(cmd.Context(), configDir)
	if err != nil {
		return err
	}
	SetServices(svcs)
	closeServices = svcs.Close
	if closeServices == nil {
		closeServices = func() error { return nil }
	}
	return nil
}
