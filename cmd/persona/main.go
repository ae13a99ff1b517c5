// Command persona answers questions in a social-media persona's voice.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/persona-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/persona-cli/internal/app"
)

// version is set by the linker at release time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	if err := cli.Execute(ctx, bootstrap); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context, configDir string) (*cli.Services, error) {
	a, err := app.New(ctx, app.Options{ConfigDir: configDir})
	if err != nil {
		return nil, err
	}

	return &cli.Services{
		Answers:          a.Answers,
		Posts:            a.Posts,
		Cache:            a.Cache,
		Docs:             a.Docs,
		Settings:         a.Settings,
		Scheduler:        a.Scheduler,
		SchedulerEnabled: a.AppSettings.Scheduler.Enabled,
		WatchPrompts:     a.WatchPrompts,
		Close:            a.Close,
	}, nil
}
