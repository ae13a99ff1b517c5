// Package app constructs the persona services from settings and wires them
// together. Every outer surface (CLI, MCP server, chat) is handed an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/persona-cli/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/persona-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/persona-cli/internal/adapters/driven/docsource"
	"github.com/custodia-labs/persona-cli/internal/adapters/driven/social/twitter"
	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/core/services"
	"github.com/custodia-labs/persona-cli/internal/logger"
	"github.com/custodia-labs/persona-cli/internal/telemetry"
)

var appLog = logger.Named("app")

// Options controls where state lives.
type Options struct {
	// ConfigDir holds config.toml, prompts/ and data/. Empty means ~/.persona.
	ConfigDir string
}

// App holds the constructed services.
type App struct {
	Settings  *services.SettingsService
	Cache     *services.CacheService
	Posts     *services.PostService
	Docs      *services.DocIndex
	Answers   *services.AnswerService
	Scheduler *services.Scheduler
	Prompts   *configfile.PromptStore

	AppSettings *domain.AppSettings

	closers []func() error
}

// New builds an App. A missing or invalid LLM configuration is not an
// error: answers then take the deterministic and fallback paths only.
func New(ctx context.Context, opts Options) (*App, error) {
	dir := opts.ConfigDir
	if dir == "" {
		d, err := configfile.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("config directory: %w", err)
		}
		dir = d
	}

	configStore, err := configfile.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("config store: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	a := &App{Settings: settingsSvc, AppSettings: settings}

	shutdown, err := telemetry.Init(ctx, settings.Telemetry)
	if err != nil {
		appLog.Warn("tracing disabled: %v", err)
	} else {
		a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
	}

	dataDir := settings.Storage.Dir
	if dataDir == "" {
		dataDir = filepath.Join(dir, "data")
	}
	stores, err := OpenStores(ctx, settings.Storage, dataDir)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, stores.Close)

	a.Cache = services.NewCacheService(stores.Records, settings.Cache.MaxAge)
	client := twitter.NewClient(twitter.ConfigFromSettings(settings.Upstream))
	a.Posts = services.NewPostService(client, a.Cache)

	a.Docs = services.NewDocIndex(docsource.New(settings.Docs.URL), stores.Records, services.DocIndexConfig{
		Product: settings.Persona.Product,
		MaxAge:  settings.Docs.MaxAge,
	})

	var llm driven.LLMService
	if settings.LLM.IsConfigured() {
		llm, err = ai.CreateLLMService(&settings.LLM)
		if err != nil {
			appLog.Warn("llm unavailable, answers use fallback: %v", err)
			llm = nil
		} else {
			a.closers = append(a.closers, llm.Close)
		}
	} else {
		appLog.Debug("llm not configured")
	}
	a.Answers = services.NewAnswerService(a.Posts, a.Docs, llm, services.AnswerConfigFromSettings(settings))

	prompts, err := configfile.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		appLog.Warn("prompt store unavailable, using built-in prompts: %v", err)
	} else {
		a.Prompts = prompts
		a.Answers.SetPromptStore(prompts)
	}

	a.Scheduler = services.NewScheduler(settings.Scheduler, stores.Scheduler, services.SchedulerDeps{
		Cache:       a.Cache,
		Posts:       a.Posts,
		Docs:        a.Docs,
		Handle:      settings.Persona.Handle,
		CacheMaxAge: settings.Cache.MaxAge,
	})

	return a, nil
}

// WatchPrompts reloads prompt templates as they are edited until ctx is done.
func (a *App) WatchPrompts(ctx context.Context) {
	if a.Prompts == nil {
		return
	}
	err := a.Prompts.Watch(ctx, func(name string) {
		appLog.Info("prompt %s reloaded", name)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		appLog.Warn("prompt watch stopped: %v", err)
	}
}

// Close releases stores, the LLM client and the tracer, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
