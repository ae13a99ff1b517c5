package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/core/ports/driving"
	"github.com/custodia-labs/persona-cli/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

var schedLog = logger.Named("scheduler")

// docsRefresher refreshes the docs index when its snapshot is stale.
type docsRefresher interface {
	RefreshIfStale(ctx context.Context) (bool, error)
}

// SchedulerDeps are the services the built-in tasks act on.
// A nil dependency turns its task into a no-op.
type SchedulerDeps struct {
	Cache       driving.CacheAdmin
	Posts       driving.PostService
	Docs        docsRefresher
	Handle      string
	CacheMaxAge time.Duration
}

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	deps   SchedulerDeps
	now    func() time.Time

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	inFlight map[string]bool
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	deps SchedulerDeps,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		deps:     deps,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		schedLog.Error("failed to initialise tasks: %v", err)
	}

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

var taskNames = map[string]string{
	domain.TaskIDCacheSweep:  "Cache Sweep",
	domain.TaskIDCacheWarmup: "Cache Warmup",
	domain.TaskIDDocsRefresh: "Docs Refresh",
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDCacheSweep, domain.TaskIDCacheWarmup, domain.TaskIDDocsRefresh} {
		if err := s.ensureTask(ctx, id, taskNames[id], s.config.GetTaskConfig(id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	first := now.Add(cfg.Interval)
	if cfg.RunOnStart {
		first = now
	}

	if task == nil {
		if !cfg.Enabled {
			return nil
		}
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  first,
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = first
		} else if cfg.RunOnStart && task.NextRun.After(first) {
			task.NextRun = first
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	s.checkAndRunDueTasks(ctx)

	tick := s.config.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		schedLog.Error("failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, &task)
		}
	}
}

// runTask executes a single task in the background. A task still running
// from an earlier tick is not started again.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inFlight[task.ID] {
		s.mu.Unlock()
		return
	}
	s.inFlight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDCacheSweep:
			result.ItemsProcessed, err = s.runCacheSweep(ctx)
		case domain.TaskIDCacheWarmup:
			result.ItemsProcessed, err = s.runCacheWarmup(ctx)
		case domain.TaskIDDocsRefresh:
			result.ItemsProcessed, err = s.runDocsRefresh(ctx)
		default:
			schedLog.Warn("unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = s.now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
			schedLog.Warn("%s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
			schedLog.Debug("%s done (%d items)", task.ID, result.ItemsProcessed)
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			schedLog.Error("failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			schedLog.Error("failed to record result for %s: %v", task.ID, recordErr)
		}
		// Keep the last 100 results per task.
		if pruneErr := s.store.PruneHistory(ctx, 100); pruneErr != nil {
			schedLog.Error("failed to prune history: %v", pruneErr)
		}
	}()
}

// runCacheSweep deletes expired cache records.
func (s *Scheduler) runCacheSweep(ctx context.Context) (int, error) {
	if s.deps.Cache == nil {
		return 0, nil
	}
	return s.deps.Cache.SweepExpired(ctx, s.deps.CacheMaxAge)
}

// runCacheWarmup makes sure the persona timeline is cached.
func (s *Scheduler) runCacheWarmup(ctx context.Context) (int, error) {
	if s.deps.Posts == nil || s.deps.Handle == "" {
		return 0, nil
	}
	if err := s.deps.Posts.Warmup(ctx, s.deps.Handle); err != nil {
		return 0, err
	}
	return 1, nil
}

// runDocsRefresh re-ingests the docs index when it is stale.
func (s *Scheduler) runDocsRefresh(ctx context.Context) (int, error) {
	if s.deps.Docs == nil {
		return 0, nil
	}
	refreshed, err := s.deps.Docs.RefreshIfStale(ctx)
	if err != nil || !refreshed {
		return 0, err
	}
	return 1, nil
}
