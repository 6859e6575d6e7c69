package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	TriggerStartup  = "startup"
	TriggerInterval = "interval"
	TriggerManual   = "manual"
)

type Options struct {
	// RefreshInterval re-ingests periodically; zero leaves refreshes to
	// page requests and the admin API.
	RefreshInterval    time.Duration
	WorkerCount        int
	RebuildPreferences bool
	TaskTimeout        time.Duration
}

type Scheduler struct {
	catalog     CatalogRefresher
	store       PreferenceRebuilder
	interval    time.Duration
	workerCount int
	rebuild     bool
	taskTimeout time.Duration
	retryDelay  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(catalog CatalogRefresher, store PreferenceRebuilder, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	workerCount := max(opts.WorkerCount, 1)
	taskTimeout := opts.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = 5 * time.Minute
	}

	return &Scheduler{
		catalog:     catalog,
		store:       store,
		interval:    opts.RefreshInterval,
		workerCount: workerCount,
		rebuild:     opts.RebuildPreferences,
		taskTimeout: taskTimeout,
		retryDelay:  time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 32),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueStartupTasks()

	if s.interval <= 0 {
		slog.Debug("Periodic catalog refresh disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueTask(NewRefreshCatalogTask(TriggerInterval, s.catalog)); err != nil {
					slog.Warn("Failed to enqueue RefreshCatalogTask", "trigger", TriggerInterval, "error", err)
				}
			}
		}
	}()
}

// Stop cancels running tasks and waits for workers to exit. Tasks still
// queued are dropped.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	// Rebuild goes first so aggregates are settled before the first ranked page.
	if s.rebuild && s.store != nil {
		if err := s.EnqueueTask(NewRebuildPreferencesTask(TriggerStartup, s.store)); err != nil {
			slog.Warn("Failed to enqueue RebuildPreferencesTask", "error", err)
		}
	}

	if err := s.EnqueueTask(NewRefreshCatalogTask(TriggerStartup, s.catalog)); err != nil {
		slog.Warn("Failed to enqueue RefreshCatalogTask", "trigger", TriggerStartup, "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay * time.Duration(1<<uint(task.GetRetryCount()-1))
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "trigger", task.GetTrigger(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
