package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRefresher struct {
	mu       sync.Mutex
	calls    int
	failures int // first N calls fail
	done     chan struct{}
}

func newFakeRefresher(failures int) *fakeRefresher {
	return &fakeRefresher{failures: failures, done: make(chan struct{}, 16)}
}

func (f *fakeRefresher) Refresh(ctx context.Context) (int, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()

	defer signal(f.done)

	if calls <= f.failures {
		return 0, errors.New("all providers failed")
	}
	return 2, nil
}

func (f *fakeRefresher) Size() int { return 0 }

func (f *fakeRefresher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRebuilder struct {
	done chan struct{}
}

func (f *fakeRebuilder) RebuildPreferences(ctx context.Context) (int, error) {
	signal(f.done)
	return 3, nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for %s", what)
	}
}

func TestSchedulerRunsStartupTasks(t *testing.T) {
	refresher := newFakeRefresher(0)
	rebuilder := &fakeRebuilder{done: make(chan struct{}, 1)}

	scheduler := NewScheduler(refresher, rebuilder, Options{WorkerCount: 2, RebuildPreferences: true})
	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, refresher.done, "startup refresh")
	waitFor(t, rebuilder.done, "startup rebuild")
}

func TestSchedulerSkipsRebuildUnlessRequested(t *testing.T) {
	refresher := newFakeRefresher(0)
	rebuilder := &fakeRebuilder{done: make(chan struct{}, 1)}

	scheduler := NewScheduler(refresher, rebuilder, Options{WorkerCount: 1})
	scheduler.Start()

	waitFor(t, refresher.done, "startup refresh")
	scheduler.Stop()

	select {
	case <-rebuilder.done:
		t.Error("Expected no preference rebuild")
	default:
	}
}

func TestSchedulerRetriesFailedTasks(t *testing.T) {
	refresher := newFakeRefresher(2)

	scheduler := NewScheduler(refresher, nil, Options{WorkerCount: 1})
	scheduler.retryDelay = time.Millisecond
	scheduler.Start()
	defer scheduler.Stop()

	for i := 0; i < 3; i++ {
		waitFor(t, refresher.done, "refresh attempt")
	}

	if calls := refresher.Calls(); calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestSchedulerGivesUpAfterMaxRetries(t *testing.T) {
	refresher := newFakeRefresher(100)

	scheduler := NewScheduler(refresher, nil, Options{WorkerCount: 1})
	scheduler.retryDelay = time.Millisecond
	scheduler.Start()

	for i := 0; i < DefaultMaxRetries+1; i++ {
		waitFor(t, refresher.done, "refresh attempt")
	}

	select {
	case <-refresher.done:
		t.Error("Expected no attempt beyond max retries")
	case <-time.After(100 * time.Millisecond):
	}

	scheduler.Stop()
}

func TestSchedulerPeriodicRefresh(t *testing.T) {
	refresher := newFakeRefresher(0)

	scheduler := NewScheduler(refresher, nil, Options{WorkerCount: 1, RefreshInterval: 10 * time.Millisecond})
	scheduler.Start()
	defer scheduler.Stop()

	for i := 0; i < 3; i++ {
		waitFor(t, refresher.done, "refresh")
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	refresher := newFakeRefresher(0)

	scheduler := NewScheduler(refresher, nil, Options{})
	scheduler.Start()
	waitFor(t, refresher.done, "startup refresh")
	scheduler.Stop()

	err := scheduler.EnqueueTask(NewRefreshCatalogTask(TriggerManual, refresher))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTaskRetryAccounting(t *testing.T) {
	task := NewRefreshCatalogTask(TriggerManual, newFakeRefresher(0))

	if task.GetType() != TaskTypeRefreshCatalog || task.GetTrigger() != TriggerManual {
		t.Errorf("Unexpected task %+v", task.Task)
	}
	if task.GetID() == "" {
		t.Error("Expected task id")
	}
	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}
