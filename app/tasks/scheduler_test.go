package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pierrevano/whatson-api/app/cfg"
	"github.com/pierrevano/whatson-api/app/ingest"
)

type flakyTask struct {
	Task
	mu         sync.Mutex
	executions int
	failures   int
	err        error
}

func (t *flakyTask) Execute(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.executions++
	if t.executions <= t.failures {
		if t.err != nil {
			return t.err
		}
		return errors.New("transient failure")
	}
	return nil
}

func (t *flakyTask) executionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executions
}

func newTestScheduler(t *testing.T) TaskSchedulerInterface {
	t.Helper()

	// Interval 0 disables the ticker; tasks are enqueued by hand.
	cfg.Set(&cfg.Cfg{WorkerCount: 1, IngestInterval: 0})
	return NewScheduler(nil)
}

func waitFor(t *testing.T, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatal(message)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSchedulerRetriesTransientFailure(t *testing.T) {
	scheduler := newTestScheduler(t)
	scheduler.Start()
	defer scheduler.Stop()

	task := &flakyTask{Task: NewTask(TaskTypeQualityCheck), failures: 1}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	waitFor(t, func() bool { return task.executionCount() == 2 },
		"Expected a second execution after a transient failure")
}

func TestSchedulerStopWithPendingRetry(t *testing.T) {
	scheduler := newTestScheduler(t)
	scheduler.Start()

	// Keeps failing, so a retry is always pending when Stop runs.
	task := &flakyTask{Task: NewTask(TaskTypeQualityCheck), failures: 100}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	waitFor(t, func() bool { return task.executionCount() >= 1 },
		"Expected the task to execute at least once")

	// Stop must join the retry goroutine before closing the queue, and must
	// not wait out the retry delay.
	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Stop did not return while a retry was pending")
	}
}

func TestSchedulerFatalErrorNotRetried(t *testing.T) {
	scheduler := newTestScheduler(t)
	scheduler.Start()

	task := &flakyTask{
		Task:     NewTask(TaskTypeQualityCheck),
		failures: 100,
		err:      ingest.Fatalf("serving layer is down"),
	}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	select {
	case err := <-scheduler.Fatal():
		if !ingest.IsFatal(err) {
			t.Errorf("Expected a fatal error, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected the fatal error on the Fatal channel")
	}

	scheduler.Stop()

	if count := task.executionCount(); count != 1 {
		t.Errorf("Expected exactly one execution for a fatal failure, got %d", count)
	}
}
