package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pierrevano/whatson-api/app/cfg"
	"github.com/pierrevano/whatson-api/app/ingest"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// taskTimeout bounds one task execution. Ingestion runs cover the whole
// catalog with inter-title delays, so the budget is generous.
const taskTimeout = 2 * time.Hour

type Scheduler struct {
	runner      *ingest.Runner
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	fatalCh     chan error
	ingesting   atomic.Bool
}

func NewScheduler(runner *ingest.Runner) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		runner:      runner,
		interval:    time.Duration(cfg.IngestInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 10),
		fatalCh:     make(chan error, 1),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.interval <= 0 {
		slog.Info("Scheduled ingestion disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueIngestRun()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueIngestRun()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// Fatal delivers run-aborting failures (quality gate breaches, own-API 5xx)
// to the top-level loop, which owns the exit-code decision.
func (s *Scheduler) Fatal() <-chan error {
	return s.fatalCh
}

// enqueueIngestRun keeps ingestion strictly one run at a time.
func (s *Scheduler) enqueueIngestRun() {
	if s.ingesting.Load() {
		slog.Debug("Ingestion run already in progress, skipping")
		return
	}

	task := NewIngestRunTask(s.runner)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue IngestRunTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	if task.GetType() == TaskTypeIngestRun {
		if !s.ingesting.CompareAndSwap(false, true) {
			slog.Debug("Ingestion run already in progress, dropping task", "id", task.GetID())
			return
		}
		defer s.ingesting.Store(false)
	}

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	if ingest.IsFatal(err) {
		slog.Error("Task failed fatally, aborting", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "error", err)
		select {
		case s.fatalCh <- err:
		default:
		}
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	// The retry goroutine joins the wait group so Stop cannot close the
	// queue while a re-enqueue is still pending.
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
