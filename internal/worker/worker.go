package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/kasir/internal/metrics"
)

// Worker runs registered jobs on fixed intervals. Each job has its own
// goroutine, so a slow job never delays another; a job's runs never overlap.
type Worker struct {
	jobs   []scheduledJob
	config Config
	logger *slog.Logger

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

type scheduledJob struct {
	handler  JobHandler
	interval time.Duration
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Register schedules handler to run every interval. Call this before Start().
func (w *Worker) Register(handler JobHandler, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval for %s must be positive, got %v", handler.Type(), interval)
	}
	for _, j := range w.jobs {
		if j.handler.Type() == handler.Type() {
			return fmt.Errorf("job %s already registered", handler.Type())
		}
	}
	w.jobs = append(w.jobs, scheduledJob{handler: handler, interval: interval})
	w.logger.Debug("Registered job", "job_type", handler.Type(), "interval", interval)
	return nil
}

// Start launches one scheduling loop per registered job.
func (w *Worker) Start(ctx context.Context) {
	for _, j := range w.jobs {
		w.wg.Add(1)
		go w.runLoop(ctx, j)
	}
	w.logger.Info("Worker started", "jobs", len(w.jobs))
}

// Stop signals all loops to stop and waits for in-flight runs, up to
// ShutdownTimeout. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopCh)
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timeout exceeded, some jobs may still be running")
	}
}

func (w *Worker) runLoop(ctx context.Context, j scheduledJob) {
	defer w.wg.Done()

	logger := w.logger.With("job_type", j.handler.Type())

	if w.config.RunOnStart {
		if stop := w.runOnce(ctx, j.handler, logger); stop {
			return
		}
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			logger.Debug("Job loop stopping")
			return
		case <-ctx.Done():
			logger.Debug("Job loop context done")
			return
		case <-ticker.C:
			if stop := w.runOnce(ctx, j.handler, logger); stop {
				return
			}
		}
	}
}

// runOnce executes a single run with a timeout and panic recovery.
// It reports whether the job asked never to run again.
func (w *Worker) runOnce(ctx context.Context, handler JobHandler, logger *slog.Logger) (stop bool) {
	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.JobPanicked(handler.Type())
			logger.Error("Job panicked", "panic", r)
			stop = false
		}
	}()

	err := handler.Run(jobCtx)
	duration := time.Since(start)
	if err != nil {
		metrics.JobFailed(handler.Type(), duration)
		if IsPermanent(err) {
			logger.Error("Job failed with permanent error, unscheduling", "error", err)
			return true
		}
		logger.Error("Job failed", "error", err, "duration", duration)
		return false
	}

	metrics.JobCompleted(handler.Type(), duration)
	logger.Debug("Job completed", "duration", duration)
	return false
}
