// Package runner fans operator tasks out to a worker pool and bounds
// each one with a deadline. A cycle that hits its deadline is logged
// and abandoned; the next cycle proceeds regardless of whether the
// stuck goroutine ever returns.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var taskOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "busboard_task_outcomes_total",
		Help: "Task completions by task name and outcome.",
	},
	[]string{"task", "outcome"},
)

var taskDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "busboard_task_duration_seconds",
		Help:    "Wall time of completed tasks.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"task"},
)

// Task is one unit of feed work, usually scoped to a single operator.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Runner struct {
	timeout time.Duration
	workers int
	logger  *zap.Logger
}

// New creates a Runner that allows each task `timeout` to finish and
// runs at most `workers` tasks concurrently.
func New(timeout time.Duration, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		timeout: timeout,
		workers: workers,
		logger:  logger,
	}
}

// RunCycle executes all tasks and returns once every task has either
// finished or exceeded the deadline. Timed-out tasks keep their
// goroutine until their context cancellation is honored; their result
// is discarded either way.
func (r *Runner) RunCycle(ctx context.Context, tasks []Task) {
	cycle := uuid.New().String()[:8]
	start := time.Now()

	sem := make(chan struct{}, r.workers)
	done := make(chan struct{})
	pending := len(tasks)
	results := make(chan struct{}, len(tasks))

	for _, task := range tasks {
		task := task
		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			r.runOne(ctx, cycle, task)
			results <- struct{}{}
		}()
	}

	go func() {
		for i := 0; i < pending; i++ {
			<-results
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	r.logger.Debug("cycle finished",
		zap.String("cycle", cycle),
		zap.Int("tasks", len(tasks)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (r *Runner) runOne(ctx context.Context, cycle string, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		errCh <- task.Run(taskCtx)
	}()

	select {
	case err := <-errCh:
		elapsed := time.Since(start)
		taskDuration.WithLabelValues(task.Name).Observe(elapsed.Seconds())
		if err != nil {
			taskOutcomes.WithLabelValues(task.Name, "error").Inc()
			r.logger.Warn("task failed",
				zap.String("cycle", cycle),
				zap.String("task", task.Name),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			return
		}
		taskOutcomes.WithLabelValues(task.Name, "ok").Inc()
	case <-taskCtx.Done():
		taskOutcomes.WithLabelValues(task.Name, "timeout").Inc()
		r.logger.Warn("task deadline exceeded, abandoning",
			zap.String("cycle", cycle),
			zap.String("task", task.Name),
			zap.Duration("timeout", r.timeout),
		)
	}
}
