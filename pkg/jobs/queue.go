package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job represents one run of a maintenance task.
type Job struct {
	Task     string
	Attempt  int
	Enqueued time.Time
}

// Handler performs a task.
type Handler func(context.Context, Job) error

// QueueConfig configures retry behaviour.
type QueueConfig struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue runs console housekeeping tasks on a single worker goroutine.
// Tasks are registered by name and triggered either on a schedule or by
// Enqueue. A failing task is retried after RetryDelay up to MaxRetries times.
type Queue struct {
	name       string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	every    map[string]time.Duration
	jobs     chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

// NewQueue builds an idle queue.
func NewQueue(name string, cfg QueueConfig) *Queue {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 8
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		handlers:   make(map[string]Handler),
		every:      make(map[string]time.Duration),
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Register adds a task. A positive interval schedules it periodically once
// the queue starts; zero leaves it to explicit Enqueue calls.
func (q *Queue) Register(task string, interval time.Duration, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[task] = handler
	if interval > 0 {
		q.every[task] = interval
	}
}

// Start begins consumption and scheduling. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.worker()
	for task, interval := range q.every {
		q.wg.Add(1)
		go q.schedule(task, interval)
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "scheduled", len(q.every))
}

// Stop cancels the worker and waits for it to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue triggers a registered task.
func (q *Queue) Enqueue(task string) error {
	return q.push(Job{Task: task})
}

func (q *Queue) push(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	_, known := q.handlers[job.Task]
	q.mu.Unlock()

	if !known {
		return fmt.Errorf("queue %s: unknown task %q", q.name, job.Task)
	}
	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) schedule(task string, interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			if err := q.push(Job{Task: task}); err != nil {
				q.logger.Sugar().Warnw("failed to schedule task", "queue", q.name, "task", task, "error", err)
			}
		}
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.mu.Lock()
			handler := q.handlers[job.Task]
			q.mu.Unlock()
			if err := handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("task exceeded retries", "queue", q.name, "task", job.Task, "error", err)
		return
	}
	q.logger.Sugar().Warnw("task failed, retrying", "queue", q.name, "task", job.Task, "attempt", job.Attempt, "error", err)

	q.wg.Add(1)
	go func(j Job) {
		defer q.wg.Done()
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.push(j); err != nil {
				q.logger.Sugar().Errorw("failed to requeue task", "queue", q.name, "task", j.Task, "error", err)
			}
		}
	}(job)
}
