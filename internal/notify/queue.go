package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Queue runs best-effort side effects off the request path. A task failure,
// panic or timeout is logged and never reaches the caller that enqueued it.
type Queue struct {
	tasks   chan task
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// NewQueue creates a queue holding up to size pending tasks.
func NewQueue(size int, timeout time.Duration, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Queue{
		tasks:   make(chan task, size),
		timeout: timeout,
		logger:  logger,
	}
}

// Start launches workers. Tasks run detached from ctx cancellation so Close
// can drain what is already queued.
func (q *Queue) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	base := context.WithoutCancel(ctx)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for t := range q.tasks {
				q.run(base, t)
			}
		}()
	}
}

// Enqueue schedules fn. It returns false when the queue is full or closed.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("Notification queue closed, task dropped", zap.String("task", name))
		return false
	}
	select {
	case q.tasks <- task{name: name, run: fn}:
		return true
	default:
		q.logger.Warn("Notification queue full, task dropped", zap.String("task", name))
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) run(base context.Context, t task) {
	ctx, cancel := context.WithTimeout(base, q.timeout)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return t.run(ctx)
	}()
	if err != nil {
		q.logger.Warn("Notification task failed",
			zap.String("task", t.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	q.logger.Debug("Notification task done", zap.String("task", t.name), zap.Duration("elapsed", time.Since(start)))
}
