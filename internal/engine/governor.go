package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autoops/engine/internal/store"
	"autoops/engine/pkg/logger"
	"autoops/engine/pkg/types"
)

// RetryPolicy bounds the retries a single task may spend across its entire
// workflow, planning and operations combined, and shapes the wait between
// attempts.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Backoff returns the wait before the given zero-based retry attempt:
// BackoffBase doubled per attempt, capped at BackoffMax.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BackoffBase <= 0 {
		return 0
	}
	d := p.BackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.BackoffMax > 0 && d >= p.BackoffMax {
			return p.BackoffMax
		}
	}
	if p.BackoffMax > 0 && d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

// budget is one task's retry allowance, shared by the planning phase and
// every operation. Owned by the task's workflow driver, never concurrent.
type budget struct {
	policy RetryPolicy
	used   int
}

func (b *budget) exhausted() bool {
	return b.used >= b.policy.MaxRetries
}

// next consumes one retry and returns the backoff to wait before it.
func (b *budget) next() time.Duration {
	d := b.policy.Backoff(b.used)
	b.used++
	return d
}

// attempt runs fn until it succeeds, fails fatally, exhausts the shared
// retry budget, is cancelled, or runs out of wall-clock time. Cancellation
// and the deadline are observed between attempts and during backoff waits,
// never mid-call.
func (e *Engine) attempt(ctx context.Context, h *runHandle, b *budget, task *types.Task,
	status types.TaskStatus, step string, fn func(context.Context) error) error {

	for {
		if h.cancelled.Load() {
			return types.NewCancelledError(task.ID)
		}
		if err := ctx.Err(); err != nil {
			return e.classifyCtxErr(err, task)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return e.classifyCtxErr(ctxErr, task)
		}
		if !types.IsTransient(err) {
			return err
		}
		if b.exhausted() {
			return types.NewFatalError(
				fmt.Sprintf("%s: retry budget exhausted after %d retries", step, b.used), err)
		}

		wait := b.next()
		if _, uerr := e.store.UpdateStatus(task.ID, status, store.WithRetryCount(b.used)); uerr != nil {
			logger.Warn("task %s: failed to record retry count: %v", task.ID, uerr)
		}
		logger.Warn("task %s: %s failed (%v), retry %d/%d in %s",
			task.ID, step, err, b.used, b.policy.MaxRetries, wait)

		select {
		case <-ctx.Done():
			return e.classifyCtxErr(ctx.Err(), task)
		case <-time.After(wait):
		}
	}
}

// classifyCtxErr maps a context error onto the task error taxonomy. A hit
// deadline is the task timeout. The task context is otherwise cancelled
// only when Stop forces the engine down, so anything else is a shutdown
// abort; user cancellation travels on the run handle flag, not the context.
func (e *Engine) classifyCtxErr(err error, task *types.Task) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewTimeoutError(task.ID, task.Timeout)
	}
	return types.NewShutdownError(task.ID)
}
