package engine

import (
	"context"
	"fmt"
	"time"

	"autoops/engine/internal/store"
	"autoops/engine/pkg/logger"
	"autoops/engine/pkg/types"
)

// runTask drives one task through its workflow: planning, then the plan's
// operations strictly in order. It owns the task's workflow record for the
// duration of the run.
func (e *Engine) runTask(ctx context.Context, taskID string) {
	h := e.handleFor(taskID)
	defer e.releaseHandle(taskID)

	task, err := e.store.Get(taskID)
	if err != nil {
		logger.Warn("worker dequeued unknown task %s: %v", taskID, err)
		return
	}
	if task.Status.IsTerminal() {
		return
	}

	wf := e.workflowFor(taskID)

	if h.cancelled.Load() {
		e.finalize(task, wf, nil, types.NewCancelledError(taskID))
		return
	}

	task, err = e.store.UpdateStatus(taskID, types.TaskStatusPlanning, store.WithStartedNow())
	if err != nil {
		logger.Warn("task %s: cannot enter planning: %v", taskID, err)
		return
	}
	e.publishTask(task)
	wf.update(func(w *types.WorkflowStatus) {
		w.CurrentStep = "planning"
		w.PlannerStatus = types.PhaseRunning
	})

	// The wall-clock budget starts when the worker picks the task up,
	// not at submission.
	taskCtx, cancelCtx := context.WithDeadline(ctx, task.StartedAt.Add(task.Timeout))
	defer cancelCtx()

	b := &budget{policy: e.retry}

	plan, err := e.planPhase(taskCtx, h, b, task)
	if err != nil {
		wf.update(func(w *types.WorkflowStatus) {
			w.PlannerStatus = phaseFor(err)
			w.Errors = append(w.Errors, err.Error())
			w.RetryCount = b.used
		})
		e.finalize(task, wf, b, err)
		return
	}

	// Cancellation that arrived during the planner call lets the call
	// finish but discards the plan.
	if h.cancelled.Load() {
		wf.update(func(w *types.WorkflowStatus) {
			w.PlannerStatus = types.PhaseCancelled
			w.RetryCount = b.used
		})
		e.finalize(task, wf, b, types.NewCancelledError(taskID))
		return
	}

	wf.update(func(w *types.WorkflowStatus) {
		w.PlannerStatus = types.PhaseCompleted
		w.ExecutionPlan = plan
		w.RetryCount = b.used
	})
	logger.Info("task %s: plan %s with %d operations", taskID, plan.ID, len(plan.Operations))

	// An empty plan is a valid outcome: nothing to execute.
	if len(plan.Operations) == 0 {
		wf.update(func(w *types.WorkflowStatus) {
			w.ExecutorStatus = types.PhaseSkipped
		})
		e.finalize(task, wf, b, nil)
		return
	}

	task, err = e.store.UpdateStatus(taskID, types.TaskStatusExecuting)
	if err != nil {
		logger.Warn("task %s: cannot enter executing: %v", taskID, err)
		return
	}
	e.publishTask(task)
	wf.update(func(w *types.WorkflowStatus) {
		w.CurrentStep = "executing"
		w.ExecutorStatus = types.PhaseRunning
	})

	for i := range plan.Operations {
		op := plan.Operations[i]
		wf.update(func(w *types.WorkflowStatus) {
			w.CurrentStep = fmt.Sprintf("executing %d/%d", i+1, len(plan.Operations))
		})

		result, opErr := e.executeOperation(taskCtx, h, b, task, op)

		// Results accumulated so far are kept on failure; the failing
		// operation itself is recorded in the error list only, and the
		// remaining operations never run.
		if opErr != nil {
			wf.update(func(w *types.WorkflowStatus) {
				w.RetryCount = b.used
				w.Errors = append(w.Errors, opErr.Error())
				w.ExecutorStatus = phaseFor(opErr)
			})
			e.finalize(task, wf, b, opErr)
			return
		}

		// A cancel that arrived mid-operation discards that operation's
		// result and stops the workflow here.
		if h.cancelled.Load() {
			wf.update(func(w *types.WorkflowStatus) {
				w.RetryCount = b.used
				w.ExecutorStatus = types.PhaseCancelled
			})
			e.finalize(task, wf, b, types.NewCancelledError(taskID))
			return
		}

		wf.update(func(w *types.WorkflowStatus) {
			w.ExecutionResults = append(w.ExecutionResults, *result)
			w.RetryCount = b.used
		})
	}

	wf.update(func(w *types.WorkflowStatus) {
		w.ExecutorStatus = types.PhaseCompleted
	})
	e.finalize(task, wf, b, nil)
}

// planPhase runs the planner under the retry governor and validates the
// returned plan. A structurally invalid plan is a fatal failure.
func (e *Engine) planPhase(ctx context.Context, h *runHandle, b *budget, task *types.Task) (*types.ExecutionPlan, error) {
	var plan *types.ExecutionPlan
	err := e.attempt(ctx, h, b, task, types.TaskStatusPlanning, "planning", func(ctx context.Context) error {
		p, err := e.planner.Plan(ctx, task.Request)
		if err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := validatePlan(plan); err != nil {
		return nil, types.NewFatalError("planner produced an invalid plan", err)
	}
	return plan, nil
}

func validatePlan(plan *types.ExecutionPlan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}
	for i := range plan.Operations {
		op := &plan.Operations[i]
		if !op.Action.IsValid() {
			return fmt.Errorf("operation %d: unrecognized action %q", i, op.Action)
		}
		if op.ResourceType == "" {
			return fmt.Errorf("operation %d: missing resource type", i)
		}
	}
	return nil
}

// executeOperation runs one operation under the retry governor and returns
// its result. The result is failed when err is non-nil.
func (e *Engine) executeOperation(ctx context.Context, h *runHandle, b *budget,
	task *types.Task, op types.Operation) (*types.ExecutionResult, error) {

	result := types.NewExecutionResult(op)

	var output map[string]any
	err := e.attempt(ctx, h, b, task, types.TaskStatusExecuting,
		fmt.Sprintf("operation %s %s", op.Action, op.ResourceType),
		func(ctx context.Context) error {
			out, err := e.executor.Execute(ctx, &op)
			if err != nil {
				return err
			}
			output = out
			return nil
		})

	if err != nil {
		return nil, err
	}
	result.Result = output
	result.Finish()
	return result, nil
}

// finalize moves the task to its terminal status, stamps the workflow view
// and publishes the closing event. A nil err means success.
func (e *Engine) finalize(task *types.Task, wf *workflowRecord, b *budget, err error) {
	status := types.TaskStatusCompleted
	fields := []store.Field{store.WithCompletedNow()}
	if b != nil {
		fields = append(fields, store.WithRetryCount(b.used))
	}

	if err != nil {
		if types.IsCancelled(err) {
			status = types.TaskStatusCancelled
		} else {
			status = types.TaskStatusFailed
		}
		fields = append(fields, store.WithError(err.Error()))
	}

	final, uerr := e.store.UpdateStatus(task.ID, status, fields...)
	if uerr != nil {
		logger.Error("task %s: cannot finalize as %s: %v", task.ID, status, uerr)
		return
	}

	wf.update(func(w *types.WorkflowStatus) {
		w.CurrentStep = string(final.Status)
	})

	if final.Status == types.TaskStatusCompleted &&
		e.collector != nil && final.StartedAt != nil && final.CompletedAt != nil {
		e.collector.RecordDuration(final.CompletedAt.Sub(*final.StartedAt))
	}

	e.publishTask(final)
	switch {
	case err == nil:
		logger.Info("task %s completed in %s", task.ID, durationOf(final))
	case types.IsCancelled(err):
		logger.Info("task %s cancelled", task.ID)
	default:
		logger.Warn("task %s failed: %v", task.ID, err)
	}
}

// phaseFor maps a terminal error onto the phase status it leaves behind.
func phaseFor(err error) types.PhaseStatus {
	if types.IsCancelled(err) {
		return types.PhaseCancelled
	}
	return types.PhaseFailed
}

func durationOf(t *types.Task) time.Duration {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(*t.StartedAt)
}
