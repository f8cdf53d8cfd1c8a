// Package store provides the authoritative in-memory task registry.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoops/engine/pkg/types"
)

// DefaultListLimit caps list results when the caller gives no limit.
const DefaultListLimit = 100

// entry wraps a task with its own lock so that updates for different
// task ids never block each other. The map lock only guards membership.
type entry struct {
	mu   sync.Mutex
	task types.Task
}

// Store is the authoritative registry of task records. Tasks are never
// deleted on cancellation, only marked; PurgeTerminalBefore is the
// explicit purge entry point.
type Store struct {
	mu             sync.RWMutex
	tasks          map[string]*entry
	defaultTimeout time.Duration
}

// New creates a task store. defaultTimeout is applied to submissions
// that carry no timeout.
func New(defaultTimeout time.Duration) *Store {
	return &Store{
		tasks:          make(map[string]*entry),
		defaultTimeout: defaultTimeout,
	}
}

// Submit creates a task in the pending state with a freshly generated
// unique id. An empty request or unrecognized priority is rejected with
// a validation error and no task is created.
func (s *Store) Submit(request string, priority types.TaskPriority, timeout time.Duration) (*types.Task, error) {
	if request == "" {
		return nil, types.NewValidationError("request must not be empty")
	}
	if !priority.IsValid() {
		return nil, types.NewValidationError("unrecognized priority: %s", priority)
	}
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}

	task := types.Task{
		ID:        uuid.New().String(),
		Request:   request,
		Priority:  priority,
		Status:    types.TaskStatusPending,
		Timeout:   timeout,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.tasks[task.ID] = &entry{task: task}
	s.mu.Unlock()

	return task.Clone(), nil
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(taskID string) (*types.Task, error) {
	e, err := s.lookup(taskID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.Clone(), nil
}

// List returns tasks ordered by creation time, newest first, optionally
// filtered by status. A limit <= 0 applies DefaultListLimit.
func (s *Store) List(status *types.TaskStatus, limit int) []*types.Task {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	tasks := make([]*types.Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		t := e.task.Clone()
		e.mu.Unlock()
		if status != nil && t.Status != *status {
			continue
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks
}

// Field mutates task fields alongside a status transition.
type Field func(*types.Task)

// WithStartedNow stamps StartedAt if not already set.
func WithStartedNow() Field {
	return func(t *types.Task) {
		if t.StartedAt == nil {
			now := time.Now()
			t.StartedAt = &now
		}
	}
}

// WithCompletedNow stamps CompletedAt if not already set.
func WithCompletedNow() Field {
	return func(t *types.Task) {
		if t.CompletedAt == nil {
			now := time.Now()
			t.CompletedAt = &now
		}
	}
}

// WithError records the task error message.
func WithError(msg string) Field {
	return func(t *types.Task) { t.Error = msg }
}

// WithRetryCount records the accumulated retry count.
func WithRetryCount(n int) Field {
	return func(t *types.Task) { t.RetryCount = n }
}

// UpdateStatus transitions the task to newStatus and applies the given
// field mutations under the task's lock. It is the only mutation entry
// point. A transition requested on a terminal task is a no-op returning
// the current record, so repeated cancels and late driver updates stay
// idempotent. Any other transition the state machine does not allow is
// rejected.
func (s *Store) UpdateStatus(taskID string, newStatus types.TaskStatus, fields ...Field) (*types.Task, error) {
	if !newStatus.IsValid() {
		return nil, types.NewValidationError("unrecognized status: %s", newStatus)
	}

	e, err := s.lookup(taskID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status.IsTerminal() {
		return e.task.Clone(), nil
	}
	if !canTransition(e.task.Status, newStatus) {
		return nil, types.NewValidationError(
			"illegal transition %s -> %s for task %s", e.task.Status, newStatus, taskID)
	}

	e.task.Status = newStatus
	for _, f := range fields {
		f(&e.task)
	}
	return e.task.Clone(), nil
}

// canTransition encodes the lifecycle state machine. Transitions only
// move forward; nothing re-enters pending.
func canTransition(from, to types.TaskStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case types.TaskStatusPending:
		return to == types.TaskStatusPlanning || to == types.TaskStatusCancelled ||
			to == types.TaskStatusFailed
	case types.TaskStatusPlanning:
		return to == types.TaskStatusExecuting || to == types.TaskStatusCompleted ||
			to == types.TaskStatusFailed || to == types.TaskStatusCancelled
	case types.TaskStatusExecuting:
		return to == types.TaskStatusCompleted || to == types.TaskStatusFailed ||
			to == types.TaskStatusCancelled
	}
	return false
}

// Counts returns the number of tasks per status.
func (s *Store) Counts() map[types.TaskStatus]int {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	counts := make(map[types.TaskStatus]int)
	for _, e := range entries {
		e.mu.Lock()
		counts[e.task.Status]++
		e.mu.Unlock()
	}
	return counts
}

// Len returns the total number of stored tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// PurgeTerminalBefore removes terminal tasks completed before the cutoff
// and returns how many were removed.
func (s *Store) PurgeTerminalBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, e := range s.tasks {
		e.mu.Lock()
		expired := e.task.Status.IsTerminal() &&
			e.task.CompletedAt != nil && e.task.CompletedAt.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(s.tasks, id)
			purged++
		}
	}
	return purged
}

func (s *Store) lookup(taskID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return nil, types.NewNotFoundError(taskID)
	}
	return e, nil
}
