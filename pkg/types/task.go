package types

import "time"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is queued and waiting for a worker.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusPlanning indicates the planner is producing an execution plan.
	TaskStatusPlanning TaskStatus = "planning"
	// TaskStatusExecuting indicates plan operations are being executed.
	TaskStatusExecuting TaskStatus = "executing"
	// TaskStatusCompleted indicates all operations finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task terminated with an error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled by a user.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status is final. Terminal tasks accept
// no further mutation.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// IsValid reports whether the status is a recognized lifecycle state.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusPlanning, TaskStatusExecuting,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskPriority represents the scheduling priority of a task.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityNormal   TaskPriority = "normal"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// IsValid reports whether the priority is a recognized tier.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityNormal, TaskPriorityHigh, TaskPriorityCritical:
		return true
	}
	return false
}

// Rank returns the scheduling rank of the priority. Lower rank is served
// first: critical=0, high=1, normal=2, low=3.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityCritical:
		return 0
	case TaskPriorityHigh:
		return 1
	case TaskPriorityNormal:
		return 2
	default:
		return 3
	}
}

// PriorityTiers is the number of distinct priority tiers.
const PriorityTiers = 4

// Task is the lifecycle record for one submitted natural-language request.
type Task struct {
	ID          string        `json:"task_id"`
	Request     string        `json:"request"`
	Priority    TaskPriority  `json:"priority"`
	Status      TaskStatus    `json:"status"`
	Timeout     time.Duration `json:"timeout"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
	RetryCount  int           `json:"retry_count"`
}

// Clone returns a copy of the task safe to hand to observers.
func (t *Task) Clone() *Task {
	c := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	return &c
}
