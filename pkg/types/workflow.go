package types

import "time"

// PhaseStatus represents the state of one workflow phase (planning or
// execution) within a task's workflow.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
	PhaseCancelled PhaseStatus = "cancelled"
)

// WorkflowStatus is the aggregate per-request view of a task's workflow:
// the planning step plus the per-operation execution results. It is
// exclusively owned and mutated by the workflow driver for that task and
// read-only to everyone else.
type WorkflowStatus struct {
	RequestID        string            `json:"request_id"`
	CurrentStep      string            `json:"current_step"`
	PlannerStatus    PhaseStatus       `json:"planner_status"`
	ExecutorStatus   PhaseStatus       `json:"executor_status"`
	ExecutionPlan    *ExecutionPlan    `json:"execution_plan,omitempty"`
	ExecutionResults []ExecutionResult `json:"execution_results"`
	Errors           []string          `json:"errors"`
	RetryCount       int               `json:"retry_count"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewWorkflowStatus creates the initial workflow view for a task.
func NewWorkflowStatus(requestID string) *WorkflowStatus {
	now := time.Now()
	return &WorkflowStatus{
		RequestID:        requestID,
		CurrentStep:      "pending",
		PlannerStatus:    PhasePending,
		ExecutorStatus:   PhasePending,
		ExecutionResults: []ExecutionResult{},
		Errors:           []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a copy safe to hand to observers. The execution plan and
// results are copied; operation manifests are shared because they are
// immutable once planned.
func (w *WorkflowStatus) Clone() *WorkflowStatus {
	c := *w
	if w.ExecutionPlan != nil {
		plan := *w.ExecutionPlan
		plan.Operations = append([]Operation(nil), w.ExecutionPlan.Operations...)
		c.ExecutionPlan = &plan
	}
	c.ExecutionResults = append([]ExecutionResult(nil), w.ExecutionResults...)
	c.Errors = append([]string(nil), w.Errors...)
	return &c
}
