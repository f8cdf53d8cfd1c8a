package types

import "time"

// OperationAction represents a discrete remote action against the cluster.
type OperationAction string

const (
	ActionCreate OperationAction = "create"
	ActionUpdate OperationAction = "update"
	ActionDelete OperationAction = "delete"
	ActionScale  OperationAction = "scale"
	ActionPatch  OperationAction = "patch"
	ActionGet    OperationAction = "get"
	ActionList   OperationAction = "list"
)

// IsValid reports whether the action is a recognized operation action.
func (a OperationAction) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionScale,
		ActionPatch, ActionGet, ActionList:
		return true
	}
	return false
}

// KnownResourceTypes lists the resource types the planner may emit.
var KnownResourceTypes = []string{
	"pod", "deployment", "service", "configmap", "secret",
	"ingress", "namespace", "node", "persistentvolumeclaim",
	"horizontalpodautoscaler", "statefulset",
}

// IsKnownResourceType reports whether the resource type is supported.
func IsKnownResourceType(rt string) bool {
	for _, known := range KnownResourceTypes {
		if rt == known {
			return true
		}
	}
	return false
}

// Operation is one unit of remote work. Operations are immutable once
// produced by the planner.
type Operation struct {
	ID           string            `json:"operation_id"`
	Action       OperationAction   `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceName string            `json:"resource_name,omitempty"`
	Namespace    string            `json:"namespace"`
	Manifest     map[string]any    `json:"manifest,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
}

// ExecutionPlan is the ordered sequence of operations derived from a
// request. The sequence order is the execution order. An empty plan is
// valid and completes the task without an executing phase.
type ExecutionPlan struct {
	ID                string        `json:"plan_id"`
	Description       string        `json:"description"`
	Operations        []Operation   `json:"operations"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	CreatedAt         time.Time     `json:"created_at"`
}

// ResultStatus represents the outcome of one operation attempt.
type ResultStatus string

const (
	// ResultStatusCompleted indicates the operation succeeded.
	ResultStatusCompleted ResultStatus = "completed"
	// ResultStatusFailed indicates the operation failed.
	ResultStatusFailed ResultStatus = "failed"
)

// ExecutionResult is the outcome of one operation attempt. Results are
// appended in execution order and never mutated after append.
type ExecutionResult struct {
	OperationID string         `json:"operation_id"`
	Operation   Operation      `json:"operation"`
	Status      ResultStatus   `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Duration    time.Duration  `json:"duration"`
}

// NewExecutionResult creates a result in the completed state for the
// given operation. Fill Result or call Fail during execution, then
// Finish to stamp the end time.
func NewExecutionResult(op Operation) *ExecutionResult {
	return &ExecutionResult{
		OperationID: op.ID,
		Operation:   op,
		Status:      ResultStatusCompleted,
		StartedAt:   time.Now(),
	}
}

// Fail marks the result as failed with the given error.
func (r *ExecutionResult) Fail(err error) {
	r.Status = ResultStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// Finish stamps CompletedAt and derives Duration.
func (r *ExecutionResult) Finish() {
	r.CompletedAt = time.Now()
	r.Duration = r.CompletedAt.Sub(r.StartedAt)
}
