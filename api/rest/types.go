package rest

import (
	"autoops/engine/pkg/types"
)

// SubmitTaskRequest is the body of POST /api/v1/tasks.
type SubmitTaskRequest struct {
	// Request is the natural language request to orchestrate.
	Request string `json:"request"`

	// Priority is one of low, normal, high, critical. Defaults to normal.
	Priority string `json:"priority,omitempty"`

	// TimeoutSeconds overrides the engine's default task timeout.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// TaskListResponse is the body of GET /api/v1/tasks.
type TaskListResponse struct {
	Tasks []*types.Task `json:"tasks"`
	Count int           `json:"count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Ready     bool   `json:"ready"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
