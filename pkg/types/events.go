package types

import "time"

// EventType defines the kinds of events published on the event bus.
type EventType string

const (
	// EventTaskUpdate is published on every task state transition.
	EventTaskUpdate EventType = "task_update"
	// EventMetrics is published periodically with an aggregate snapshot.
	EventMetrics EventType = "metrics"
)

// Event is the envelope delivered to event bus subscribers. Exactly one
// of Task or Metrics is set, matching Type.
type Event struct {
	Type      EventType        `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Task      *Task            `json:"task,omitempty"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
}

// DurationPercentiles summarizes completed-task wall-clock durations.
type DurationPercentiles struct {
	P50Ms float64 `json:"p50_ms"`
	P90Ms float64 `json:"p90_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// MetricsSnapshot is a point-in-time aggregate view of the engine. The
// status counts equal the task store contents grouped by status at the
// moment of computation.
type MetricsSnapshot struct {
	TotalTasks     int                  `json:"total_tasks"`
	PendingTasks   int                  `json:"pending_tasks"`
	PlanningTasks  int                  `json:"planning_tasks"`
	ExecutingTasks int                  `json:"executing_tasks"`
	CompletedTasks int                  `json:"completed_tasks"`
	FailedTasks    int                  `json:"failed_tasks"`
	CancelledTasks int                  `json:"cancelled_tasks"`
	ActiveWorkers  int                  `json:"active_workers"`
	QueueDepth     int                  `json:"queue_depth"`
	TaskDurations  *DurationPercentiles `json:"task_durations,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}
