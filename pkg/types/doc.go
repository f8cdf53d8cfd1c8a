// Package types defines the shared data model for the orchestration
// engine: tasks, execution plans, workflow status, events, and the error
// taxonomy used across components.
package types
