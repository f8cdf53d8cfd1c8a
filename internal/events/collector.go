package events

import (
	"context"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"autoops/engine/pkg/logger"
	"autoops/engine/pkg/types"
)

// Histogram bounds for task durations, in milliseconds. Tasks are capped by a
// wall-clock timeout well below an hour, so an hour of range is plenty.
const (
	histMinMs  = 1
	histMaxMs  = 3600 * 1000
	histSigFig = 3
)

// TaskCounter supplies per-status task counts. Implemented by the task store.
type TaskCounter interface {
	Counts() map[types.TaskStatus]int
}

// EngineStats supplies the live gauges owned by the engine.
type EngineStats interface {
	ActiveWorkers() int
	QueueDepth() int
}

// Collector aggregates task counters, engine gauges and a duration histogram
// into periodic MetricsSnapshot events on the bus.
type Collector struct {
	bus    *Bus
	tasks  TaskCounter
	engine EngineStats

	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewCollector creates a collector publishing to bus. The engine stats source
// may be nil until the engine is started; gauges read zero in that case.
func NewCollector(bus *Bus, tasks TaskCounter, engine EngineStats) *Collector {
	return &Collector{
		bus:    bus,
		tasks:  tasks,
		engine: engine,
		hist:   hdrhistogram.New(histMinMs, histMaxMs, histSigFig),
	}
}

// SetEngineStats wires in the gauge source after construction. The engine and
// the collector reference each other, so one side has to be attached late.
func (c *Collector) SetEngineStats(engine EngineStats) {
	c.mu.Lock()
	c.engine = engine
	c.mu.Unlock()
}

// RecordDuration records a finished task's wall-clock duration.
func (c *Collector) RecordDuration(d time.Duration) {
	ms := d.Milliseconds()
	if ms < histMinMs {
		ms = histMinMs
	}
	if ms > histMaxMs {
		ms = histMaxMs
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.hist.RecordValue(ms); err != nil {
		logger.Warn("metrics: failed to record duration %dms: %v", ms, err)
	}
}

// Snapshot assembles the current metrics view.
func (c *Collector) Snapshot() types.MetricsSnapshot {
	counts := c.tasks.Counts()

	c.mu.Lock()
	percentiles := &types.DurationPercentiles{
		P50Ms: float64(c.hist.ValueAtQuantile(50)),
		P90Ms: float64(c.hist.ValueAtQuantile(90)),
		P99Ms: float64(c.hist.ValueAtQuantile(99)),
	}
	engine := c.engine
	c.mu.Unlock()

	snap := types.MetricsSnapshot{
		PendingTasks:   counts[types.TaskStatusPending],
		PlanningTasks:  counts[types.TaskStatusPlanning],
		ExecutingTasks: counts[types.TaskStatusExecuting],
		CompletedTasks: counts[types.TaskStatusCompleted],
		FailedTasks:    counts[types.TaskStatusFailed],
		CancelledTasks: counts[types.TaskStatusCancelled],
		TaskDurations:  percentiles,
		Timestamp:      time.Now(),
	}
	for _, n := range counts {
		snap.TotalTasks += n
	}
	if engine != nil {
		snap.ActiveWorkers = engine.ActiveWorkers()
		snap.QueueDepth = engine.QueueDepth()
	}
	return snap
}

// Run publishes a metrics event every interval until the context is done.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := c.Snapshot()
			c.bus.Publish(types.Event{
				Type:      types.EventMetrics,
				Timestamp: time.Now(),
				Metrics:   &snap,
			})
		}
	}
}
