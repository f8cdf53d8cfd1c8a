// Package engine implements the task orchestration core: a bounded worker
// pool draining a priority queue, a workflow driver per task, and the retry
// and timeout governor around the planner and executor collaborators.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"autoops/engine/internal/events"
	"autoops/engine/internal/queue"
	"autoops/engine/internal/store"
	"autoops/engine/pkg/logger"
	"autoops/engine/pkg/types"
)

// Planner derives an execution plan from a natural-language request.
type Planner interface {
	Plan(ctx context.Context, request string) (*types.ExecutionPlan, error)
}

// Executor performs a single plan operation against the managed system.
type Executor interface {
	Execute(ctx context.Context, op *types.Operation) (map[string]any, error)
}

// Config controls the engine's concurrency, retry and retention behavior.
type Config struct {
	Workers         int
	DefaultTimeout  time.Duration
	MaxRetries      int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	MetricsInterval time.Duration
	TaskRetention   time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         10,
		DefaultTimeout:  5 * time.Minute,
		MaxRetries:      3,
		BackoffBase:     time.Second,
		BackoffMax:      10 * time.Second,
		MetricsInterval: 5 * time.Second,
		TaskRetention:   24 * time.Hour,
	}
}

// normalize fills zero values with defaults so a partially populated
// Config still yields a working engine.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = def.DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = def.BackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = def.BackoffMax
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = def.MetricsInterval
	}
	if c.TaskRetention <= 0 {
		c.TaskRetention = def.TaskRetention
	}
}

// janitorInterval is how often terminal tasks past retention are purged.
const janitorInterval = 10 * time.Minute

// runHandle is the engine's grip on one in-flight task. The cancelled flag
// is set by Cancel and observed by the workflow driver at its suspension
// points. Whichever side touches the task first creates the handle.
type runHandle struct {
	cancelled atomic.Bool
}

// workflowRecord holds the mutable workflow view for one task. The driver
// mutates it through update, observers read clones through snapshot.
type workflowRecord struct {
	mu     sync.Mutex
	status *types.WorkflowStatus
}

func (r *workflowRecord) update(fn func(*types.WorkflowStatus)) {
	r.mu.Lock()
	fn(r.status)
	r.status.UpdatedAt = time.Now()
	r.mu.Unlock()
}

func (r *workflowRecord) snapshot() *types.WorkflowStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.Clone()
}

// Engine ties the task store, priority queue, worker pool, event bus and
// collaborators together.
type Engine struct {
	cfg       Config
	retry     RetryPolicy
	store     *store.Store
	queue     *queue.PriorityQueue
	bus       *events.Bus
	collector *events.Collector
	planner   Planner
	executor  Executor

	mu        sync.Mutex
	handles   map[string]*runHandle
	workflows map[string]*workflowRecord

	active   atomic.Int32
	started  atomic.Bool
	stopped  atomic.Bool
	cancel   context.CancelFunc
	workerWg sync.WaitGroup
	bgWg     sync.WaitGroup
}

// New assembles an engine. The collector may be nil when metrics are not
// wanted, for example in tests.
func New(cfg Config, st *store.Store, bus *events.Bus, collector *events.Collector,
	planner Planner, executor Executor) *Engine {

	cfg.normalize()
	e := &Engine{
		cfg: cfg,
		retry: RetryPolicy{
			MaxRetries:  cfg.MaxRetries,
			BackoffBase: cfg.BackoffBase,
			BackoffMax:  cfg.BackoffMax,
		},
		store:     st,
		queue:     queue.New(),
		bus:       bus,
		collector: collector,
		planner:   planner,
		executor:  executor,
		handles:   make(map[string]*runHandle),
		workflows: make(map[string]*workflowRecord),
	}
	if collector != nil {
		collector.SetEngineStats(e)
	}
	return e
}

// Start launches the worker pool, the metrics collector and the retention
// janitor. It returns immediately; workers run until Stop.
func (e *Engine) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	for i := 0; i < e.cfg.Workers; i++ {
		e.workerWg.Add(1)
		go e.worker(ctx, i)
	}

	if e.collector != nil {
		e.bgWg.Add(1)
		go func() {
			defer e.bgWg.Done()
			e.collector.Run(ctx, e.cfg.MetricsInterval)
		}()
	}

	e.bgWg.Add(1)
	go e.janitor(ctx)

	logger.Info("engine started: %d workers, timeout %s, retries %d",
		e.cfg.Workers, e.cfg.DefaultTimeout, e.cfg.MaxRetries)
	return nil
}

// Stop shuts the engine down. The queue is closed first so idle workers
// exit and queued tasks stay pending; in-flight tasks are allowed to finish
// until ctx expires, after which they are aborted.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.started.Load() {
		return fmt.Errorf("engine not started")
	}
	if !e.stopped.CompareAndSwap(false, true) {
		return nil
	}

	logger.Info("engine stopping: %d tasks in flight", e.ActiveWorkers())
	e.queue.Close()

	// Workers drain first so in-flight tasks can finish cleanly; the
	// context is cancelled only once they are done (or ctx forces it),
	// which also stops the collector and janitor.
	done := make(chan struct{})
	go func() {
		e.workerWg.Wait()
		close(done)
	}()

	var forced error
	select {
	case <-done:
	case <-ctx.Done():
		forced = ctx.Err()
		e.cancel()
		<-done
	}
	e.cancel()
	e.bgWg.Wait()

	logger.Info("engine stopped")
	return forced
}

// Submit validates and stores a new task and makes it eligible for
// scheduling. A zero timeout takes the engine default.
func (e *Engine) Submit(request string, priority types.TaskPriority, timeout time.Duration) (*types.Task, error) {
	if e.stopped.Load() {
		return nil, types.NewValidationError("engine is shutting down")
	}

	task, err := e.store.Submit(request, priority, timeout)
	if err != nil {
		return nil, err
	}

	// Publish before enqueueing so subscribers see the pending state
	// before any event the worker emits for this task.
	e.publishTask(task)
	e.queue.Enqueue(task.ID, task.Priority)
	logger.Info("task %s submitted: priority=%s timeout=%s", task.ID, task.Priority, task.Timeout)
	return task, nil
}

// Task returns a snapshot of the task.
func (e *Engine) Task(taskID string) (*types.Task, error) {
	return e.store.Get(taskID)
}

// Tasks lists task snapshots, newest first, optionally filtered by status.
func (e *Engine) Tasks(status *types.TaskStatus, limit int) []*types.Task {
	return e.store.List(status, limit)
}

// Workflow returns the workflow view for a task. A task no worker has
// picked up yet reports both phases pending.
func (e *Engine) Workflow(taskID string) (*types.WorkflowStatus, error) {
	e.mu.Lock()
	rec, ok := e.workflows[taskID]
	e.mu.Unlock()
	if ok {
		return rec.snapshot(), nil
	}

	if _, err := e.store.Get(taskID); err != nil {
		return nil, err
	}
	return types.NewWorkflowStatus(taskID), nil
}

// Cancel requests cancellation of a task. A pending task is cancelled
// immediately; a running one has its flag raised and transitions once the
// driver reaches a suspension point. Cancelling a terminal task is a no-op
// returning the task as-is.
func (e *Engine) Cancel(taskID string) (*types.Task, error) {
	task, err := e.store.Get(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return task, nil
	}

	if e.queue.Remove(taskID) {
		cancelled, err := e.store.UpdateStatus(taskID, types.TaskStatusCancelled,
			store.WithCompletedNow(), store.WithError("cancelled by user"))
		if err != nil {
			return nil, err
		}
		e.publishTask(cancelled)
		logger.Info("task %s cancelled while pending", taskID)
		return cancelled, nil
	}

	// Already dequeued: flag the run and let the driver finish the
	// transition at its next suspension point.
	h := e.handleFor(taskID)
	h.cancelled.Store(true)
	logger.Info("task %s cancellation requested", taskID)
	return e.store.Get(taskID)
}

// Metrics returns a point-in-time metrics snapshot.
func (e *Engine) Metrics() types.MetricsSnapshot {
	if e.collector == nil {
		return types.MetricsSnapshot{Timestamp: time.Now()}
	}
	return e.collector.Snapshot()
}

// Subscribe attaches an event bus subscription.
func (e *Engine) Subscribe() *events.Subscription {
	return e.bus.Subscribe()
}

// ActiveWorkers returns the number of workers currently driving a task.
func (e *Engine) ActiveWorkers() int {
	return int(e.active.Load())
}

// QueueDepth returns the number of tasks waiting in the queue.
func (e *Engine) QueueDepth() int {
	return e.queue.Len()
}

func (e *Engine) worker(ctx context.Context, id int) {
	defer e.workerWg.Done()

	for {
		taskID, ok := e.queue.Dequeue()
		if !ok {
			logger.Debug("worker %d exiting", id)
			return
		}
		e.active.Add(1)
		e.runTask(ctx, taskID)
		e.active.Add(-1)
	}
}

// janitor periodically drops terminal tasks older than the retention
// window, together with their workflow records and stray handles.
func (e *Engine) janitor(ctx context.Context) {
	defer e.bgWg.Done()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.purgeExpired()
		}
	}
}

func (e *Engine) purgeExpired() int {
	cutoff := time.Now().Add(-e.cfg.TaskRetention)
	n := e.store.PurgeTerminalBefore(cutoff)
	if n > 0 {
		logger.Info("janitor purged %d tasks older than %s", n, e.cfg.TaskRetention)
	}

	e.mu.Lock()
	ids := make([]string, 0, len(e.workflows)+len(e.handles))
	for id := range e.workflows {
		ids = append(ids, id)
	}
	for id := range e.handles {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if _, err := e.store.Get(id); types.IsNotFound(err) {
			e.mu.Lock()
			delete(e.workflows, id)
			delete(e.handles, id)
			e.mu.Unlock()
		}
	}
	return n
}

// handleFor returns the run handle for the task, creating it on first use.
func (e *Engine) handleFor(taskID string) *runHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[taskID]
	if !ok {
		h = &runHandle{}
		e.handles[taskID] = h
	}
	return h
}

func (e *Engine) releaseHandle(taskID string) {
	e.mu.Lock()
	delete(e.handles, taskID)
	e.mu.Unlock()
}

// workflowFor returns the workflow record for the task, creating it on
// first use.
func (e *Engine) workflowFor(taskID string) *workflowRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.workflows[taskID]
	if !ok {
		rec = &workflowRecord{status: types.NewWorkflowStatus(taskID)}
		e.workflows[taskID] = rec
	}
	return rec
}

func (e *Engine) publishTask(task *types.Task) {
	e.bus.Publish(types.Event{
		Type:      types.EventTaskUpdate,
		Timestamp: time.Now(),
		Task:      task,
	})
}
