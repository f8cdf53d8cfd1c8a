package rest

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoops/engine/internal/events"
	"autoops/engine/pkg/types"
)

// mockEngine implements Engine for handler tests.
type mockEngine struct {
	bus   *events.Bus
	tasks map[string]*types.Task
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		bus:   events.NewBus(),
		tasks: make(map[string]*types.Task),
	}
}

func (m *mockEngine) Submit(request string, priority types.TaskPriority, timeout time.Duration) (*types.Task, error) {
	if request == "" {
		return nil, types.NewValidationError("request must not be empty")
	}
	if !priority.IsValid() {
		return nil, types.NewValidationError("unrecognized priority: %s", priority)
	}
	task := &types.Task{
		ID:        uuid.New().String(),
		Request:   request,
		Priority:  priority,
		Status:    types.TaskStatusPending,
		Timeout:   timeout,
		CreatedAt: time.Now(),
	}
	m.tasks[task.ID] = task
	return task, nil
}

func (m *mockEngine) Task(taskID string) (*types.Task, error) {
	if task, ok := m.tasks[taskID]; ok {
		return task, nil
	}
	return nil, types.NewNotFoundError(taskID)
}

func (m *mockEngine) Tasks(status *types.TaskStatus, limit int) []*types.Task {
	out := make([]*types.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		if status != nil && task.Status != *status {
			continue
		}
		out = append(out, task)
	}
	return out
}

func (m *mockEngine) Cancel(taskID string) (*types.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, types.NewNotFoundError(taskID)
	}
	if !task.Status.IsTerminal() {
		task.Status = types.TaskStatusCancelled
	}
	return task, nil
}

func (m *mockEngine) Workflow(taskID string) (*types.WorkflowStatus, error) {
	if _, ok := m.tasks[taskID]; !ok {
		return nil, types.NewNotFoundError(taskID)
	}
	return types.NewWorkflowStatus(taskID), nil
}

func (m *mockEngine) Metrics() types.MetricsSnapshot {
	return types.MetricsSnapshot{
		TotalTasks: len(m.tasks),
		Timestamp:  time.Now(),
	}
}

func (m *mockEngine) Subscribe() *events.Subscription {
	return m.bus.Subscribe()
}

func setupServerTest() (*Server, *mockEngine) {
	engine := newMockEngine()
	server := NewServer(engine, nil)
	return server, engine
}

func decodeBody(t *testing.T, r io.Reader, out any) {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestHealthCheck(t *testing.T) {
	server, _ := setupServerTest()

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body HealthResponse
	decodeBody(t, resp.Body, &body)
	assert.Equal(t, "healthy", body.Status)
}

func TestReadyCheck(t *testing.T) {
	server, _ := setupServerTest()

	req := httptest.NewRequest("GET", "/ready", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body ReadyResponse
	decodeBody(t, resp.Body, &body)
	assert.True(t, body.Ready)
}

func TestSubmitTask(t *testing.T) {
	server, _ := setupServerTest()

	payload := `{"request": "deploy nginx", "priority": "high", "timeout_seconds": 120}`
	req := httptest.NewRequest("POST", "/api/v1/tasks", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)

	var task types.Task
	decodeBody(t, resp.Body, &task)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, types.TaskPriorityHigh, task.Priority)
	assert.Equal(t, types.TaskStatusPending, task.Status)
}

func TestSubmitTaskDefaultsPriority(t *testing.T) {
	server, _ := setupServerTest()

	req := httptest.NewRequest("POST", "/api/v1/tasks", strings.NewReader(`{"request": "deploy nginx"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)

	var task types.Task
	decodeBody(t, resp.Body, &task)
	assert.Equal(t, types.TaskPriorityNormal, task.Priority)
}

func TestSubmitTaskValidation(t *testing.T) {
	server, _ := setupServerTest()

	cases := map[string]string{
		"empty request": `{"request": ""}`,
		"bad priority":  `{"request": "deploy nginx", "priority": "urgent"}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/tasks", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, 400, resp.StatusCode)

			var body ErrorResponse
			decodeBody(t, resp.Body, &body)
			assert.Equal(t, "invalid_request", body.Error)
		})
	}
}

func TestGetTask(t *testing.T) {
	server, engine := setupServerTest()
	task, err := engine.Submit("deploy nginx", types.TaskPriorityNormal, 0)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/tasks/"+task.ID, nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got types.Task
	decodeBody(t, resp.Body, &got)
	assert.Equal(t, task.ID, got.ID)
}

func TestGetTaskNotFound(t *testing.T) {
	server, _ := setupServerTest()

	req := httptest.NewRequest("GET", "/api/v1/tasks/missing", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	var body ErrorResponse
	decodeBody(t, resp.Body, &body)
	assert.Equal(t, "not_found", body.Error)
}

func TestListTasks(t *testing.T) {
	server, engine := setupServerTest()
	_, err := engine.Submit("deploy nginx", types.TaskPriorityNormal, 0)
	require.NoError(t, err)
	_, err = engine.Submit("scale nginx to 3", types.TaskPriorityHigh, 0)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body TaskListResponse
	decodeBody(t, resp.Body, &body)
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Tasks, 2)
}

func TestListTasksRejectsBadStatusFilter(t *testing.T) {
	server, _ := setupServerTest()

	req := httptest.NewRequest("GET", "/api/v1/tasks?status=exploded", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCancelTask(t *testing.T) {
	server, engine := setupServerTest()
	task, err := engine.Submit("deploy nginx", types.TaskPriorityNormal, 0)
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/v1/tasks/"+task.ID, nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got types.Task
	decodeBody(t, resp.Body, &got)
	assert.Equal(t, types.TaskStatusCancelled, got.Status)
}

func TestGetWorkflow(t *testing.T) {
	server, engine := setupServerTest()
	task, err := engine.Submit("deploy nginx", types.TaskPriorityNormal, 0)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/workflows/"+task.ID, nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var wf types.WorkflowStatus
	decodeBody(t, resp.Body, &wf)
	assert.Equal(t, task.ID, wf.RequestID)
	assert.Equal(t, types.PhasePending, wf.PlannerStatus)
}

func TestGetMetrics(t *testing.T) {
	server, engine := setupServerTest()
	_, err := engine.Submit("deploy nginx", types.TaskPriorityNormal, 0)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/metrics", nil)
	resp, err := server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var snap types.MetricsSnapshot
	decodeBody(t, resp.Body, &snap)
	assert.Equal(t, 1, snap.TotalTasks)
}
