package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"autoops/engine/pkg/types"
)

// healthCheck handles GET /health
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// readyCheck handles GET /ready
func (s *Server) readyCheck(c *fiber.Ctx) error {
	ready := s.engine != nil
	status := "ready"
	if !ready {
		status = "not_ready"
	}

	return c.JSON(ReadyResponse{
		Ready:     ready,
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// submitTask handles POST /api/v1/tasks
func (s *Server) submitTask(c *fiber.Ctx) error {
	var req SubmitTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
		})
	}

	priority := types.TaskPriority(req.Priority)
	if req.Priority == "" {
		priority = types.TaskPriorityNormal
	}

	task, err := s.engine.Submit(req.Request, priority, time.Duration(req.TimeoutSeconds)*time.Second)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(task)
}

// listTasks handles GET /api/v1/tasks
func (s *Server) listTasks(c *fiber.Ctx) error {
	var statusFilter *types.TaskStatus
	if raw := c.Query("status"); raw != "" {
		status := types.TaskStatus(raw)
		if !status.IsValid() {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid_request",
				Message: "Unrecognized status filter: " + raw,
			})
		}
		statusFilter = &status
	}

	limit := c.QueryInt("limit", 0)
	tasks := s.engine.Tasks(statusFilter, limit)
	return c.JSON(TaskListResponse{Tasks: tasks, Count: len(tasks)})
}

// getTask handles GET /api/v1/tasks/:id
func (s *Server) getTask(c *fiber.Ctx) error {
	task, err := s.engine.Task(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(task)
}

// cancelTask handles DELETE /api/v1/tasks/:id
func (s *Server) cancelTask(c *fiber.Ctx) error {
	task, err := s.engine.Cancel(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(task)
}

// getWorkflow handles GET /api/v1/workflows/:id
func (s *Server) getWorkflow(c *fiber.Ctx) error {
	wf, err := s.engine.Workflow(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(wf)
}

// getMetrics handles GET /api/v1/metrics
func (s *Server) getMetrics(c *fiber.Ctx) error {
	return c.JSON(s.engine.Metrics())
}

// errorJSON maps engine errors onto HTTP statuses.
func errorJSON(c *fiber.Ctx, err error) error {
	switch {
	case types.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case types.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}
