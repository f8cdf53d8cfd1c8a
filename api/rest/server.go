// Package rest provides the REST API surface of the orchestration engine.
package rest

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"autoops/engine/internal/events"
	"autoops/engine/pkg/types"
)

// Engine is the engine surface the API consumes.
type Engine interface {
	Submit(request string, priority types.TaskPriority, timeout time.Duration) (*types.Task, error)
	Task(taskID string) (*types.Task, error)
	Tasks(status *types.TaskStatus, limit int) []*types.Task
	Cancel(taskID string) (*types.Task, error)
	Workflow(taskID string) (*types.WorkflowStatus, error)
	Metrics() types.MetricsSnapshot
	Subscribe() *events.Subscription
}

// Config holds the configuration for the REST API server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	Address string `yaml:"address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// EnableCORS enables Cross-Origin Resource Sharing.
	EnableCORS bool `yaml:"enable_cors"`

	// EnableEvents enables the WebSocket event stream endpoint.
	EnableEvents bool `yaml:"enable_events"`
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      ":8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		EnableCORS:   true,
		EnableEvents: true,
	}
}

// Server is the REST API server.
type Server struct {
	app    *fiber.App
	engine Engine
	config *Config
}

// NewServer creates a REST API server over the given engine.
func NewServer(engine Engine, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		ErrorHandler: customErrorHandler,
		AppName:      "AutoOps API",
	})

	server := &Server{
		app:    app,
		engine: engine,
		config: config,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	if s.config.EnableCORS {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,DELETE,OPTIONS",
			AllowHeaders: "Origin,Content-Type,Accept,Authorization",
			MaxAge:       86400,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/ready", s.readyCheck)

	api := s.app.Group("/api/v1")

	api.Post("/tasks", s.submitTask)
	api.Get("/tasks", s.listTasks)
	api.Get("/tasks/:id", s.getTask)
	api.Delete("/tasks/:id", s.cancelTask)

	api.Get("/workflows/:id", s.getWorkflow)
	api.Get("/metrics", s.getMetrics)

	if s.config.EnableEvents {
		s.setupEventRoutes()
	}
}

// Start starts the REST API server.
func (s *Server) Start() error {
	return s.app.Listen(s.config.Address)
}

// StartWithContext starts the server and shuts it down when ctx is done.
func (s *Server) StartWithContext(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.app.Listen(s.config.Address)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   fmt.Sprintf("error_%d", code),
		Message: message,
	})
}
