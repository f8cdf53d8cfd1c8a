package config

import (
	"fmt"
	"strings"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all configuration problems found.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values. All problems are
// collected and reported together.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Server.Address == "" {
		errs = append(errs, ValidationError{"server.address", "must not be empty"})
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, ValidationError{"server.read_timeout", "must not be negative"})
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, ValidationError{"server.write_timeout", "must not be negative"})
	}

	if c.Engine.Workers <= 0 {
		errs = append(errs, ValidationError{"engine.workers", "must be positive"})
	}
	if c.Engine.DefaultTimeout <= 0 {
		errs = append(errs, ValidationError{"engine.default_timeout", "must be positive"})
	}
	if c.Engine.MaxRetries < 0 {
		errs = append(errs, ValidationError{"engine.max_retries", "must not be negative"})
	}
	if c.Engine.BackoffBase <= 0 {
		errs = append(errs, ValidationError{"engine.backoff_base", "must be positive"})
	}
	if c.Engine.BackoffMax < c.Engine.BackoffBase {
		errs = append(errs, ValidationError{"engine.backoff_max", "must not be less than backoff_base"})
	}
	if c.Engine.MetricsInterval <= 0 {
		errs = append(errs, ValidationError{"engine.metrics_interval", "must be positive"})
	}
	if c.Engine.TaskRetention <= 0 {
		errs = append(errs, ValidationError{"engine.task_retention", "must be positive"})
	}

	if c.Planner.Timeout <= 0 {
		errs = append(errs, ValidationError{"planner.timeout", "must be positive"})
	}
	if c.Planner.APIKey != "" && c.Planner.Model == "" {
		errs = append(errs, ValidationError{"planner.model", "must be set when api_key is configured"})
	}

	if c.Kubernetes.APIServer == "" {
		errs = append(errs, ValidationError{"kubernetes.api_server", "must not be empty"})
	}
	if c.Kubernetes.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{"kubernetes.request_timeout", "must be positive"})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{"logging.level", "must be one of debug, info, warn, error"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
