// Package config provides configuration loading for the orchestration
// engine from defaults, YAML files, environment variables, and
// command-line overrides, in that precedence order.
package config
