// Package planner derives execution plans from natural language requests.
// The primary implementation asks an LLM; a deterministic rule-based
// fallback covers deployments without model credentials.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"autoops/engine/pkg/logger"
	"autoops/engine/pkg/types"
)

// Config configures the LLM-backed planner.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// LLMPlanner asks a chat model for an execution plan.
type LLMPlanner struct {
	chatModel model.ChatModel
	timeout   time.Duration
}

// NewLLMPlanner builds the chat model client for the configured provider.
func NewLLMPlanner(ctx context.Context, cfg Config) (*LLMPlanner, error) {
	chatConfig := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case "openai":
			baseURL = "https://api.openai.com/v1"
		case "deepseek":
			baseURL = "https://api.deepseek.com/v1"
		case "azure":
			chatConfig.ByAzure = true
			chatConfig.APIVersion = "2024-06-01"
		}
	}
	if baseURL != "" {
		chatConfig.BaseURL = baseURL
	}
	if cfg.Temperature != 0 {
		temp := cfg.Temperature
		chatConfig.Temperature = &temp
	}

	chatModel, err := openai.NewChatModel(ctx, chatConfig)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LLMPlanner{chatModel: chatModel, timeout: timeout}, nil
}

// Plan asks the model for a plan and parses the JSON response. Model and
// parse failures are transient: another attempt may well succeed. A
// structurally recognizable but semantically bad plan is caught later by
// plan validation.
func (p *LLMPlanner) Plan(ctx context.Context, request string) (*types.ExecutionPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(fmt.Sprintf("Request: %s", request)),
	}

	resp, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, types.NewTransientError("model call failed", err)
	}

	plan, err := parsePlanResponse(resp.Content)
	if err != nil {
		logger.Warn("planner: unparseable model response: %v", err)
		return nil, types.NewTransientError("model returned an unparseable plan", err)
	}
	return plan, nil
}
