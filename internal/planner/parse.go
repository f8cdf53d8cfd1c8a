package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"

	"autoops/engine/pkg/types"
)

// parsePlanResponse turns a model response into an ExecutionPlan. Models
// sometimes wrap the JSON in a markdown code fence, so fences are stripped
// before parsing. Actions and resource types are normalized to lower case.
func parsePlanResponse(content string) (*types.ExecutionPlan, error) {
	raw, err := oj.ParseString(stripCodeFence(content))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON in plan response: %w", err)
	}

	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("plan response is not a JSON object")
	}

	description, ok := doc["description"].(string)
	if !ok || description == "" {
		return nil, fmt.Errorf("plan response missing 'description'")
	}
	rawOps, ok := doc["operations"].([]any)
	if !ok {
		return nil, fmt.Errorf("plan response missing 'operations'")
	}

	plan := &types.ExecutionPlan{
		ID:          uuid.New().String(),
		Description: description,
		Operations:  make([]types.Operation, 0, len(rawOps)),
		CreatedAt:   time.Now(),
	}

	if secs, ok := asInt(doc["estimated_duration"]); ok {
		plan.EstimatedDuration = time.Duration(secs) * time.Second
	}

	for i, rawOp := range rawOps {
		opDoc, ok := rawOp.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("operation %d is not a JSON object", i)
		}
		op, err := parseOperation(opDoc)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		plan.Operations = append(plan.Operations, op)
	}
	return plan, nil
}

func parseOperation(doc map[string]any) (types.Operation, error) {
	action, _ := doc["action"].(string)
	resourceType, _ := doc["resource_type"].(string)

	op := types.Operation{
		ID:           uuid.New().String(),
		Action:       types.OperationAction(strings.ToLower(action)),
		ResourceType: strings.ToLower(resourceType),
		Namespace:    "default",
	}
	if !op.Action.IsValid() {
		return op, fmt.Errorf("unrecognized action %q", action)
	}
	if !types.IsKnownResourceType(op.ResourceType) {
		return op, fmt.Errorf("unrecognized resource type %q", resourceType)
	}

	if name, ok := doc["resource_name"].(string); ok {
		op.ResourceName = name
	}
	if ns, ok := doc["namespace"].(string); ok && ns != "" {
		op.Namespace = ns
	}
	if manifest, ok := doc["manifest"].(map[string]any); ok {
		op.Manifest = manifest
	}
	if params, ok := doc["parameters"].(map[string]any); ok {
		op.Parameters = make(map[string]string, len(params))
		for k, v := range params {
			op.Parameters[k] = fmt.Sprintf("%v", v)
		}
	}
	return op, nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// asInt accepts the numeric shapes ojg may produce for a JSON number.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
