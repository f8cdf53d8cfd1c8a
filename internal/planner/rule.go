package planner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"autoops/engine/pkg/types"
)

// RulePlanner is a deterministic keyword planner used when no model
// credentials are configured. It covers the common single-intent requests;
// anything it cannot recognize fails fatally rather than guessing.
type RulePlanner struct {
	namespace string
}

// NewRulePlanner creates a rule planner emitting operations in the given
// default namespace.
func NewRulePlanner(namespace string) *RulePlanner {
	if namespace == "" {
		namespace = "default"
	}
	return &RulePlanner{namespace: namespace}
}

var (
	replicasRe = regexp.MustCompile(`\b(\d+)\s*(?:replicas?|instances?|copies)?\b`)
	nameRe     = regexp.MustCompile(`\b(?:deploy|create|scale|delete|remove|restart|get|describe)\s+(?:the\s+)?([a-z0-9][a-z0-9-]*)\b`)
)

// Plan derives a plan from the request keywords.
func (p *RulePlanner) Plan(ctx context.Context, request string) (*types.ExecutionPlan, error) {
	lower := strings.ToLower(request)
	name := p.resourceName(lower)

	var ops []types.Operation
	var description string

	switch {
	case strings.Contains(lower, "scale"):
		replicas := "1"
		if m := replicasRe.FindStringSubmatch(lower); m != nil {
			replicas = m[1]
		}
		description = fmt.Sprintf("Scale deployment %s to %s replicas", name, replicas)
		ops = append(ops, p.operation(types.ActionScale, "deployment", name, nil,
			map[string]string{"replicas": replicas}))

	case strings.Contains(lower, "deploy") || strings.Contains(lower, "create"):
		description = fmt.Sprintf("Deploy %s", name)
		replicas := 1
		if m := replicasRe.FindStringSubmatch(lower); m != nil {
			fmt.Sscanf(m[1], "%d", &replicas)
		}
		ops = append(ops, p.operation(types.ActionCreate, "deployment", name,
			deploymentManifest(name, p.namespace, replicas), nil))
		if strings.Contains(lower, "service") || strings.Contains(lower, "expose") {
			description += " with a service"
			ops = append(ops, p.operation(types.ActionCreate, "service", name,
				serviceManifest(name, p.namespace), nil))
		}

	case strings.Contains(lower, "delete") || strings.Contains(lower, "remove"):
		description = fmt.Sprintf("Delete deployment %s", name)
		ops = append(ops, p.operation(types.ActionDelete, "deployment", name, nil, nil))

	case strings.Contains(lower, "restart"):
		description = fmt.Sprintf("Restart deployment %s", name)
		ops = append(ops, p.operation(types.ActionPatch, "deployment", name, nil,
			map[string]string{"restarted_at": time.Now().UTC().Format(time.RFC3339)}))

	case strings.Contains(lower, "list") || strings.Contains(lower, "show") ||
		strings.Contains(lower, "status"):
		description = "List pods"
		ops = append(ops, p.operation(types.ActionList, "pod", "", nil, nil))

	case strings.Contains(lower, "get") || strings.Contains(lower, "describe"):
		description = fmt.Sprintf("Get deployment %s", name)
		ops = append(ops, p.operation(types.ActionGet, "deployment", name, nil, nil))

	default:
		return nil, types.NewFatalError(
			fmt.Sprintf("cannot derive a plan from request: %q", request), nil)
	}

	return &types.ExecutionPlan{
		ID:                uuid.New().String(),
		Description:       description,
		Operations:        ops,
		EstimatedDuration: time.Duration(len(ops)) * 30 * time.Second,
		CreatedAt:         time.Now(),
	}, nil
}

// resourceName pulls the word after the action verb, falling back to "app".
func (p *RulePlanner) resourceName(lower string) string {
	skip := map[string]bool{
		"a": true, "an": true, "new": true, "all": true,
		"deployment": true, "service": true, "pod": true, "pods": true,
	}
	if m := nameRe.FindStringSubmatch(lower); m != nil && !skip[m[1]] {
		return m[1]
	}
	return "app"
}

func (p *RulePlanner) operation(action types.OperationAction, resourceType, name string,
	manifest map[string]any, params map[string]string) types.Operation {
	return types.Operation{
		ID:           uuid.New().String(),
		Action:       action,
		ResourceType: resourceType,
		ResourceName: name,
		Namespace:    p.namespace,
		Manifest:     manifest,
		Parameters:   params,
	}
}

func deploymentManifest(name, namespace string, replicas int) map[string]any {
	return map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]any{
			"name":      name,
			"namespace": namespace,
			"labels":    map[string]any{"app": name},
		},
		"spec": map[string]any{
			"replicas": replicas,
			"selector": map[string]any{
				"matchLabels": map[string]any{"app": name},
			},
			"template": map[string]any{
				"metadata": map[string]any{
					"labels": map[string]any{"app": name},
				},
				"spec": map[string]any{
					"containers": []any{
						map[string]any{
							"name":  name,
							"image": fmt.Sprintf("%s:latest", name),
							"ports": []any{map[string]any{"containerPort": 80}},
						},
					},
				},
			},
		},
	}
}

func serviceManifest(name, namespace string) map[string]any {
	return map[string]any{
		"apiVersion": "v1",
		"kind":       "Service",
		"metadata": map[string]any{
			"name":      name,
			"namespace": namespace,
		},
		"spec": map[string]any{
			"selector": map[string]any{"app": name},
			"ports": []any{
				map[string]any{"port": 80, "targetPort": 80},
			},
		},
	}
}
