package kube

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ohler55/ojg/oj"
	"github.com/valyala/fasthttp"

	"autoops/engine/pkg/types"
)

// Executor performs plan operations against the API server, one HTTP call
// per operation.
type Executor struct {
	client *Client
}

// NewExecutor wraps a client in the engine's executor contract.
func NewExecutor(client *Client) *Executor {
	return &Executor{client: client}
}

// Execute maps the operation onto an API server request. Transport
// failures and retryable status codes come back as transient errors, the
// rest as fatal.
func (e *Executor) Execute(ctx context.Context, op *types.Operation) (map[string]any, error) {
	method, path, contentType, body, err := e.buildRequest(op)
	if err != nil {
		return nil, types.NewFatalError(fmt.Sprintf("cannot build request for %s %s", op.Action, op.ResourceType), err)
	}

	status, respBody, err := e.client.do(ctx, method, path, contentType, body)
	if err != nil {
		return nil, types.NewTransientError(
			fmt.Sprintf("API server unreachable for %s %s", op.Action, op.ResourceType), err)
	}

	if status >= 400 {
		return nil, classifyStatus(op, status, respBody)
	}

	result := map[string]any{"status_code": status}
	if parsed, err := oj.Parse(respBody); err == nil {
		result["response"] = parsed
	} else if len(respBody) > 0 {
		result["response"] = string(respBody)
	}
	return result, nil
}

func (e *Executor) buildRequest(op *types.Operation) (method, path, contentType string, body []byte, err error) {
	name := op.ResourceName
	collection := op.Action == types.ActionCreate || op.Action == types.ActionList
	if collection {
		name = ""
	} else if name == "" {
		return "", "", "", nil, fmt.Errorf("%s requires a resource name", op.Action)
	}

	path, err = e.client.resourcePath(op.ResourceType, op.Namespace, name)
	if err != nil {
		return "", "", "", nil, err
	}
	contentType = "application/json"

	switch op.Action {
	case types.ActionCreate:
		method = fasthttp.MethodPost
		body, err = marshalManifest(op)
	case types.ActionUpdate:
		method = fasthttp.MethodPut
		body, err = marshalManifest(op)
	case types.ActionPatch:
		method = fasthttp.MethodPatch
		contentType = "application/strategic-merge-patch+json"
		body, err = patchBody(op)
	case types.ActionDelete:
		method = fasthttp.MethodDelete
	case types.ActionScale:
		method = fasthttp.MethodPut
		path += "/scale"
		body, err = scaleBody(op)
	case types.ActionGet, types.ActionList:
		method = fasthttp.MethodGet
	default:
		err = fmt.Errorf("unsupported action: %s", op.Action)
	}
	return method, path, contentType, body, err
}

func marshalManifest(op *types.Operation) ([]byte, error) {
	if op.Manifest == nil {
		return nil, fmt.Errorf("%s requires a manifest", op.Action)
	}
	return oj.Marshal(op.Manifest)
}

// patchBody uses the operation manifest when present; a restart request
// carries only a restarted_at parameter, which becomes the usual restart
// annotation on the pod template.
func patchBody(op *types.Operation) ([]byte, error) {
	if op.Manifest != nil {
		return oj.Marshal(op.Manifest)
	}
	restartedAt, ok := op.Parameters["restarted_at"]
	if !ok {
		return nil, fmt.Errorf("patch requires a manifest or a restarted_at parameter")
	}
	patch := map[string]any{
		"spec": map[string]any{
			"template": map[string]any{
				"metadata": map[string]any{
					"annotations": map[string]any{
						"kubectl.kubernetes.io/restartedAt": restartedAt,
					},
				},
			},
		},
	}
	return oj.Marshal(patch)
}

func scaleBody(op *types.Operation) ([]byte, error) {
	raw, ok := op.Parameters["replicas"]
	if !ok {
		return nil, fmt.Errorf("scale requires a replicas parameter")
	}
	replicas, err := strconv.Atoi(raw)
	if err != nil || replicas < 0 {
		return nil, fmt.Errorf("invalid replicas value: %q", raw)
	}

	scale := map[string]any{
		"apiVersion": "autoscaling/v1",
		"kind":       "Scale",
		"metadata": map[string]any{
			"name":      op.ResourceName,
			"namespace": op.Namespace,
		},
		"spec": map[string]any{"replicas": replicas},
	}
	return oj.Marshal(scale)
}

// classifyStatus sorts API server error statuses into transient and fatal.
// Throttling and server-side failures are worth retrying; client errors
// such as conflicts and invalid manifests are not.
func classifyStatus(op *types.Operation, status int, body []byte) error {
	msg := fmt.Sprintf("%s %s/%s returned HTTP %d: %s",
		op.Action, op.ResourceType, op.ResourceName, status, statusReason(body))

	switch {
	case status == fasthttp.StatusRequestTimeout,
		status == fasthttp.StatusTooManyRequests,
		status >= 500:
		return types.NewTransientError(msg, nil)
	default:
		return types.NewFatalError(msg, nil)
	}
}

// statusReason pulls the message out of a Kubernetes Status body.
func statusReason(body []byte) string {
	parsed, err := oj.Parse(body)
	if err != nil {
		return string(body)
	}
	doc, ok := parsed.(map[string]any)
	if !ok {
		return string(body)
	}
	if msg, ok := doc["message"].(string); ok && msg != "" {
		return msg
	}
	return string(body)
}
