package kube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoops/engine/pkg/types"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        map[string]any
}

// newTestExecutor runs a stub API server and returns an executor pointed
// at it plus a capture slot for the last request.
func newTestExecutor(t *testing.T, status int, response string) (*Executor, *recordedRequest) {
	t.Helper()

	last := &recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Method = r.Method
		last.Path = r.URL.Path
		last.ContentType = r.Header.Get("Content-Type")
		last.Body = nil
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &last.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:   server.URL,
		Namespace: "default",
		Timeout:   2 * time.Second,
	})
	return NewExecutor(client), last
}

func TestExecuteCreate(t *testing.T) {
	exec, last := newTestExecutor(t, http.StatusCreated, `{"kind": "Deployment", "metadata": {"name": "nginx"}}`)

	op := &types.Operation{
		ID:           "op-1",
		Action:       types.ActionCreate,
		ResourceType: "deployment",
		ResourceName: "nginx",
		Namespace:    "web",
		Manifest:     map[string]any{"kind": "Deployment"},
	}

	result, err := exec.Execute(context.Background(), op)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/apis/apps/v1/namespaces/web/deployments", last.Path)
	assert.Equal(t, "application/json", last.ContentType)
	assert.Equal(t, "Deployment", last.Body["kind"])
	assert.Equal(t, http.StatusCreated, result["status_code"])
	require.Contains(t, result, "response")
}

func TestExecuteScale(t *testing.T) {
	exec, last := newTestExecutor(t, http.StatusOK, `{"kind": "Scale"}`)

	op := &types.Operation{
		Action:       types.ActionScale,
		ResourceType: "deployment",
		ResourceName: "nginx",
		Namespace:    "web",
		Parameters:   map[string]string{"replicas": "5"},
	}

	_, err := exec.Execute(context.Background(), op)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, "/apis/apps/v1/namespaces/web/deployments/nginx/scale", last.Path)
	spec, ok := last.Body["spec"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 5, spec["replicas"])
}

func TestExecuteRestartPatch(t *testing.T) {
	exec, last := newTestExecutor(t, http.StatusOK, `{}`)

	op := &types.Operation{
		Action:       types.ActionPatch,
		ResourceType: "deployment",
		ResourceName: "worker",
		Namespace:    "default",
		Parameters:   map[string]string{"restarted_at": "2026-01-02T03:04:05Z"},
	}

	_, err := exec.Execute(context.Background(), op)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, last.Method)
	assert.Equal(t, "application/strategic-merge-patch+json", last.ContentType)
	assert.NotNil(t, last.Body["spec"])
}

func TestExecuteDeleteAndGetAndList(t *testing.T) {
	exec, last := newTestExecutor(t, http.StatusOK, `{"items": []}`)

	del := &types.Operation{Action: types.ActionDelete, ResourceType: "pod", ResourceName: "web-0"}
	_, err := exec.Execute(context.Background(), del)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, "/api/v1/namespaces/default/pods/web-0", last.Path)

	get := &types.Operation{Action: types.ActionGet, ResourceType: "pod", ResourceName: "web-0"}
	_, err = exec.Execute(context.Background(), get)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, last.Method)

	list := &types.Operation{Action: types.ActionList, ResourceType: "pod"}
	_, err = exec.Execute(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/namespaces/default/pods", last.Path)
}

func TestExecuteClassifiesServerErrors(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusConflict, false},
		{http.StatusUnprocessableEntity, false},
	}

	for _, tc := range cases {
		exec, _ := newTestExecutor(t, tc.status, `{"kind": "Status", "message": "boom"}`)
		op := &types.Operation{Action: types.ActionGet, ResourceType: "pod", ResourceName: "web-0"}

		_, err := exec.Execute(context.Background(), op)
		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.transient, types.IsTransient(err), "status %d", tc.status)
		assert.Contains(t, err.Error(), "boom")
	}
}

func TestExecuteUnreachableServerIsTransient(t *testing.T) {
	client := NewClient(Config{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	})
	exec := NewExecutor(client)

	op := &types.Operation{Action: types.ActionGet, ResourceType: "pod", ResourceName: "web-0"}
	_, err := exec.Execute(context.Background(), op)
	require.Error(t, err)
	assert.True(t, types.IsTransient(err))
}

func TestExecuteRejectsBadOperations(t *testing.T) {
	exec, _ := newTestExecutor(t, http.StatusOK, `{}`)

	missingName := &types.Operation{Action: types.ActionDelete, ResourceType: "pod"}
	_, err := exec.Execute(context.Background(), missingName)
	require.Error(t, err)
	assert.False(t, types.IsTransient(err))

	missingManifest := &types.Operation{Action: types.ActionCreate, ResourceType: "pod", ResourceName: "x"}
	_, err = exec.Execute(context.Background(), missingManifest)
	require.Error(t, err)
	assert.False(t, types.IsTransient(err))

	badReplicas := &types.Operation{
		Action: types.ActionScale, ResourceType: "deployment", ResourceName: "x",
		Parameters: map[string]string{"replicas": "many"},
	}
	_, err = exec.Execute(context.Background(), badReplicas)
	require.Error(t, err)
	assert.False(t, types.IsTransient(err))
}
