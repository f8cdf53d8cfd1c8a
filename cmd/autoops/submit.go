package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"autoops/engine/pkg/types"
)

var (
	serverURL      string
	submitPriority string
	submitTimeout  time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit <request>",
	Short: "Submit a task to a running engine",
	Example: `  autoops submit "deploy nginx with 3 replicas"
  autoops submit --priority critical "scale api to 10 replicas"
  autoops submit --timeout 10m "delete the staging namespace"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "engine server URL")
	submitCmd.Flags().StringVar(&submitPriority, "priority", "normal", "task priority (low, normal, high, critical)")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 0, "task wall-clock timeout (0 uses the server default)")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	payload, err := json.Marshal(map[string]any{
		"request":         strings.Join(args, " "),
		"priority":        submitPriority,
		"timeout_seconds": int(submitTimeout.Seconds()),
	})
	if err != nil {
		return err
	}

	status, body, err := httpCall(fasthttp.MethodPost, serverURL+"/api/v1/tasks", payload)
	if err != nil {
		return fmt.Errorf("submit task: %w", err)
	}
	if status != fasthttp.StatusAccepted {
		return apiError(status, body)
	}

	var task types.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("task %s submitted (priority %s)\n", task.ID, task.Priority)
	fmt.Printf("watch it: autoops task get %s\n", task.ID)
	return nil
}

// httpCall performs one JSON request and returns the status and body copy.
func httpCall(method, url string, body []byte) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	if len(body) > 0 {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := fasthttp.DoTimeout(req, resp, 10*time.Second); err != nil {
		return 0, nil, err
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return resp.StatusCode(), out, nil
}

func apiError(status int, body []byte) error {
	var er struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		return fmt.Errorf("server returned %d: %s", status, er.Message)
	}
	return fmt.Errorf("server returned %d", status)
}
