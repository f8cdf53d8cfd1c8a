package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"autoops/engine/pkg/types"
)

var listStatus string

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and manage tasks on a running engine",
}

var taskGetCmd = &cobra.Command{
	Use:     "get <task-id>",
	Short:   "Show a task and its workflow",
	Args:    cobra.ExactArgs(1),
	Example: `  autoops task get 2f1c9e4a-...`,
	RunE:    runTaskGet,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	Example: `  autoops task list
  autoops task list --status executing`,
	RunE: runTaskList,
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCancel,
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskGetCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCancelCmd)

	taskCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "engine server URL")
	taskListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
}

func runTaskGet(cmd *cobra.Command, args []string) error {
	status, body, err := httpCall(fasthttp.MethodGet, serverURL+"/api/v1/tasks/"+args[0], nil)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if status != fasthttp.StatusOK {
		return apiError(status, body)
	}

	var task types.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	printTask(&task)

	status, body, err = httpCall(fasthttp.MethodGet, serverURL+"/api/v1/workflows/"+args[0], nil)
	if err != nil || status != fasthttp.StatusOK {
		return nil
	}
	var wf types.WorkflowStatus
	if err := json.Unmarshal(body, &wf); err != nil {
		return nil
	}
	fmt.Printf("  planning:  %s\n", wf.PlannerStatus)
	fmt.Printf("  execution: %s (%d results)\n", wf.ExecutorStatus, len(wf.ExecutionResults))
	for _, msg := range wf.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	url := serverURL + "/api/v1/tasks"
	if listStatus != "" {
		url += "?status=" + listStatus
	}

	status, body, err := httpCall(fasthttp.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if status != fasthttp.StatusOK {
		return apiError(status, body)
	}

	var list struct {
		Tasks []*types.Task `json:"tasks"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if list.Count == 0 {
		fmt.Println("no tasks")
		return nil
	}
	for _, task := range list.Tasks {
		fmt.Printf("%s  %-9s  %-8s  %s\n", task.ID, task.Status, task.Priority, task.Request)
	}
	return nil
}

func runTaskCancel(cmd *cobra.Command, args []string) error {
	status, body, err := httpCall(fasthttp.MethodDelete, serverURL+"/api/v1/tasks/"+args[0], nil)
	if err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	if status != fasthttp.StatusOK {
		return apiError(status, body)
	}

	var task types.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Printf("task %s is now %s\n", task.ID, task.Status)
	return nil
}

func printTask(task *types.Task) {
	fmt.Printf("task %s\n", task.ID)
	fmt.Printf("  request:  %s\n", task.Request)
	fmt.Printf("  status:   %s\n", task.Status)
	fmt.Printf("  priority: %s\n", task.Priority)
	fmt.Printf("  retries:  %d\n", task.RetryCount)
	if task.Error != "" {
		fmt.Printf("  error:    %s\n", task.Error)
	}
}
