package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/steward/internal/taskqueue"
	"github.com/ShayCichocki/steward/pkg/models"
)

var (
	taskListAll    bool
	taskListStatus string
	taskMessage    string
	taskProof      string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and move tasks",
	Long: `Inspect the task board and move tasks through their lifecycle.

Allowed transitions:
  pending          -> in_progress, cancelled
  in_progress      -> waiting_confirm, done, failed, cancelled
  waiting_confirm  -> in_progress, cancelled
  failed           -> pending (retry, bounded by tasks.max_retries)`,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task and its subtasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskTransitionCmd = &cobra.Command{
	Use:   "transition <id> <status>",
	Short: "Move a task to a new status",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskTransition,
}

var taskRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Move a failed task back to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRetry,
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transitionTask(args[0], models.TaskStatusCancelled)
	},
}

var taskNextCmd = &cobra.Command{
	Use:   "next <procedure-task-id>",
	Short: "Run the next step of a procedure",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskNext,
}

func init() {
	taskListCmd.Flags().BoolVarP(&taskListAll, "all", "a", false, "Include finished tasks")
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Only tasks in this status")
	taskTransitionCmd.Flags().StringVarP(&taskMessage, "message", "m", "", "Result message to record")
	taskTransitionCmd.Flags().StringVar(&taskProof, "proof", "", "Evidence the result is real")

	taskCmd.AddCommand(taskListCmd, taskShowCmd, taskTransitionCmd, taskRetryCmd, taskCancelCmd, taskNextCmd)
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var filter models.TaskStatus
	if taskListStatus != "" {
		filter = models.TaskStatus(taskListStatus)
		if !filter.Valid() {
			return fmt.Errorf("unknown status %q", taskListStatus)
		}
	}

	shown := 0
	for _, t := range a.tasks.List() {
		switch {
		case filter != "" && t.Status != filter:
			continue
		case filter == "" && !taskListAll && !t.Status.IsActive():
			continue
		}
		printTaskLine(t, "")
		shown++
	}
	if shown == 0 {
		fmt.Println("No tasks.")
	}
	return nil
}

func printTaskLine(t *models.Task, indent string) {
	status := statusColor(t.Status).Sprintf("%-15s", t.Status)
	age := color.HiBlackString(humanizeAge(time.Since(t.UpdatedAt)))
	fmt.Printf("%s%s  %s  %s  %s\n", indent, t.ID, status, t.Title, age)
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.tasks.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", t.ID)
	fmt.Printf("Title:    %s\n", t.Title)
	fmt.Printf("Status:   %s\n", statusColor(t.Status).Sprint(t.Status))
	if t.Agent != "" {
		fmt.Printf("Agent:    %s\n", t.Agent)
	}
	if t.ParentID != "" {
		fmt.Printf("Parent:   %s (step %d)\n", t.ParentID, t.OrderIndex+1)
	}
	fmt.Printf("Retries:  %d/%d\n", t.RetryCount, t.MaxRetries)
	fmt.Printf("Created:  %s\n", t.CreatedAt.Local().Format(time.RFC1123))
	fmt.Printf("Updated:  %s\n", t.UpdatedAt.Local().Format(time.RFC1123))
	if r := t.Result; r != nil {
		fmt.Printf("Result:   %s\n", r.Message)
		if r.Proof != "" {
			fmt.Printf("Proof:    %s\n", r.Proof)
		}
	}
	if next := taskqueue.Allowed(t.Status); len(next) > 0 {
		names := make([]string, len(next))
		for i, s := range next {
			names[i] = string(s)
		}
		fmt.Printf("Next:     %s\n", color.HiBlackString(strings.Join(names, ", ")))
	}

	children := a.tasks.Children(t.ID)
	if len(children) > 0 {
		fmt.Println("\nSteps:")
		for _, c := range children {
			printTaskLine(c, "  ")
		}
	}
	return nil
}

func runTaskTransition(cmd *cobra.Command, args []string) error {
	to := models.TaskStatus(args[1])
	if !to.Valid() {
		return fmt.Errorf("unknown status %q", args[1])
	}
	return transitionTask(args[0], to)
}

func transitionTask(id string, to models.TaskStatus) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var result *models.TaskResult
	if taskMessage != "" || taskProof != "" {
		result = &models.TaskResult{
			Success: to == models.TaskStatusDone,
			Message: taskMessage,
			Proof:   taskProof,
		}
	}
	t, err := a.tasks.Transition(id, to, result)
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("%s is now %s", t.ID, t.Status), color.FgGreen)
	return nil
}

func runTaskRetry(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.tasks.Retry(args[0])
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("%s queued again (retry %d/%d)", t.ID, t.RetryCount, t.MaxRetries), color.FgGreen)
	return nil
}

func runTaskNext(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	out, err := a.orch.Advance(ctx, args[0])
	if err != nil {
		return err
	}
	writeOutcome(os.Stdout, out)
	return nil
}

func humanizeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
