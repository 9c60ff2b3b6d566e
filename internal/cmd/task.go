package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/kestrelhq/kestrel/internal/taskboard"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage a team's shared task board",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <team> <subject>",
	Short: "Add a task to a team's board",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskCreate,
}

var taskListCmd = &cobra.Command{
	Use:   "list <team>",
	Short: "List a team's tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskList,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <team> <id>",
	Short: "Update a task's status, owner, or description",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskUpdate,
}

var (
	taskDescription string
	taskBlockedBy   []int
	taskFilterState string
	taskFilterOwner string
	taskNewStatus   string
	taskNewOwner    string
	taskNewDesc     string
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd, taskListCmd, taskUpdateCmd)

	taskCreateCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Task description")
	taskCreateCmd.Flags().IntSliceVar(&taskBlockedBy, "blocked-by", nil, "Task IDs this task waits on")

	taskListCmd.Flags().StringVar(&taskFilterState, "status", "", "Filter by status (open, in_progress, completed, blocked)")
	taskListCmd.Flags().StringVar(&taskFilterOwner, "owner", "", "Filter by owner")

	taskUpdateCmd.Flags().StringVar(&taskNewStatus, "status", "", "New status")
	taskUpdateCmd.Flags().StringVar(&taskNewOwner, "owner", "", "New owner")
	taskUpdateCmd.Flags().StringVar(&taskNewDesc, "description", "", "New description")
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	task, err := rt.Board.Create(args[0], args[1], taskDescription, taskBlockedBy)
	if err != nil {
		return err
	}
	color.Green("task #%d created", task.ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	filter := taskboard.Filter{
		Status: taskboard.Status(taskFilterState),
		Owner:  taskFilterOwner,
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return fmt.Errorf("unknown status %q", taskFilterState)
	}

	tasks, err := rt.Board.List(args[0], filter)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	for _, t := range tasks {
		fmt.Printf("#%-4d %-12s %-12s %s%s\n",
			t.ID, statusColor(t.Status), t.Owner, t.Subject, blockedSuffix(t.BlockedBy))
	}
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("task id must be a number, got %q", args[1])
	}

	var upd taskboard.Update
	if cmd.Flags().Changed("status") {
		status := taskboard.Status(taskNewStatus)
		if !status.IsValid() {
			return fmt.Errorf("unknown status %q", taskNewStatus)
		}
		upd.Status = &status
	}
	if cmd.Flags().Changed("owner") {
		upd.Owner = &taskNewOwner
	}
	if cmd.Flags().Changed("description") {
		upd.Description = &taskNewDesc
	}

	task, err := rt.Board.Update(args[0], id, upd)
	if err != nil {
		return err
	}
	color.Green("task #%d is %s", task.ID, task.Status)
	return nil
}

func statusColor(s taskboard.Status) string {
	switch s {
	case taskboard.StatusCompleted:
		return color.GreenString(s.String())
	case taskboard.StatusInProgress:
		return color.CyanString(s.String())
	case taskboard.StatusBlocked:
		return color.RedString(s.String())
	default:
		return s.String()
	}
}

func blockedSuffix(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return fmt.Sprintf("  (waits on %s)", strings.Join(parts, ", "))
}
