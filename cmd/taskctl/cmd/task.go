package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nulltasker/nulltasker/pkg/client"
)

var (
	taskServer   string
	taskProject  string
	taskTitle    string
	taskPriority string
	taskID       string
)

// taskCmd represents the task command group
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Task commands against a running server",
	Long: `Commands for working with tasks over the REST API of a running
NullTasker server. Run 'taskctl login' first.

Examples:
  # List your visible tasks
  taskctl task list

  # List tasks in one project
  taskctl task list --project <project-id>

  # Create a task
  taskctl task create --project <project-id> --title "Fix bug" --priority high

  # Mark a task done
  taskctl task done --id <task-id>`,
}

// reportSessionExpired converts the client sentinel into a friendlier
// CLI message.
func reportSessionExpired(err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		return fmt.Errorf("not logged in or session expired; run 'taskctl login'")
	}
	return err
}

// taskListCmd lists visible tasks
var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newRemoteClient(taskServer)
		if err != nil {
			return err
		}

		list, err := c.ListTickets(context.Background(), taskProject)
		if err != nil {
			return reportSessionExpired(err)
		}

		if len(list) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-30s  %-12s  %-8s  %s\n",
			"ID", "TITLE", "STATUS", "PRIORITY", "PROGRESS")
		fmt.Println(strings.Repeat("-", 100))

		for _, t := range list {
			fmt.Printf("%-36s  %-30s  %-12s  %-8s  %d%%\n",
				t.ID, t.Title, t.Status, t.Priority, t.Progress)
		}
		fmt.Printf("\nTotal: %d task(s)\n", len(list))

		return nil
	},
}

// taskCreateCmd creates a task
var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskProject == "" {
			return fmt.Errorf("--project is required")
		}
		if taskTitle == "" {
			return fmt.Errorf("--title is required")
		}

		c, err := newRemoteClient(taskServer)
		if err != nil {
			return err
		}

		req := &client.TicketRequest{
			Project: taskProject,
			Title:   &taskTitle,
		}
		if taskPriority != "" {
			req.Priority = &taskPriority
		}

		ticket, err := c.CreateTicket(context.Background(), req)
		if err != nil {
			return reportSessionExpired(err)
		}

		fmt.Printf("Task created: %s (%s)\n", ticket.Title, ticket.ID)
		return nil
	},
}

// taskDoneCmd marks a task done
var taskDoneCmd = &cobra.Command{
	Use:   "done",
	Short: "Mark a task as done",
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskID == "" {
			return fmt.Errorf("--id is required")
		}

		c, err := newRemoteClient(taskServer)
		if err != nil {
			return err
		}

		status := "done"
		progress := 100
		ticket, err := c.UpdateTicket(context.Background(), taskID, &client.TicketRequest{
			Status:   &status,
			Progress: &progress,
		})
		if err != nil {
			return reportSessionExpired(err)
		}

		fmt.Printf("Task '%s' marked done.\n", ticket.Title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskDoneCmd)

	for _, cmd := range []*cobra.Command{taskListCmd, taskCreateCmd, taskDoneCmd} {
		cmd.Flags().StringVar(&taskServer, "server", "http://localhost:8080", "server base URL")
	}

	taskListCmd.Flags().StringVar(&taskProject, "project", "", "filter by project id")

	taskCreateCmd.Flags().StringVar(&taskProject, "project", "", "project id (required)")
	taskCreateCmd.Flags().StringVar(&taskTitle, "title", "", "task title (required)")
	taskCreateCmd.Flags().StringVar(&taskPriority, "priority", "", "priority: low, medium, or high")
	taskCreateCmd.MarkFlagRequired("project")
	taskCreateCmd.MarkFlagRequired("title")

	taskDoneCmd.Flags().StringVar(&taskID, "id", "", "task id (required)")
	taskDoneCmd.MarkFlagRequired("id")
}
