package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nulltasker/nulltasker/internal/models"
	"github.com/nulltasker/nulltasker/internal/storage"
)

var (
	projectDBPath    string
	projectName      string
	projectDesc      string
	projectID        string
	projectUserEmail string
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project management commands",
	Long: `Commands for managing NullTasker projects.

Projects organize tickets and member access. These commands operate
directly on the database file.

Examples:
  # List all projects
  taskctl project list

  # Create a new project
  taskctl project create --name rollout --description "Q4 rollout"

  # Add a member to a project
  taskctl project add-member --id <project-id> --email alice@example.com

  # Delete a project and its tickets
  taskctl project delete --id <project-id>`,
}

// projectListCmd lists all projects
var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Long: `List all projects in the database.

Displays project ID, name, owner, member count, and creation date.

Example:
  taskctl project list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		list, err := store.Projects().List(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if len(list) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-25s  %-36s  %-8s  %s\n",
			"ID", "NAME", "OWNER", "MEMBERS", "CREATED")
		fmt.Println(strings.Repeat("-", 120))

		for _, p := range list {
			fmt.Printf("%-36s  %-25s  %-36s  %-8d  %s\n",
				p.ID,
				p.Name,
				p.Owner,
				len(p.Members),
				p.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d project(s)\n", len(list))

		return nil
	},
}

// projectCreateCmd creates a new project
var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	Long: `Create a new project in the database.

Example:
  taskctl project create --name rollout --description "Q4 rollout"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(projectName)
		if name == "" {
			return fmt.Errorf("--name is required")
		}

		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		existing, err := store.Projects().GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("project '%s' already exists", name)
		}

		project := models.NewProject(name, projectDesc, "")
		project.ID = uuid.New().String()

		if err := store.Projects().Create(ctx, project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		fmt.Printf("\nProject created successfully:\n")
		fmt.Printf("  ID:   %s\n", project.ID)
		fmt.Printf("  Name: %s\n", project.Name)

		return nil
	},
}

// projectDeleteCmd deletes a project
var projectDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a project",
	Long: `Delete a project, its tickets, and all membership references.

The default project cannot be deleted.

Example:
  taskctl project delete --id <project-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if err := store.Projects().Delete(ctx, projectID); err != nil {
			if errors.Is(err, storage.ErrDefaultProjectProtected) {
				return fmt.Errorf("the default project cannot be deleted")
			}
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("project '%s' not found", projectID)
			}
			return fmt.Errorf("delete project: %w", err)
		}

		fmt.Printf("Project '%s' deleted.\n", projectID)
		return nil
	},
}

// projectAddMemberCmd adds a user to a project
var projectAddMemberCmd = &cobra.Command{
	Use:   "add-member",
	Short: "Add a user to a project",
	Long: `Add a user to a project's member list. The user's own membership
list is updated to match.

Example:
  taskctl project add-member --id <project-id> --email alice@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectID == "" {
			return fmt.Errorf("--id is required")
		}
		if projectUserEmail == "" {
			return fmt.Errorf("--email is required")
		}

		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		email := strings.ToLower(strings.TrimSpace(projectUserEmail))

		user, err := store.Users().GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user '%s' not found", email)
		}

		if err := store.Projects().AddMember(ctx, projectID, user.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("project '%s' not found", projectID)
			}
			return fmt.Errorf("add member: %w", err)
		}

		fmt.Printf("User '%s' added to project '%s'.\n", email, projectID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectAddMemberCmd)

	for _, cmd := range []*cobra.Command{projectListCmd, projectCreateCmd, projectDeleteCmd, projectAddMemberCmd} {
		cmd.Flags().StringVar(&projectDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "project name (required)")
	projectCreateCmd.Flags().StringVar(&projectDesc, "description", "", "project description")
	projectCreateCmd.MarkFlagRequired("name")

	projectDeleteCmd.Flags().StringVar(&projectID, "id", "", "project id (required)")
	projectDeleteCmd.MarkFlagRequired("id")

	projectAddMemberCmd.Flags().StringVar(&projectID, "id", "", "project id (required)")
	projectAddMemberCmd.Flags().StringVar(&projectUserEmail, "email", "", "user email (required)")
	projectAddMemberCmd.MarkFlagRequired("id")
	projectAddMemberCmd.MarkFlagRequired("email")
}
