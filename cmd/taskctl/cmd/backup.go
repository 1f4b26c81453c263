package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nulltasker/nulltasker/internal/models"
)

var (
	backupDBPath string
	backupDir    string
)

// backupCmd writes a snapshot of the database to a JSON file.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a backup snapshot",
	Long: `Write a timestamped JSON snapshot of all users, tasks, projects,
and settings to the backup directory.

This command operates directly on the database file and can run while
the server is up.

Example:
  taskctl backup --dir backups`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(backupDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		userList, err := store.Users().List(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		ticketList, err := store.Tickets().List(ctx)
		if err != nil {
			return fmt.Errorf("list tickets: %w", err)
		}
		projectList, err := store.Projects().List(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		settings, err := store.Settings().Get(ctx)
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		if settings == nil {
			settings = models.DefaultAppSettings()
		}

		snapshot := map[string]any{
			"users":       userList,
			"tasks":       ticketList,
			"projects":    projectList,
			"settings":    settings,
			"backup_date": time.Now().UTC(),
		}

		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}

		filename := fmt.Sprintf("backup-%s.json", time.Now().UTC().Format("20060102-150405"))
		path := filepath.Join(backupDir, filename)

		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}

		fmt.Printf("Backup written to %s\n", path)
		fmt.Printf("  %d user(s), %d task(s), %d project(s)\n",
			len(userList), len(ticketList), len(projectList))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringVar(&backupDBPath, "db", defaultDBPath, "path to SQLite database file")
	backupCmd.Flags().StringVar(&backupDir, "dir", "backups", "backup directory")
}
