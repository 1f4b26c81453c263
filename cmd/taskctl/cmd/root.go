// Package cmd contains the CLI commands for taskctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	verbose bool
	output  string
)

// defaultDBPath is the default database path, can be overridden via
// NULLTASKER_DB_PATH env var.
var defaultDBPath = "data/nulltasker.db"

func init() {
	if envPath := os.Getenv("NULLTASKER_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "NullTasker administration CLI",
	Long: `taskctl manages a NullTasker installation.

User, project, and backup commands operate directly on the storage
files and are intended for system administrators. Login and task
commands talk to a running server over its REST API.

Examples:
  # List all users in the local database
  taskctl user list

  # Create an admin user
  taskctl user create --email admin@example.com --name Admin --role system_admin

  # Write a backup snapshot
  taskctl backup --dir backups

  # Log in to a remote server and list your tasks
  taskctl login --server http://localhost:8080 --email alice@example.com
  taskctl task list`,
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
