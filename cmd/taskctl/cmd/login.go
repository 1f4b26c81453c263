package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nulltasker/nulltasker/pkg/client"
)

var (
	loginServer   string
	loginEmail    string
	loginRemember bool
)

// newRemoteClient builds an API client using the file token store.
func newRemoteClient(server string) (*client.Client, error) {
	tokenPath, err := client.DefaultTokenPath()
	if err != nil {
		return nil, err
	}
	return client.New(server, client.NewFileTokenStore(tokenPath)), nil
}

// loginCmd authenticates against a running server
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a NullTasker server",
	Long: `Authenticate against a running NullTasker server and store the
token pair in ~/.nulltasker/tokens.json for later task commands.

The password is prompted interactively.

Example:
  taskctl login --server http://localhost:8080 --email alice@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginEmail == "" {
			return fmt.Errorf("--email is required")
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		c, err := newRemoteClient(loginServer)
		if err != nil {
			return err
		}

		user, err := c.Login(context.Background(), loginEmail, password, loginRemember)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		fmt.Printf("Logged in as %s (%s).\n", user.DisplayName, user.Email)
		return nil
	},
}

// logoutCmd discards the stored tokens
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and discard stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newRemoteClient(loginServer)
		if err != nil {
			return err
		}
		if err := c.Logout(context.Background()); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	for _, cmd := range []*cobra.Command{loginCmd, logoutCmd} {
		cmd.Flags().StringVar(&loginServer, "server", "http://localhost:8080", "server base URL")
	}
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (required)")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "request a long-lived refresh token")
	loginCmd.MarkFlagRequired("email")
}
