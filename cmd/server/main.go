package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nulltasker/nulltasker/internal/api"
	"github.com/nulltasker/nulltasker/internal/api/health"
	"github.com/nulltasker/nulltasker/internal/metrics"
	"github.com/nulltasker/nulltasker/internal/storage"
	"github.com/nulltasker/nulltasker/pkg/config"
)

var (
	configFile  string
	httpAddr    string
	backendFlag string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "nulltasker-server",
	Short: "NullTasker Server - Team task tracking backend",
	Long: `NullTasker Server provides the REST API for team task tracking:
user accounts, projects, tickets, application settings, and backups.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nulltasker-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: sqlite or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// jwtSecret resolves the signing secret. Production deployments must
// set NULLTASKER_JWT_SECRET; otherwise a random dev secret is used and
// restarts invalidate outstanding tokens.
func jwtSecret(cfg *Config) ([]byte, error) {
	if secret := os.Getenv("NULLTASKER_JWT_SECRET"); secret != "" {
		return []byte(secret), nil
	}
	if cfg.Production {
		return nil, fmt.Errorf("NULLTASKER_JWT_SECRET environment variable is required in production mode")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate dev secret: %w", err)
	}
	log.Printf("WARNING: using random dev JWT secret; tokens will not survive a restart")
	return []byte(hex.EncodeToString(buf)), nil
}

func openStorage(cfg *Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "json":
		if err := os.MkdirAll(cfg.Storage.DataDir, 0750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return storage.NewJSONStorage(cfg.Storage.DataDir), nil
	default:
		dbDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return storage.NewSQLiteStorage(cfg.Storage.Path), nil
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	if backendFlag != "" {
		cfg.Storage.Backend = backendFlag
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	cfg.Verbose = verbose

	secret, err := jwtSecret(cfg)
	if err != nil {
		return err
	}

	// Initialize storage
	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate storage: %w", err)
	}

	// Create bootstrap admin on first run
	if err := store.EnsureAdminUser(); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	log.Printf("storage initialized (%s backend)", cfg.Storage.Backend)

	// Build API server config
	apiCfg := &api.Config{
		Address:          cfg.Server.Address,
		JWTSecret:        secret,
		BackupDir:        cfg.Backup.Dir,
		HTTPTLSEnabled:   cfg.Server.TLS.Enabled,
		HTTPTLSCertFile:  cfg.Server.TLS.CertFile,
		HTTPTLSKeyFile:   cfg.Server.TLS.KeyFile,
		AccessTokenTTL:   duration(cfg.Auth.AccessTokenTTL),
		RefreshTokenTTL:  duration(cfg.Auth.RefreshTokenTTL),
		RememberMeTTL:    duration(cfg.Auth.RememberMeTTL),
		LoginRateLimit:   cfg.Auth.LoginRateLimit,
		LoginRateWindow:  duration(cfg.Auth.LoginRateWindow),
		RateLimitPerUser: cfg.Auth.RateLimitPerUser,
		Verbose:          cfg.Verbose,
	}

	srv, err := api.New(apiCfg, store)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Health checkers for the configured backend
	if sqlite, ok := store.(*storage.SQLiteStorage); ok {
		srv.RegisterHealthChecker(health.NewSQLiteChecker(sqlite.DB()))
	} else {
		srv.RegisterHealthChecker(health.NewDataDirChecker(cfg.Storage.DataDir))
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	// Dedicated metrics listener
	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.Address)
		if err := metricsSrv.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsSrv.Shutdown(shutdownCtx)
		}()
		log.Printf("metrics listening on %s", cfg.Metrics.Address)
	}

	log.Printf("starting nulltasker-server %s", config.Version)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
