// Package main provides the notebook-host CLI: sync GitHub repositories,
// rebuild the flat notebook index and run the notebook server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/notebook-host/internal/config"
	"github.com/mike-a-ellis/notebook-host/internal/orchestrator"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "notebook-host",
	Short:         "Host Pluto notebooks from a list of GitHub repositories",
	Long:          "Synchronizes the configured repositories, publishes their notebooks into a flat index and serves it with PlutoSliderServer.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync, index and serve notebooks",
	Long: `Runs the full startup pipeline and then blocks while the notebook server runs.

This command:
1. Loads and validates the repository configuration
2. Binds GITHUB_TOKEN as the git credential
3. Clones or fast-forwards every repository (main, then master)
4. Clears the index directory and publishes every notebooks/*.jl
5. Starts the notebook server on the index directory

Any failure before step 5 aborts startup with exit status 1.

Environment variables:
  GITHUB_TOKEN         GitHub token used for every clone and pull (required)
  NOTEBOOK_HOST_CONFIG Path to the configuration file (default: repositories.toml)
  HOST, PORT           Notebook server bind address (default: 0.0.0.0:1234)
  NOTEBOOK_REPOS_DIR   Working-copy directory (default: /data/repos)
  NOTEBOOK_INDEX_DIR   Published index directory (default: /data/notebooks)
  NOTEBOOK_STATE_DIR   Index manifest directory (default: /data/state)
  SYNC_CONCURRENCY     Repositories synced in parallel (default: 4)`,
	RunE: runServe,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync repositories and rebuild the index without serving",
	Long: `Runs the pipeline up to and including indexing, prints a summary and exits.

Uses the same configuration and environment variables as "run".`,
	RunE: runSync,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default: $NOTEBOOK_HOST_CONFIG or repositories.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd, syncCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = getEnv("NOTEBOOK_HOST_CONFIG", config.DefaultPath)
	}
	return config.Load(path)
}

func newOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return orchestrator.New(cfg, orchestrator.DefaultStages(ctx, cfg, logger), logger), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	o, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	if err := o.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	start := time.Now()

	o, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Starting sync...")
	report, err := o.Prepare(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Run: %s\n", report.RunID)
	for _, repo := range report.Sync.Repositories {
		fmt.Printf("  %-40s %-8s %-8s %s (%s)\n",
			repo.Ref, repo.Action, repo.Branch, repo.Commit, repo.Duration.Round(time.Millisecond))
	}
	fmt.Printf("  Notebooks: %d\n", report.Index.Count())
	fmt.Printf("  Skipped: %d\n", len(report.Index.Skipped))
	fmt.Printf("  Duration: %s\n", report.Duration.Round(time.Millisecond))

	if len(report.Index.Skipped) > 0 {
		fmt.Println()
		fmt.Println("Skipped files:")
		for _, skipped := range report.Index.Skipped {
			fmt.Printf("  - %s: %s\n", skipped.Path, skipped.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
