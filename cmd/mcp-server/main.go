// Package main provides the MCP server entry point for browsing the notebook index.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mike-a-ellis/notebook-host/internal/auth"
	"github.com/mike-a-ellis/notebook-host/internal/config"
	ghclient "github.com/mike-a-ellis/notebook-host/internal/github"
	mcpserver "github.com/mike-a-ellis/notebook-host/internal/mcp"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Configuration from environment, sharing the notebook host's directories
	indexDir := getEnv("NOTEBOOK_INDEX_DIR", config.DefaultIndexDir)
	stateDir := getEnv("NOTEBOOK_STATE_DIR", config.DefaultStateDir)
	port := getEnv("MCP_PORT", "8080")

	index := &mcpserver.Index{
		Dir:          indexDir,
		ManifestPath: filepath.Join(stateDir, "index.json"),
	}
	if err := index.Health(ctx); err != nil {
		log.Printf("notebook index not readable yet: %v", err)
	}

	cfg := &mcpserver.Config{Index: index}

	// Staleness needs the GitHub API; without a token the status tool skips it
	if creds, err := auth.Bind(os.Getenv(config.TokenEnv)); err == nil {
		ghClient, err := ghclient.NewClient(ctx, creds)
		if err != nil {
			log.Fatalf("failed to create GitHub client: %v", err)
		}
		cfg.Staleness = ghClient
	} else {
		log.Printf("%v; staleness checks disabled", err)
	}

	server := mcpserver.NewServer(cfg)

	// Create HTTP server with multiple endpoints
	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(index))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, &mcpserver.HTTPHandlerOptions{Stateless: true}))

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode: also start the HTTP health endpoint in background for local testing
		go func() {
			addr := "127.0.0.1:" + port
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting notebook index MCP server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
