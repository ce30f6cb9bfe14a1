package orchestrator

import (
	"context"
	"log/slog"

	"github.com/mike-a-ellis/notebook-host/internal/auth"
	"github.com/mike-a-ellis/notebook-host/internal/config"
	ghclient "github.com/mike-a-ellis/notebook-host/internal/github"
	"github.com/mike-a-ellis/notebook-host/internal/indexer"
	"github.com/mike-a-ellis/notebook-host/internal/launcher"
	"github.com/mike-a-ellis/notebook-host/internal/reposync"
)

// DefaultStages wires the production components for cfg.
func DefaultStages(ctx context.Context, cfg *config.Config, logger *slog.Logger) Stages {
	if logger == nil {
		logger = slog.Default()
	}
	return Stages{
		NewSyncer: func(creds *auth.Context) (Syncer, error) {
			opts := reposync.Options{
				ReposDir:    cfg.ReposDir,
				RemoteURL:   cfg.RemoteURL,
				Branches:    cfg.Branches,
				Concurrency: cfg.Concurrency,
				RateLimit:   cfg.SyncRate,
			}
			if cfg.ResolveDefaultBranch {
				gh, err := ghclient.NewClient(ctx, creds)
				if err != nil {
					return nil, err
				}
				opts.Resolver = gh
			}
			return reposync.New(creds.ForRemote(cfg.RemoteURL), opts, logger.With("component", "sync"))
		},
		Indexer: indexer.NewIndexer(indexer.Options{
			IndexDir:     cfg.IndexDir,
			PublishMode:  cfg.PublishMode,
			ManifestPath: cfg.ManifestPath(),
		}, logger.With("component", "indexer")),
		Launcher: launcher.New(logger.With("component", "launcher")),
	}
}
