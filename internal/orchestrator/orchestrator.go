// Package orchestrator sequences the startup pipeline: validate the
// configuration, bind the credential, sync repositories, rebuild the
// notebook index and hand over to the notebook server.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mike-a-ellis/notebook-host/internal/auth"
	"github.com/mike-a-ellis/notebook-host/internal/config"
	"github.com/mike-a-ellis/notebook-host/internal/indexer"
	"github.com/mike-a-ellis/notebook-host/internal/launcher"
	"github.com/mike-a-ellis/notebook-host/internal/notebook"
	"github.com/mike-a-ellis/notebook-host/internal/reposync"
)

// State is a pipeline stage. Stages only move forward; any failure ends in Failed.
type State int

const (
	Init State = iota
	Validated
	Authenticated
	Synced
	Indexed
	Serving
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Validated:
		return "validated"
	case Authenticated:
		return "authenticated"
	case Synced:
		return "synced"
	case Indexed:
		return "indexed"
	case Serving:
		return "serving"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrAlreadyRun is returned when Run or Prepare is called a second time.
var ErrAlreadyRun = errors.New("orchestrator already started")

// Syncer brings every configured repository up to date.
type Syncer interface {
	SyncAll(ctx context.Context, refs []notebook.RepositoryRef) (*reposync.SyncResult, error)
}

// Indexer rebuilds the notebook index from synced working copies.
type Indexer interface {
	IndexAll(ctx context.Context, sources []indexer.Source) (*indexer.IndexResult, error)
}

// Launcher runs the notebook server until it exits.
type Launcher interface {
	Launch(ctx context.Context, spec launcher.Spec) error
}

// Stages supplies the pipeline components. The syncer is built after
// authentication because it needs the bound credential.
type Stages struct {
	NewSyncer func(creds *auth.Context) (Syncer, error)
	Indexer   Indexer
	Launcher  Launcher
}

// RunReport summarizes the stages that completed before serving.
type RunReport struct {
	RunID    string
	Sync     *reposync.SyncResult
	Index    *indexer.IndexResult
	Duration time.Duration
}

// Orchestrator runs the pipeline once.
type Orchestrator struct {
	cfg    *config.Config
	stages Stages
	runID  string
	logger *slog.Logger

	mu    sync.Mutex
	state State
	used  bool
}

// New creates an orchestrator for cfg. Each orchestrator gets a fresh run ID
// that is attached to every log line it emits.
func New(cfg *config.Config, stages Stages, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Orchestrator{
		cfg:    cfg,
		stages: stages,
		runID:  id,
		logger: logger.With("run_id", id),
		state:  Init,
	}
}

// RunID identifies this pipeline run in logs.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// State returns the current pipeline stage.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes the full pipeline and blocks while the notebook server runs.
func (o *Orchestrator) Run(ctx context.Context) error {
	report, err := o.Prepare(ctx)
	if err != nil {
		return err
	}

	spec := launcher.Spec{
		Command:      o.cfg.Server.Command,
		Args:         o.cfg.Server.Args,
		Dir:          o.cfg.IndexDir,
		Host:         o.cfg.Server.Host,
		Port:         o.cfg.Server.Port,
		ReadyTimeout: o.cfg.Server.ReadyTimeout.Duration,
	}
	o.transition(Serving, "notebooks", report.Index.Count())
	if err := o.stages.Launcher.Launch(ctx, spec); err != nil {
		return o.fail("serve", err)
	}
	return nil
}

// Prepare runs validation, authentication, sync and indexing, stopping at
// the first failure. Later stages never run after a failure.
func (o *Orchestrator) Prepare(ctx context.Context) (*RunReport, error) {
	o.mu.Lock()
	if o.used {
		o.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	o.used = true
	o.mu.Unlock()

	start := time.Now()
	report := &RunReport{RunID: o.runID}

	// 1. Validate
	if err := o.cfg.Validate(); err != nil {
		return nil, o.fail("validate", err)
	}
	o.transition(Validated, "repositories", len(o.cfg.Repositories))

	// 2. Authenticate
	creds, err := auth.Bind(o.cfg.Token)
	if err != nil {
		// A missing token is a configuration problem like any other.
		return nil, o.fail("authenticate", &config.ConfigError{Field: config.TokenEnv, Err: err})
	}
	o.transition(Authenticated)

	// 3. Sync
	syncer, err := o.stages.NewSyncer(creds)
	if err != nil {
		return nil, o.fail("sync", err)
	}
	report.Sync, err = syncer.SyncAll(ctx, o.cfg.Repositories)
	if err != nil {
		return nil, o.fail("sync", err)
	}
	o.transition(Synced, "duration", report.Sync.Duration.Round(time.Millisecond))

	// 4. Index
	sources := make([]indexer.Source, 0, len(report.Sync.Repositories))
	for _, st := range report.Sync.Repositories {
		sources = append(sources, indexer.Source{Ref: st.Ref, Path: st.Path, Commit: st.Commit})
	}
	report.Index, err = o.stages.Indexer.IndexAll(ctx, sources)
	if err != nil {
		return nil, o.fail("index", err)
	}
	o.transition(Indexed, "notebooks", report.Index.Count(), "skipped", len(report.Index.Skipped))

	report.Duration = time.Since(start)
	return report, nil
}

func (o *Orchestrator) transition(to State, attrs ...any) {
	o.mu.Lock()
	o.state = to
	o.mu.Unlock()
	o.logger.Info("Stage complete", append([]any{"state", to.String()}, attrs...)...)
}

func (o *Orchestrator) fail(stage string, err error) error {
	o.mu.Lock()
	from := o.state
	o.state = Failed
	o.mu.Unlock()
	o.logger.Error("Stage failed", "stage", stage, "after", from.String(), "error", err)
	return fmt.Errorf("%s: %w", stage, err)
}
