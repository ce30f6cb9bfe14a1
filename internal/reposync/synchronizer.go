// Package reposync keeps one local working copy per configured repository
// in step with the remote default branch.
package reposync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mike-a-ellis/notebook-host/internal/auth"
	"github.com/mike-a-ellis/notebook-host/internal/gitutil"
	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// Action describes what a sync did to a working copy.
type Action string

const (
	Cloned  Action = "cloned"
	Updated Action = "updated"
)

// BranchResolver looks up the default branch a remote reports.
type BranchResolver interface {
	DefaultBranch(ctx context.Context, ref notebook.RepositoryRef) (string, error)
}

// Options configures a Synchronizer.
type Options struct {
	ReposDir    string
	RemoteURL   string   // Template with {owner} and {repo} placeholders
	Branches    []string // Pull candidates, tried in order
	Concurrency int      // Maximum repositories synced at once
	RateLimit   float64  // Remote operations per second; 0 disables pacing

	// Resolver, when set, contributes the remote's default branch as the
	// first pull candidate.
	Resolver BranchResolver
}

// RepoStatus is the outcome of syncing one repository.
type RepoStatus struct {
	Ref      notebook.RepositoryRef
	Path     string
	Action   Action
	Branch   string
	Commit   string
	Duration time.Duration
}

// SyncResult contains per-repository statistics about a sync run, in
// configuration order.
type SyncResult struct {
	Repositories []RepoStatus
	Duration     time.Duration
}

// Synchronizer clones or fast-forwards working copies.
type Synchronizer struct {
	git     *gitutil.Runner
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Synchronizer authenticating with creds.
func New(creds *auth.Context, opts Options, logger *slog.Logger) (*Synchronizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ReposDir == "" {
		return nil, errors.New("repos dir not set")
	}
	if len(opts.Branches) == 0 {
		return nil, errors.New("no branch candidates")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	runner, err := gitutil.NewRunner(opts.ReposDir, creds.GitEnv())
	if err != nil {
		return nil, err
	}
	s := &Synchronizer{
		git:    runner,
		opts:   opts,
		logger: logger,
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return s, nil
}

// LocalPath is the working-copy directory for ref.
func (s *Synchronizer) LocalPath(ref notebook.RepositoryRef) string {
	return filepath.Join(s.opts.ReposDir, ref.DirName())
}

// RemoteURL expands the remote template for ref.
func (s *Synchronizer) RemoteURL(ref notebook.RepositoryRef) string {
	return strings.NewReplacer("{owner}", ref.Owner, "{repo}", ref.Name).Replace(s.opts.RemoteURL)
}

// SyncAll synchronizes every repository with a bounded worker pool. The
// first failure cancels the remaining work and is returned; no partial
// result is reported on failure.
func (s *Synchronizer) SyncAll(ctx context.Context, refs []notebook.RepositoryRef) (*SyncResult, error) {
	start := time.Now()
	if err := os.MkdirAll(s.opts.ReposDir, 0o755); err != nil {
		return nil, fmt.Errorf("create repos dir: %w", err)
	}

	statuses := make([]RepoStatus, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	s.logger.Info("Starting sync", "repositories", len(refs), "concurrency", s.opts.Concurrency)
	for i, ref := range refs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status, err := s.Sync(gctx, ref)
			if err != nil {
				return err
			}
			statuses[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &SyncResult{Repositories: statuses, Duration: time.Since(start)}
	s.logger.Info("Sync complete", "repositories", len(statuses), "duration", result.Duration)
	return result, nil
}

// Sync clones ref if it has no working copy yet, otherwise discards local
// state and fast-forwards it. Errors are *CloneError or *SyncError.
func (s *Synchronizer) Sync(ctx context.Context, ref notebook.RepositoryRef) (RepoStatus, error) {
	start := time.Now()
	path := s.LocalPath(ref)
	status := RepoStatus{Ref: ref, Path: path}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.clone(ctx, ref, path); err != nil {
			return status, &CloneError{Ref: ref, Err: err}
		}
		status.Action = Cloned
		status.Branch, _ = s.git.In(path).CurrentBranch(ctx)
	case err != nil:
		return status, &SyncError{Ref: ref, Err: err}
	default:
		branch, err := s.update(ctx, ref, path)
		if errors.Is(err, errWorkingCopyBroken) && ctx.Err() == nil {
			// An interrupted pull is treated as if it never happened: start over from a fresh clone.
			s.logger.Warn("Working copy unusable, recloning", "repo", ref.String(), "error", err)
			if err := os.RemoveAll(path); err != nil {
				return status, &SyncError{Ref: ref, Err: fmt.Errorf("remove broken working copy: %w", err)}
			}
			if err := s.clone(ctx, ref, path); err != nil {
				return status, &CloneError{Ref: ref, Err: err}
			}
			status.Action = Cloned
			status.Branch, _ = s.git.In(path).CurrentBranch(ctx)
			break
		}
		if err != nil {
			return status, &SyncError{Ref: ref, Err: err}
		}
		status.Action = Updated
		status.Branch = branch
	}

	commit, err := s.git.In(path).Head(ctx)
	if err != nil {
		return status, &SyncError{Ref: ref, Err: fmt.Errorf("read HEAD: %w", err)}
	}
	status.Commit = commit
	status.Duration = time.Since(start)
	s.logger.Info("Synced repository",
		"repo", ref.String(),
		"action", status.Action,
		"branch", status.Branch,
		"commit", shortSHA(commit),
	)
	return status, nil
}

// clone fetches the remote into a scratch directory next to path and
// renames it into place, so an interrupted clone never leaves a partial
// working copy behind.
func (s *Synchronizer) clone(ctx context.Context, ref notebook.RepositoryRef, path string) error {
	if err := os.MkdirAll(s.opts.ReposDir, 0o755); err != nil {
		return fmt.Errorf("create repos dir: %w", err)
	}
	// "~" only follows "_" in an encoded name, so this prefix never
	// matches the scratch directory of another repository.
	prefix := ".clone-" + ref.DirName() + "~"
	stale, _ := filepath.Glob(filepath.Join(s.opts.ReposDir, prefix+"*"))
	for _, dir := range stale {
		s.logger.Debug("Removing interrupted clone", "path", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove interrupted clone: %w", err)
		}
	}

	tmp, err := os.MkdirTemp(s.opts.ReposDir, prefix)
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	if err := s.wait(ctx); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	s.logger.Debug("Cloning repository", "repo", ref.String())
	if _, err := s.git.Run(ctx, "clone", "--quiet", "--", s.RemoteURL(ref), tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("move clone into place: %w", err)
	}
	return nil
}

// update resets the working copy to its last commit, removes untracked
// files and pulls the first branch candidate that fast-forwards.
func (s *Synchronizer) update(ctx context.Context, ref notebook.RepositoryRef, path string) (string, error) {
	git := s.git.In(path)
	if _, err := git.Run(ctx, "reset", "--hard", "--quiet"); err != nil {
		return "", fmt.Errorf("%w: reset: %w", errWorkingCopyBroken, err)
	}
	if _, err := git.Run(ctx, "clean", "-ffdxq"); err != nil {
		return "", fmt.Errorf("%w: clean: %w", errWorkingCopyBroken, err)
	}

	var lastErr error
	for _, branch := range s.candidates(ctx, ref) {
		if err := s.wait(ctx); err != nil {
			return "", err
		}
		_, err := git.Run(ctx, "pull", "--ff-only", "--quiet", "origin", branch)
		if err == nil {
			return branch, nil
		}
		lastErr = err
		if ctx.Err() != nil || gitutil.IsTransportFailure(err) {
			break
		}
		s.logger.Debug("Pull failed, trying next branch",
			"repo", ref.String(),
			"branch", branch,
			"reason", gitutil.ErrorType(err).String(),
		)
		// A failed pull can leave a conflicted or partial state behind.
		_, _ = git.Run(ctx, "reset", "--hard", "--quiet")
	}
	return "", fmt.Errorf("%w: %w", ErrNoBranchSynced, lastErr)
}

// candidates returns the branch names to pull, in order, without duplicates.
func (s *Synchronizer) candidates(ctx context.Context, ref notebook.RepositoryRef) []string {
	var names []string
	if s.opts.Resolver != nil {
		branch, err := s.opts.Resolver.DefaultBranch(ctx, ref)
		if err != nil {
			s.logger.Warn("Default branch lookup failed, using configured branches", "repo", ref.String(), "error", err)
		} else if branch != "" {
			names = append(names, branch)
		}
	}
	for _, b := range s.opts.Branches {
		dup := false
		for _, n := range names {
			if n == b {
				dup = true
				break
			}
		}
		if !dup {
			names = append(names, b)
		}
	}
	return names
}

func (s *Synchronizer) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
