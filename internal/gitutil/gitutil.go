// Package gitutil runs the git executable for the repository synchronizer.
package gitutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrGitNotFound is returned when no git executable is on PATH.
var ErrGitNotFound = errors.New("no 'git' program on path")

// Runner runs git commands in a directory.
type Runner struct {
	// Path to the git executable.
	gitPath string

	// Dir is the directory the commands are run in.
	Dir string

	// Env is appended to the process environment of every command.
	Env []string
}

// NewRunner returns a Runner for dir. env typically carries the
// credential entries from auth.Context.GitEnv.
func NewRunner(dir string, env []string) (*Runner, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGitNotFound, err)
	}
	return &Runner{
		gitPath: p,
		Dir:     dir,
		Env:     env,
	}, nil
}

// In returns a copy of the runner operating in dir.
func (g *Runner) In(dir string) *Runner {
	c := *g
	c.Dir = dir
	return &c
}

type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command. Omit the 'git' part of the command.
// On failure the error is a *GitExecError carrying stdout, stderr and a
// classification of the failure.
func (g *Runner) Run(ctx context.Context, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.Env = append(cmd.Env, g.Env...)

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	cmd.Stdout = cmdStdout
	cmd.Stderr = cmdStderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return RunResult{}, &GitExecError{
			Type:   determineErrorType(cmdStderr.String()),
			Args:   args,
			Err:    err,
			StdOut: cmdStdout.String(),
			StdErr: cmdStderr.String(),
		}
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// Output runs a git command and returns its trimmed stdout.
func (g *Runner) Output(ctx context.Context, args ...string) (string, error) {
	rr, err := g.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(rr.Stdout), nil
}

// Head returns the commit SHA checked out in the runner's directory.
func (g *Runner) Head(ctx context.Context) (string, error) {
	return g.Output(ctx, "rev-parse", "HEAD")
}

// CurrentBranch returns the short name of the checked out branch.
func (g *Runner) CurrentBranch(ctx context.Context) (string, error) {
	return g.Output(ctx, "symbolic-ref", "--short", "HEAD")
}
