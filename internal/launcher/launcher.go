// Package launcher starts the notebook server as a supervised child process.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Placeholders expanded in Spec.Args.
const (
	PlaceholderHost        = "{host}"
	PlaceholderPort        = "{port}"
	PlaceholderNotebookDir = "{notebook_dir}"
)

// DefaultStopGrace is how long the child gets to exit after SIGTERM
// before it is killed.
const DefaultStopGrace = 10 * time.Second

// Spec describes the server process to run.
type Spec struct {
	Command      string
	Args         []string
	Dir          string // Notebook index directory handed to the server
	Host         string
	Port         int
	Env          []string // Extra KEY=VALUE entries on top of the parent environment
	ReadyTimeout time.Duration
}

// Addr is the host:port the server is expected to listen on.
func (s Spec) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ExpandArgs substitutes the placeholders in s.Args.
func (s Spec) ExpandArgs() []string {
	r := strings.NewReplacer(
		PlaceholderHost, s.Host,
		PlaceholderPort, strconv.Itoa(s.Port),
		PlaceholderNotebookDir, s.Dir,
	)
	out := make([]string, len(s.Args))
	for i, a := range s.Args {
		out[i] = r.Replace(a)
	}
	return out
}

// Launcher runs the server and blocks until it exits.
type Launcher struct {
	// OnReady, when set, is called once the server accepts TCP connections.
	// It is an observer hook for embedders and tests; the CLI leaves it nil
	// and relies on the "Notebook server ready" log line. It is not called
	// when readiness times out.
	OnReady func(addr string)

	stdout io.Writer
	stderr io.Writer
	grace  time.Duration
	logger *slog.Logger
}

// New creates a Launcher whose child inherits the process's stdout and stderr.
func New(logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		stdout: os.Stdout,
		stderr: os.Stderr,
		grace:  DefaultStopGrace,
		logger: logger,
	}
}

// Launch starts the server and waits for it. Cancelling ctx sends SIGTERM
// to the child; a child stopped that way is a clean shutdown and returns nil.
// A non-zero exit otherwise returns *ExitError.
func (l *Launcher) Launch(ctx context.Context, spec Spec) error {
	if spec.Command == "" {
		return errors.New("launch: no server command configured")
	}
	args := spec.ExpandArgs()

	cmd := exec.CommandContext(ctx, spec.Command, args...)
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = l.grace

	l.logger.Info("Starting notebook server",
		"command", spec.Command,
		"addr", spec.Addr(),
		"notebook_dir", spec.Dir,
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", spec.Command, err)
	}

	probeCtx, stopProbe := context.WithCancel(ctx)
	probeDone := make(chan struct{})
	go func() {
		defer close(probeDone)
		l.awaitReady(probeCtx, spec)
	}()

	err := cmd.Wait()
	stopProbe()
	<-probeDone

	if ctx.Err() != nil {
		l.logger.Info("Notebook server stopped", "reason", context.Cause(ctx))
		return nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Command: spec.Command, Code: exitErr.ExitCode(), Err: err}
		}
		return fmt.Errorf("wait %s: %w", spec.Command, err)
	}
	l.logger.Info("Notebook server exited")
	return nil
}

// awaitReady polls the server port with exponential backoff until it
// accepts a connection or ReadyTimeout elapses. Failure is only logged.
func (l *Launcher) awaitReady(ctx context.Context, spec Spec) {
	addr := probeAddr(spec)
	start := time.Now()

	operation := func() error {
		d := net.Dialer{Timeout: time.Second}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = spec.ReadyTimeout

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if ctx.Err() == nil {
			l.logger.Warn("Notebook server not reachable", "addr", addr, "timeout", spec.ReadyTimeout, "error", err)
		}
		return
	}
	l.logger.Info("Notebook server ready", "addr", addr, "after", time.Since(start).Round(time.Millisecond))
	if l.OnReady != nil {
		l.OnReady(addr)
	}
}

// probeAddr maps wildcard listen hosts to loopback.
func probeAddr(spec Spec) string {
	host := spec.Host
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(spec.Port))
}

// ExitError reports that the server exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("notebook server %s exited with status %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
