package gitutil

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineErrorType(t *testing.T) {
	tests := map[string]struct {
		stderr   string
		expected GitExecErrorType
	}{
		"missing branch on pull": {
			stderr:   "fatal: couldn't find remote ref main\n",
			expected: UnknownReference,
		},
		"missing branch on clone": {
			stderr:   "warning: Could not find remote branch main to clone.\nfatal: Remote branch main not found in upstream origin\n",
			expected: UnknownReference,
		},
		"https auth": {
			stderr:   "fatal: could not read Username for 'https://github.com': terminal prompts disabled\n",
			expected: HTTPSAuthRequired,
		},
		"bad token": {
			stderr:   "remote: Invalid username or password.\nfatal: Authentication failed for 'https://github.com/a/b.git/'\n",
			expected: HTTPSAuthRequired,
		},
		"dns": {
			stderr:   "fatal: unable to access 'https://github.invalid/a/b.git/': Could not resolve host: github.invalid\n",
			expected: RepositoryUnavailable,
		},
		"github not found": {
			stderr:   "remote: Repository not found.\nfatal: repository 'https://github.com/a/b.git/' not found\n",
			expected: RepositoryNotFound,
		},
		"local path not found": {
			stderr:   "fatal: '/tmp/nope' does not appear to be a git repository\n",
			expected: RepositoryNotFound,
		},
		"diverged": {
			stderr:   "fatal: Not possible to fast-forward, aborting.\n",
			expected: NotFastForward,
		},
		"other": {
			stderr:   "fatal: something else\n",
			expected: Unknown,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, determineErrorType(tc.stderr))
		})
	}
}

func TestIsTransportFailure(t *testing.T) {
	assert.True(t, IsTransportFailure(&GitExecError{Type: HTTPSAuthRequired, Err: errors.New("exit status 128")}))
	assert.True(t, IsTransportFailure(&GitExecError{Type: RepositoryUnavailable, Err: errors.New("x")}))
	assert.False(t, IsTransportFailure(&GitExecError{Type: UnknownReference, Err: errors.New("x")}))
	assert.False(t, IsTransportFailure(errors.New("plain")))
}

func TestGitExecError_Error(t *testing.T) {
	err := &GitExecError{
		Args:   []string{"pull", "origin", "main"},
		Err:    errors.New("exit status 1"),
		StdErr: "fatal: couldn't find remote ref main\n",
	}
	assert.Equal(t, "git pull origin main: exit status 1: fatal: couldn't find remote ref main", err.Error())
}

func TestRunner_Run(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	runner, err := NewRunner(dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = runner.Run(ctx, "init", "--quiet")
	require.NoError(t, err)

	_, err = runner.Run(ctx, "rev-parse", "--verify", "refs/heads/does-not-exist")
	var gitErr *GitExecError
	require.ErrorAs(t, err, &gitErr)
	assert.Equal(t, []string{"rev-parse", "--verify", "refs/heads/does-not-exist"}, gitErr.Args)

	top, err := runner.In(dir).Output(ctx, "rev-parse", "--show-toplevel")
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, top)
}
