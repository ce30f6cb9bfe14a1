package gitutil

import (
	"errors"
	"regexp"
	"strings"
)

type GitExecErrorType int

const (
	Unknown GitExecErrorType = iota
	UnknownReference
	HTTPSAuthRequired
	RepositoryNotFound
	RepositoryUnavailable
	NotFastForward
)

func (t GitExecErrorType) String() string {
	switch t {
	case UnknownReference:
		return "unknown reference"
	case HTTPSAuthRequired:
		return "authentication required"
	case RepositoryNotFound:
		return "repository not found"
	case RepositoryUnavailable:
		return "repository unavailable"
	case NotFastForward:
		return "not a fast-forward"
	}
	return "unknown"
}

type GitExecError struct {
	Type   GitExecErrorType
	Args   []string
	Err    error
	StdErr string
	StdOut string
}

func (e *GitExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	b.WriteString(strings.Join(e.Args, " "))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if s := strings.TrimSpace(e.StdErr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *GitExecError) Unwrap() error {
	return e.Err
}

// ErrorType returns the classification of err if it wraps a *GitExecError.
func ErrorType(err error) GitExecErrorType {
	var gitExecErr *GitExecError
	if errors.As(err, &gitExecErr) {
		return gitExecErr.Type
	}
	return Unknown
}

// IsTransportFailure reports whether err means the remote itself cannot be
// reached or read, as opposed to a problem with a particular ref.
func IsTransportFailure(err error) bool {
	switch ErrorType(err) {
	case HTTPSAuthRequired, RepositoryNotFound, RepositoryUnavailable:
		return true
	}
	return false
}

var repositoryNotFound = regexp.MustCompile(`fatal: repository '.*' not found|does not appear to be a git repository`)

func determineErrorType(stdErr string) GitExecErrorType {
	switch {
	case strings.Contains(stdErr, "couldn't find remote ref"),
		strings.Contains(stdErr, "unknown revision or path not in the working tree"),
		strings.Contains(stdErr, "not found in upstream origin"):
		return UnknownReference
	case strings.Contains(stdErr, "could not read Username"),
		strings.Contains(stdErr, "Authentication failed"),
		strings.Contains(stdErr, "terminal prompts disabled"):
		return HTTPSAuthRequired
	case strings.Contains(stdErr, "Could not resolve host"),
		strings.Contains(stdErr, "Failed to connect"),
		strings.Contains(stdErr, "Connection refused"),
		strings.Contains(stdErr, "Connection timed out"):
		return RepositoryUnavailable
	case repositoryNotFound.MatchString(stdErr):
		return RepositoryNotFound
	case strings.Contains(stdErr, "Not possible to fast-forward"),
		strings.Contains(stdErr, "not possible to fast-forward"):
		return NotFastForward
	}
	return Unknown
}
