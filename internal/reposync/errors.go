package reposync

import (
	"errors"

	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// ErrNoBranchSynced is wrapped by SyncError when every branch candidate failed.
var ErrNoBranchSynced = errors.New("no branch candidate could be pulled")

// errWorkingCopyBroken marks a working copy whose local state cannot be
// reset, typically a lock file left by an interrupted pull.
var errWorkingCopyBroken = errors.New("working copy cannot be reset")

// CloneError reports a failed initial clone. It is fatal to the run.
type CloneError struct {
	Ref notebook.RepositoryRef
	Err error
}

func (e *CloneError) Error() string {
	return "clone " + e.Ref.String() + ": " + e.Err.Error()
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// SyncError reports a failed update of an existing working copy. It is
// fatal to the run.
type SyncError struct {
	Ref notebook.RepositoryRef
	Err error
}

func (e *SyncError) Error() string {
	return "sync " + e.Ref.String() + ": " + e.Err.Error()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
