package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v81/github"

	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// DefaultBranch returns the branch GitHub reports as the repository default.
func (c *Client) DefaultBranch(ctx context.Context, ref notebook.RepositoryRef) (string, error) {
	repo, _, err := c.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		return "", fmt.Errorf("failed to get repository %s: %w", ref, err)
	}
	if repo.GetDefaultBranch() == "" {
		return "", fmt.Errorf("no default branch reported for %s", ref)
	}
	return repo.GetDefaultBranch(), nil
}

// CommitsBehind counts the commits on branch that are not in sha.
// An empty branch means the repository default.
func (c *Client) CommitsBehind(ctx context.Context, ref notebook.RepositoryRef, sha, branch string) (int, error) {
	if branch == "" {
		var err error
		if branch, err = c.DefaultBranch(ctx, ref); err != nil {
			return 0, err
		}
	}
	cmp, _, err := c.Repositories.CompareCommits(ctx, ref.Owner, ref.Name, sha, branch, &github.ListOptions{PerPage: 1})
	if err != nil {
		return 0, fmt.Errorf("failed to compare %s...%s in %s: %w", sha, branch, ref, err)
	}
	return cmp.GetAheadBy(), nil
}

// LatestNotebookCommit retrieves the SHA of the most recent commit touching
// the notebooks directory.
func (c *Client) LatestNotebookCommit(ctx context.Context, ref notebook.RepositoryRef) (string, error) {
	commits, _, err := c.Repositories.ListCommits(
		ctx,
		ref.Owner,
		ref.Name,
		&github.CommitsListOptions{
			Path: notebook.NotebooksDir,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit of %s: %w", ref, err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for %s/%s", ref, notebook.NotebooksDir)
	}
	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}
	return *commits[0].SHA, nil
}
