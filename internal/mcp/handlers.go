package mcp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// staleThreshold is the number of commits behind after which the status
// tool warns that the index should be rebuilt.
const staleThreshold = 20

// StalenessChecker compares an indexed commit with the remote.
type StalenessChecker interface {
	CommitsBehind(ctx context.Context, ref notebook.RepositoryRef, sha, branch string) (int, error)
	LatestNotebookCommit(ctx context.Context, ref notebook.RepositoryRef) (string, error)
}

// makeListHandler creates the list_notebooks tool handler.
func makeListHandler(index *Index) func(
	context.Context, *mcp.CallToolRequest, ListNotebooksInput,
) (*mcp.CallToolResult, ListNotebooksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListNotebooksInput) (
		*mcp.CallToolResult, ListNotebooksOutput, error,
	) {
		entries, err := index.List()
		if err != nil {
			return nil, ListNotebooksOutput{}, fmt.Errorf("failed to list notebooks: %w", err)
		}

		if input.Repository != "" {
			want, err := notebook.ParseRef(input.Repository)
			if err != nil {
				return nil, ListNotebooksOutput{}, err
			}
			filtered := entries[:0]
			for _, e := range entries {
				ref, _ := notebook.ParseRef(e.Repository)
				if ref.Key() == want.Key() {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}

		return nil, ListNotebooksOutput{
			Notebooks: entries,
			Count:     len(entries),
		}, nil
	}
}

// makeFetchHandler creates the fetch_notebook tool handler.
// Prepends source header: # Source: owner/name notebooks/file.jl
func makeFetchHandler(index *Index, outliner *notebook.Outliner) func(
	context.Context, *mcp.CallToolRequest, FetchNotebookInput,
) (*mcp.CallToolResult, FetchNotebookOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FetchNotebookInput) (
		*mcp.CallToolResult, FetchNotebookOutput, error,
	) {
		content, err := index.Read(input.Name)
		if err != nil {
			if errors.Is(err, ErrNotebookNotFound) {
				return nil, FetchNotebookOutput{Name: input.Name, Found: false}, nil
			}
			return nil, FetchNotebookOutput{}, fmt.Errorf("failed to read notebook: %w", err)
		}

		out := FetchNotebookOutput{
			Name:  input.Name,
			Title: outliner.Title(content),
			Found: true,
		}
		// Outline failures only cost the outline, not the content.
		if outline, err := outliner.Outline(content); err == nil {
			out.Outline = outline
		}
		header := ""
		if ref, file, err := notebook.ParseIndexedName(input.Name); err == nil {
			out.Repository = ref.String()
			out.OriginalName = file
			header = fmt.Sprintf("# Source: %s %s/%s\n\n", ref, notebook.NotebooksDir, file)
		}
		out.Content = header + string(content)

		return nil, out, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// Returns the notebook count, last index time, indexed commit per repository
// and staleness against the remote default branch when a checker is set.
func makeStatusHandler(
	index *Index,
	checker StalenessChecker,
) func(context.Context, *mcp.CallToolRequest, StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		entries, err := index.List()
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("index_error: failed to list notebooks: %w", err)
		}
		out := StatusOutput{
			TotalNotebooks: len(entries),
			Repositories:   []RepoStatus{},
		}

		m, err := index.Manifest()
		if errors.Is(err, fs.ErrNotExist) {
			out.Message = "No index manifest found; provenance is unavailable until the next sync."
			return nil, out, nil
		}
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("index_error: failed to read manifest: %w", err)
		}
		indexedAt := m.IndexedAt
		out.LastIndexTime = &indexedAt

		for _, repo := range m.Repositories {
			st := RepoStatus{Repository: repo.Repository, Commit: repo.Commit}
			if checker != nil && repo.Commit != "" {
				// A failed comparison leaves CommitsBehind nil; it is not an error for the tool.
				if ref, err := notebook.ParseRef(repo.Repository); err == nil {
					if behind, err := checker.CommitsBehind(ctx, ref, repo.Commit, ""); err == nil {
						st.CommitsBehind = &behind
						if behind > staleThreshold {
							st.StaleWarning = fmt.Sprintf("%s is %d commits behind its default branch. Restart to resync.", repo.Repository, behind)
						}
					}
					if sha, err := checker.LatestNotebookCommit(ctx, ref); err == nil {
						st.LatestNotebookCommit = sha
					}
				}
			}
			out.Repositories = append(out.Repositories, st)
		}

		return nil, out, nil
	}
}
