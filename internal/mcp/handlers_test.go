package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/notebook-host/internal/indexer"
	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

const testNotebook = `### A Pluto.jl notebook ###
# v0.19.40

# ╔═╡ 00000000-0000-0000-0000-000000000001
md"""
# Sales Forecast
## Data
"""
`

type fakeChecker struct {
	behind int
	latest string
	err    error
	calls  []string
}

func (f *fakeChecker) CommitsBehind(ctx context.Context, ref notebook.RepositoryRef, sha, branch string) (int, error) {
	f.calls = append(f.calls, ref.String()+"@"+sha)
	return f.behind, f.err
}

func (f *fakeChecker) LatestNotebookCommit(ctx context.Context, ref notebook.RepositoryRef) (string, error) {
	return f.latest, f.err
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	root := t.TempDir()
	ix := &Index{
		Dir:          filepath.Join(root, "notebooks"),
		ManifestPath: filepath.Join(root, "state", "index.json"),
	}
	require.NoError(t, os.MkdirAll(ix.Dir, 0o755))
	for _, name := range []string{"alice__notes__forecast.jl", "bob__my_~repo__eda.jl"} {
		require.NoError(t, os.WriteFile(filepath.Join(ix.Dir, name), []byte(testNotebook), 0o644))
	}
	// Names the index would never produce are ignored by the listing.
	require.NoError(t, os.WriteFile(filepath.Join(ix.Dir, "stray.txt"), nil, 0o644))
	return ix
}

func writeManifest(t *testing.T, ix *Index, m indexer.Manifest) {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(ix.ManifestPath), 0o755))
	require.NoError(t, os.WriteFile(ix.ManifestPath, b, 0o644))
}

func TestListHandler(t *testing.T) {
	ix := newTestIndex(t)
	writeManifest(t, ix, indexer.Manifest{
		Documents: []indexer.ManifestDocument{{IndexedName: "alice__notes__forecast.jl", Title: "Sales Forecast"}},
	})
	handler := makeListHandler(ix)

	_, out, err := handler(context.Background(), nil, ListNotebooksInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, []NotebookEntry{
		{Name: "alice__notes__forecast.jl", Repository: "alice/notes", OriginalName: "forecast.jl", Title: "Sales Forecast"},
		{Name: "bob__my_~repo__eda.jl", Repository: "bob/my_repo", OriginalName: "eda.jl"},
	}, out.Notebooks)

	_, out, err = handler(context.Background(), nil, ListNotebooksInput{Repository: "Bob/My_Repo"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "eda.jl", out.Notebooks[0].OriginalName)

	_, _, err = handler(context.Background(), nil, ListNotebooksInput{Repository: "not-a-ref"})
	assert.ErrorIs(t, err, notebook.ErrInvalidRef)
}

func TestFetchHandler(t *testing.T) {
	ix := newTestIndex(t)
	handler := makeFetchHandler(ix, notebook.NewOutliner())

	_, out, err := handler(context.Background(), nil, FetchNotebookInput{Name: "alice__notes__forecast.jl"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "alice/notes", out.Repository)
	assert.Equal(t, "forecast.jl", out.OriginalName)
	assert.Equal(t, "Sales Forecast", out.Title)
	assert.Equal(t, []string{"# Sales Forecast", "# Sales Forecast > ## Data"}, out.Outline)
	assert.Equal(t, "# Source: alice/notes notebooks/forecast.jl\n\n"+testNotebook, out.Content)
}

func TestFetchHandler_NotFound(t *testing.T) {
	ix := newTestIndex(t)
	handler := makeFetchHandler(ix, notebook.NewOutliner())

	for _, name := range []string{"missing__repo__x.jl", "../state/index.json", "", ".hidden"} {
		_, out, err := handler(context.Background(), nil, FetchNotebookInput{Name: name})
		require.NoError(t, err, name)
		assert.False(t, out.Found, name)
		assert.Empty(t, out.Content, name)
	}
}

func TestStatusHandler(t *testing.T) {
	ix := newTestIndex(t)
	indexedAt := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	writeManifest(t, ix, indexer.Manifest{
		IndexedAt: indexedAt,
		Repositories: []indexer.ManifestRepo{
			{Repository: "alice/notes", Commit: "abc123"},
			{Repository: "bob/my_repo", Commit: "def456"},
		},
	})
	checker := &fakeChecker{behind: 25, latest: "fedcba987654"}
	handler := makeStatusHandler(ix, checker)

	_, out, err := handler(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.TotalNotebooks)
	require.NotNil(t, out.LastIndexTime)
	assert.True(t, indexedAt.Equal(*out.LastIndexTime))
	require.Len(t, out.Repositories, 2)
	require.NotNil(t, out.Repositories[0].CommitsBehind)
	assert.Equal(t, 25, *out.Repositories[0].CommitsBehind)
	assert.Contains(t, out.Repositories[0].StaleWarning, "25 commits behind")
	assert.Equal(t, "fedcba987654", out.Repositories[0].LatestNotebookCommit)
	assert.Equal(t, []string{"alice/notes@abc123", "bob/my_repo@def456"}, checker.calls)
}

func TestStatusHandler_CheckerFailureIsNotAnError(t *testing.T) {
	ix := newTestIndex(t)
	writeManifest(t, ix, indexer.Manifest{
		Repositories: []indexer.ManifestRepo{{Repository: "alice/notes", Commit: "abc123"}},
	})
	handler := makeStatusHandler(ix, &fakeChecker{err: errors.New("rate limited")})

	_, out, err := handler(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	require.Len(t, out.Repositories, 1)
	assert.Nil(t, out.Repositories[0].CommitsBehind)
	assert.Empty(t, out.Repositories[0].StaleWarning)
	assert.Empty(t, out.Repositories[0].LatestNotebookCommit)
}

func TestStatusHandler_NoManifest(t *testing.T) {
	ix := newTestIndex(t)
	handler := makeStatusHandler(ix, nil)

	_, out, err := handler(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.TotalNotebooks)
	assert.Nil(t, out.LastIndexTime)
	assert.NotEmpty(t, out.Message)
}
