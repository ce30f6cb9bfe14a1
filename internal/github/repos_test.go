package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/notebook-host/internal/auth"
	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.BaseURL = base
	return &Client{Client: c}
}

var testRef = notebook.RepositoryRef{Owner: "alice", Name: "notes"}

func TestNewClient(t *testing.T) {
	creds, err := auth.Bind("ghp_test")
	require.NoError(t, err)

	c, err := NewClient(context.Background(), creds)
	require.NoError(t, err)
	assert.NotNil(t, c.Repositories)

	anon, err := NewClient(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, anon.Repositories)
}

func TestDefaultBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/notes", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"full_name":"alice/notes","default_branch":"trunk"}`)
	})
	mux.HandleFunc("/repos/alice/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"full_name":"alice/empty"}`)
	})
	c := newTestClient(t, mux)

	branch, err := c.DefaultBranch(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)

	_, err = c.DefaultBranch(context.Background(), notebook.RepositoryRef{Owner: "alice", Name: "empty"})
	assert.Error(t, err)

	_, err = c.DefaultBranch(context.Background(), notebook.RepositoryRef{Owner: "alice", Name: "gone"})
	assert.Error(t, err)
}

func TestCommitsBehind(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/notes", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch":"main"}`)
	})
	mux.HandleFunc("/repos/alice/notes/compare/abc123...main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"behind","ahead_by":7,"behind_by":0}`)
	})
	c := newTestClient(t, mux)

	behind, err := c.CommitsBehind(context.Background(), testRef, "abc123", "")
	require.NoError(t, err)
	assert.Equal(t, 7, behind)

	behind, err = c.CommitsBehind(context.Background(), testRef, "abc123", "main")
	require.NoError(t, err)
	assert.Equal(t, 7, behind)

	_, err = c.CommitsBehind(context.Background(), testRef, "abc123", "dev")
	assert.Error(t, err)
}

func TestLatestNotebookCommit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/notes/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "notebooks", r.URL.Query().Get("path"))
		fmt.Fprint(w, `[{"sha":"0123456789abcdef"}]`)
	})
	mux.HandleFunc("/repos/alice/bare/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	c := newTestClient(t, mux)

	sha, err := c.LatestNotebookCommit(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", sha)

	_, err = c.LatestNotebookCommit(context.Background(), notebook.RepositoryRef{Owner: "alice", Name: "bare"})
	assert.Error(t, err)
}
