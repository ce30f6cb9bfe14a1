// Package mcp provides a read-only MCP server over the published notebook index.
package mcp

import "time"

// ListNotebooksInput defines the input parameters for the list_notebooks tool.
type ListNotebooksInput struct {
	// Repository optionally restricts the listing to one "owner/name".
	Repository string `json:"repository,omitempty" jsonschema:"Only list notebooks from this repository (owner/name)"`
}

// ListNotebooksOutput contains every published notebook.
type ListNotebooksOutput struct {
	Notebooks []NotebookEntry `json:"notebooks"`
	Count     int             `json:"count"`
}

// NotebookEntry describes one published notebook.
type NotebookEntry struct {
	// Name is the flat indexed name, e.g. "alice__notes__analysis.jl".
	Name string `json:"name"`
	// Repository is the source repository as "owner/name".
	Repository string `json:"repository"`
	// OriginalName is the file name inside the repository's notebooks directory.
	OriginalName string `json:"original_name"`
	// Title is the first markdown heading, when the index manifest has one.
	Title string `json:"title,omitempty"`
}

// FetchNotebookInput defines the input parameters for the fetch_notebook tool.
type FetchNotebookInput struct {
	// Name is the indexed name returned by list_notebooks.
	Name string `json:"name" jsonschema:"The indexed notebook name (e.g. alice__notes__analysis.jl)"`
}

// FetchNotebookOutput contains the notebook source.
type FetchNotebookOutput struct {
	Name         string `json:"name"`
	Repository   string `json:"repository,omitempty"`
	OriginalName string `json:"original_name,omitempty"`
	Title        string `json:"title,omitempty"`
	// Outline lists the H1/H2 headings of the notebook's markdown cells.
	Outline []string `json:"outline,omitempty"`
	// Content is the notebook source with a provenance header prepended.
	Content string `json:"content,omitempty"`
	// Found indicates whether the notebook exists.
	Found bool `json:"found"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct{}

// StatusOutput reports the state of the notebook index.
type StatusOutput struct {
	TotalNotebooks int          `json:"total_notebooks"`
	LastIndexTime  *time.Time   `json:"last_index_time,omitempty"`
	Repositories   []RepoStatus `json:"repositories"`
	Message        string       `json:"message,omitempty"`
}

// RepoStatus is the indexed state of one repository.
type RepoStatus struct {
	Repository string `json:"repository"`
	Commit     string `json:"commit"`
	// CommitsBehind is nil when the remote could not be compared.
	CommitsBehind *int   `json:"commits_behind,omitempty"`
	StaleWarning  string `json:"stale_warning,omitempty"`
	// LatestNotebookCommit is the newest remote commit touching notebooks/.
	LatestNotebookCommit string `json:"latest_notebook_commit,omitempty"`
}
