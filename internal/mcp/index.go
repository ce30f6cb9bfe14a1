package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mike-a-ellis/notebook-host/internal/indexer"
	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// ErrNotebookNotFound is returned when a name is not in the index.
var ErrNotebookNotFound = errors.New("notebook not found")

// Index reads the published notebook directory and its manifest.
type Index struct {
	Dir          string
	ManifestPath string
}

// List returns every published notebook in name order. Titles come from
// the manifest when one is available.
func (ix *Index) List() ([]NotebookEntry, error) {
	entries, err := os.ReadDir(ix.Dir)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string)
	if m, err := ix.Manifest(); err == nil {
		for _, d := range m.Documents {
			titles[d.IndexedName] = d.Title
		}
	}

	out := make([]NotebookEntry, 0, len(entries))
	for _, e := range entries {
		ref, file, err := notebook.ParseIndexedName(e.Name())
		if err != nil {
			continue
		}
		out = append(out, NotebookEntry{
			Name:         e.Name(),
			Repository:   ref.String(),
			OriginalName: file,
			Title:        titles[e.Name()],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the content of the named notebook.
func (ix *Index) Read(name string) ([]byte, error) {
	if name == "" || strings.HasPrefix(name, ".") || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: %q", ErrNotebookNotFound, name)
	}
	b, err := os.ReadFile(filepath.Join(ix.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotebookNotFound, name)
	}
	return b, err
}

// Manifest loads the sidecar manifest written by the indexer.
func (ix *Index) Manifest() (*indexer.Manifest, error) {
	if ix.ManifestPath == "" {
		return nil, fs.ErrNotExist
	}
	return indexer.ReadManifest(ix.ManifestPath)
}

// Health reports whether the index directory is readable.
func (ix *Index) Health(ctx context.Context) error {
	f, err := os.Open(ix.Dir)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return ctx.Err()
}
