package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// Manifest records the provenance of the last published index.
type Manifest struct {
	IndexedAt    time.Time          `json:"indexed_at"`
	Repositories []ManifestRepo     `json:"repositories"`
	Documents    []ManifestDocument `json:"documents"`
}

// ManifestRepo is the synced state of one repository.
type ManifestRepo struct {
	Repository string `json:"repository"` // "owner/name"
	Commit     string `json:"commit"`
}

// ManifestDocument describes one published notebook.
type ManifestDocument struct {
	IndexedName  string `json:"indexed_name"`
	Repository   string `json:"repository"`
	OriginalName string `json:"original_name"`
	Title        string `json:"title,omitempty"`
}

// ReadManifest loads a manifest written by IndexAll.
func ReadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

func (ix *Indexer) writeManifest(sources []Source, docs []notebook.IndexedDocument) error {
	m := Manifest{
		IndexedAt:    ix.now().UTC().Truncate(time.Second),
		Repositories: make([]ManifestRepo, 0, len(sources)),
		Documents:    make([]ManifestDocument, 0, len(docs)),
	}
	for _, src := range sources {
		m.Repositories = append(m.Repositories, ManifestRepo{Repository: src.Ref.String(), Commit: src.Commit})
	}
	for _, doc := range docs {
		entry := ManifestDocument{
			IndexedName:  doc.IndexedName,
			Repository:   doc.Source.String(),
			OriginalName: doc.OriginalName,
		}
		if content, err := os.ReadFile(doc.Path); err == nil {
			entry.Title = ix.outliner.Title(content)
		}
		m.Documents = append(m.Documents, entry)
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := ix.opts.ManifestPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
