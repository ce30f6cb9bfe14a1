package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	cp "github.com/otiai10/copy"

	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// SniffBytes is how much of a candidate is searched for notebook.Marker.
const SniffBytes = 1024

// Publish modes.
const (
	PublishSymlink = "symlink"
	PublishCopy    = "copy"
)

// Source is one synchronized working copy to index.
type Source struct {
	Ref    notebook.RepositoryRef
	Path   string // Working-copy root
	Commit string // HEAD after sync, recorded in the manifest
}

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	Documents []notebook.IndexedDocument
	Skipped   []SkippedDoc
	Duration  time.Duration
}

// Count is the number of published documents.
func (r *IndexResult) Count() int {
	return len(r.Documents)
}

// SkippedDoc represents a candidate that was not published.
type SkippedDoc struct {
	Path   string
	Reason string
}

// Options configures an Indexer.
type Options struct {
	IndexDir     string
	PublishMode  string // PublishSymlink (default) or PublishCopy
	ManifestPath string // Optional sidecar manifest; empty disables it
}

// Indexer rebuilds the flat notebook index from working copies.
type Indexer struct {
	opts     Options
	outliner *notebook.Outliner
	logger   *slog.Logger
	now      func() time.Time
}

// NewIndexer creates a new indexer with the given options.
func NewIndexer(opts Options, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PublishMode == "" {
		opts.PublishMode = PublishSymlink
	}
	return &Indexer{
		opts:     opts,
		outliner: notebook.NewOutliner(),
		logger:   logger,
		now:      time.Now,
	}
}

// IndexAll clears the index directory and publishes every valid notebook
// found in the sources. Any error is fatal; skipped candidates are reported
// in the result instead.
func (ix *Indexer) IndexAll(ctx context.Context, sources []Source) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}

	// 1. Clear the index
	if err := ix.Reset(); err != nil {
		return nil, err
	}

	// 2. Collect candidates from every working copy
	var valid []notebook.CandidateDocument
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates, err := ix.Candidates(src)
		if err != nil {
			return nil, fmt.Errorf("list candidates of %s: %w", src.Ref, err)
		}
		ix.logger.Debug("Found candidates", "repo", src.Ref.String(), "count", len(candidates))

		// 3. Validate by header sniff
		for _, c := range candidates {
			if err := Validate(c.Path); err != nil {
				ix.logger.Warn("Skipping notebook", "path", c.Path, "reason", err)
				result.Skipped = append(result.Skipped, SkippedDoc{Path: c.Path, Reason: err.Error()})
				continue
			}
			valid = append(valid, c)
		}
	}

	// 4. Publish in name order so the index does not depend on enumeration order
	docs := make([]notebook.IndexedDocument, 0, len(valid))
	for _, c := range valid {
		docs = append(docs, notebook.IndexedDocument{
			Source:       c.Ref,
			OriginalName: c.FileName,
			IndexedName:  notebook.IndexedName(c.Ref, c.FileName),
			Path:         c.Path,
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].IndexedName < docs[j].IndexedName })
	for i := 1; i < len(docs); i++ {
		if docs[i].IndexedName == docs[i-1].IndexedName {
			return nil, &CollisionError{Name: docs[i].IndexedName, First: docs[i-1].Path, Second: docs[i].Path}
		}
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := ix.publish(doc); err != nil {
			return nil, err
		}
		ix.logger.Debug("Published notebook", "name", doc.IndexedName)
	}
	result.Documents = docs

	// 5. Sidecar manifest for the MCP server
	if ix.opts.ManifestPath != "" {
		if err := ix.writeManifest(sources, docs); err != nil {
			ix.logger.Warn("Failed to write index manifest", "path", ix.opts.ManifestPath, "error", err)
		}
	}

	result.Duration = time.Since(start)
	ix.logger.Info("Indexing complete",
		"documents", result.Count(),
		"skipped", len(result.Skipped),
		"duration", result.Duration,
	)
	return result, nil
}

// Reset removes every entry inside the index directory, creating the
// directory if needed. An already empty directory is not an error.
func (ix *Indexer) Reset() error {
	dir := ix.opts.IndexDir
	if dir == "" {
		return &IndexResetError{Dir: dir, Err: errors.New("index dir not set")}
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IndexResetError{Dir: dir, Err: err}
		}
		return nil
	}
	if err != nil {
		return &IndexResetError{Dir: dir, Err: err}
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return &IndexResetError{Dir: dir, Err: err}
		}
	}
	ix.logger.Debug("Index cleared", "dir", dir, "removed", len(entries))
	return nil
}

// Candidates lists <working copy>/notebooks/*.jl. Hidden files and
// anything that is not a regular file (after following symlinks) are
// ignored. A missing notebooks directory yields no candidates.
func (ix *Indexer) Candidates(src Source) ([]notebook.CandidateDocument, error) {
	dir := filepath.Join(src.Path, notebook.NotebooksDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && isNotDir(dir) {
			ix.logger.Warn("notebooks is not a directory", "repo", src.Ref.String())
			return nil, nil
		}
		return nil, err
	}

	var out []notebook.CandidateDocument
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || filepath.Ext(name) != notebook.Extension {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		out = append(out, notebook.CandidateDocument{Path: abs, Ref: src.Ref, FileName: name})
	}
	return out, nil
}

// Validate reports whether the first SniffBytes of the file contain
// notebook.Marker.
func Validate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, SniffBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if !bytes.Contains(head[:n], []byte(notebook.Marker)) {
		return ErrMarkerMissing
	}
	return nil
}

func (ix *Indexer) publish(doc notebook.IndexedDocument) error {
	dst := filepath.Join(ix.opts.IndexDir, doc.IndexedName)
	switch ix.opts.PublishMode {
	case PublishCopy:
		if _, err := os.Lstat(dst); err == nil {
			return &CollisionError{Name: doc.IndexedName, Second: doc.Path}
		}
		if err := cp.Copy(doc.Path, dst, cp.Options{
			OnSymlink: func(string) cp.SymlinkAction { return cp.Deep },
		}); err != nil {
			return fmt.Errorf("publish %s: %w", doc.IndexedName, err)
		}
	default:
		if err := os.Symlink(doc.Path, dst); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return &CollisionError{Name: doc.IndexedName, Second: doc.Path}
			}
			return fmt.Errorf("publish %s: %w", doc.IndexedName, err)
		}
	}
	return nil
}

func isNotDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
