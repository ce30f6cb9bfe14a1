// Package notebook defines the repository and notebook model shared by the
// synchronizer, the indexer and the MCP server.
package notebook

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// Separator joins the encoded owner, encoded repository name and original
	// file name in working-copy directory names and indexed names.
	Separator = "__"

	// NotebooksDir is the directory inside a working copy holding notebooks.
	NotebooksDir = "notebooks"

	// Extension is the file extension of candidate notebooks.
	Extension = ".jl"

	// Marker must appear near the top of a file for it to be indexed.
	Marker = "### A Pluto.jl notebook ###"
)

var (
	ErrInvalidRef         = errors.New("invalid repository reference")
	ErrInvalidIndexedName = errors.New("invalid indexed name")
)

var (
	ownerPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})$`)
	namePattern  = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)
)

// RepositoryRef identifies one GitHub repository.
type RepositoryRef struct {
	Owner string `toml:"owner"`
	Name  string `toml:"repo"`
}

func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// Validate checks owner and name against the GitHub identifier grammar.
func (r RepositoryRef) Validate() error {
	if !ownerPattern.MatchString(r.Owner) {
		return fmt.Errorf("%w: owner %q", ErrInvalidRef, r.Owner)
	}
	if !namePattern.MatchString(r.Name) || r.Name == "." || r.Name == ".." {
		return fmt.Errorf("%w: repo %q", ErrInvalidRef, r.Name)
	}
	return nil
}

// ParseRef parses "owner/name".
func ParseRef(s string) (RepositoryRef, error) {
	owner, name, ok := strings.Cut(s, "/")
	ref := RepositoryRef{Owner: owner, Name: name}
	if !ok {
		return ref, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	if err := ref.Validate(); err != nil {
		return ref, err
	}
	return ref, nil
}

// Key returns the case-folded identity GitHub uses for the repository.
func (r RepositoryRef) Key() string {
	return strings.ToLower(r.String())
}

// DirName is the working-copy directory name for the repository.
func (r RepositoryRef) DirName() string {
	return EncodeComponent(r.Owner) + Separator + EncodeComponent(r.Name)
}

// EncodeComponent escapes every "_" as "_~". Since "~" never occurs in
// GitHub identifiers, an encoded component can neither contain Separator
// nor end in "_", which keeps IndexedName injective.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(s, "_", "_~")
}

// DecodeComponent reverses EncodeComponent.
func DecodeComponent(s string) string {
	return strings.ReplaceAll(s, "_~", "_")
}

// IndexedName is the flat index name of file from repository ref.
func IndexedName(ref RepositoryRef, file string) string {
	return ref.DirName() + Separator + file
}

// ParseIndexedName splits an indexed name back into its repository and
// original file name.
func ParseIndexedName(name string) (RepositoryRef, string, error) {
	owner, rest, ok := strings.Cut(name, Separator)
	if !ok {
		return RepositoryRef{}, "", fmt.Errorf("%w: %q", ErrInvalidIndexedName, name)
	}
	repo, file, ok := strings.Cut(rest, Separator)
	if !ok || file == "" {
		return RepositoryRef{}, "", fmt.Errorf("%w: %q", ErrInvalidIndexedName, name)
	}
	ref := RepositoryRef{Owner: DecodeComponent(owner), Name: DecodeComponent(repo)}
	if err := ref.Validate(); err != nil {
		return RepositoryRef{}, "", fmt.Errorf("%w: %q: %v", ErrInvalidIndexedName, name, err)
	}
	return ref, file, nil
}

// CandidateDocument is a file matching notebooks/*.jl inside a working copy.
type CandidateDocument struct {
	Path     string        // Absolute path inside the working copy
	Ref      RepositoryRef // Owning repository
	FileName string        // Base name, e.g. "analysis.jl"
}

// IndexedDocument is a validated candidate published into the index.
type IndexedDocument struct {
	Source       RepositoryRef
	OriginalName string
	IndexedName  string
	Path         string // Absolute path of the working-copy file
}
