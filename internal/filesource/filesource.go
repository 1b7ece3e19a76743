// Package filesource provides abstractions for reading solution and project
// files from different sources.
package filesource

import "errors"

// ErrNotFound is returned when a file does not exist in the source.
var ErrNotFound = errors.New("file not found")

// FileSource abstracts where files are read from (working tree, Git, ...).
// Paths are the ones produced by the solution enumerator: the solution path
// joined with project paths exactly as written in the manifest.
type FileSource interface {
	// ReadFile returns the full content of the file at path.
	ReadFile(path string) ([]byte, error)

	// Identifier returns a unique identifier for this source state.
	// For Git: commit hash. For directories: the absolute root.
	Identifier() string

	// SourceType returns the type of source ("git" or "directory").
	SourceType() string
}
