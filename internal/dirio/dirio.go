// Package dirio provides the working-tree file source.
package dirio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"dlldepends/internal/filesource"
)

// DefaultCacheSize is the number of documents kept in memory.
const DefaultCacheSize = 256

// DirectorySource reads files from the local filesystem.
type DirectorySource struct {
	rootPath  string
	cacheSize int
	docs      *lru.Cache[string, []byte]
}

// Option configures a DirectorySource.
type Option func(*DirectorySource)

// WithCacheSize sets how many documents are kept in memory. Zero disables
// the read cache.
func WithCacheSize(n int) Option {
	return func(ds *DirectorySource) {
		ds.cacheSize = n
	}
}

// OpenDirectory opens the directory that relative paths are resolved
// against. An empty dirPath means the current working directory.
func OpenDirectory(dirPath string, opts ...Option) (*DirectorySource, error) {
	if dirPath == "" {
		dirPath = "."
	}
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absPath)
	}

	ds := &DirectorySource{rootPath: absPath, cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(ds)
	}

	if ds.cacheSize > 0 {
		ds.docs, err = lru.New[string, []byte](ds.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating read cache: %w", err)
		}
	}

	return ds, nil
}

// Abs resolves path against the source root.
func (ds *DirectorySource) Abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(ds.rootPath, path)
}

// ReadFile returns the content of path. Manifests written on Windows use
// backslash separators; when the literal path does not exist on this
// platform the slash form is tried as well.
func (ds *DirectorySource) ReadFile(path string) ([]byte, error) {
	full := ds.Abs(path)
	if ds.docs != nil {
		if data, ok := ds.docs.Get(full); ok {
			return data, nil
		}
	}

	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) && runtime.GOOS != "windows" && strings.Contains(full, `\`) {
		data, err = os.ReadFile(strings.ReplaceAll(full, `\`, "/"))
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", path, filesource.ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if ds.docs != nil {
		ds.docs.Add(full, data)
	}
	return data, nil
}

// Identifier returns the absolute root directory.
func (ds *DirectorySource) Identifier() string {
	return ds.rootPath
}

// SourceType returns "directory".
func (ds *DirectorySource) SourceType() string {
	return "directory"
}
