// Package ignore provides gitignore-style pattern matching for excluding
// projects from a scan.
package ignore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"dlldepends/internal/filesource"
)

// FileName is the per-solution ignore file, read from the solution directory.
const FileName = ".dlldependsignore"

// Pattern represents a single ignore pattern with its properties.
type Pattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool // Pattern starts with / (matches from root only)
}

// Matcher holds compiled ignore patterns.
type Matcher struct {
	patterns []Pattern
}

// Compile creates a matcher from a list of pattern strings.
func Compile(patterns []string) *Matcher {
	m := &Matcher{}
	m.AddPatterns(patterns)
	return m
}

// Len returns the number of active patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// AddPattern adds a single pattern string to the matcher.
func (m *Matcher) AddPattern(line string) {
	line = strings.TrimSpace(line)

	// Skip empty lines and comments
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	line = strings.ReplaceAll(line, `\`, "/")
	p := Pattern{}

	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}

	// Unless anchored, patterns without / match the basename anywhere
	if !p.anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}

	p.pattern = line
	m.patterns = append(m.patterns, p)
}

// AddPatterns adds multiple pattern strings to the matcher.
func (m *Matcher) AddPatterns(lines []string) {
	for _, line := range lines {
		m.AddPattern(line)
	}
}

// Load adds the patterns of a gitignore-style document, one per line.
func (m *Matcher) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// LoadFromSource compiles extra and then appends the ignore file found in dir
// of src, if any. File patterns come last so they can negate extras. Reading
// through src means a Git source sees the ignore file committed at its ref.
func LoadFromSource(src filesource.FileSource, dir string, extra []string) (*Matcher, error) {
	m := Compile(extra)

	data, err := src.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, filesource.ErrNotFound) {
			return m, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	if err := m.Load(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return m, nil
}

// Match reports whether a project file should be skipped. path is relative
// to the solution directory; both separator styles are accepted. The last
// matching pattern wins.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	path = strings.ReplaceAll(filepath.ToSlash(path), `\`, "/")
	path = strings.TrimPrefix(path, "./")

	ignored := false
	for _, p := range m.patterns {
		var matched bool
		if p.dirOnly {
			matched = matchDirPattern(p.pattern, path)
		} else {
			matched = matchPattern(p.pattern, path)
		}
		if matched {
			ignored = !p.negated
		}
	}
	return ignored
}

// matchDirPattern checks whether any parent directory of path matches.
func matchDirPattern(pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if matchPattern(pattern, strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, path string) bool {
	if matched, _ := doublestar.Match(pattern, path); matched {
		return true
	}

	// "legacy" also matches "legacy/Old/Old.csproj"
	if !strings.HasSuffix(pattern, "/**") {
		if matched, _ := doublestar.Match(pattern+"/**", path); matched {
			return true
		}
	}
	return false
}
