// Package module groups projects into named modules via path glob rules.
package module

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ModuleRule defines a module with its path patterns. Patterns are matched
// against project paths relative to the solution directory, using forward
// slashes.
type ModuleRule struct {
	Name  string   `yaml:"name"`
	Paths []string `yaml:"paths"`
}

// Matcher matches project paths to modules.
type Matcher struct {
	modules []ModuleRule
}

// NewMatcher creates a matcher from a list of module rules.
func NewMatcher(modules []ModuleRule) *Matcher {
	return &Matcher{modules: modules}
}

// MatchPath returns the names of modules that match the given path, in rule
// order.
func (m *Matcher) MatchPath(path string) []string {
	if m == nil {
		return nil
	}
	path = strings.ReplaceAll(filepath.ToSlash(path), `\`, "/")
	path = strings.TrimPrefix(path, "./")

	var matched []string
	for _, mod := range m.modules {
		for _, pattern := range mod.Paths {
			match, err := doublestar.Match(pattern, path)
			if err != nil {
				continue
			}
			if match {
				matched = append(matched, mod.Name)
				break // Only add each module once
			}
		}
	}

	return matched
}
