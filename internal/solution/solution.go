// Package solution enumerates the member projects of a Visual Studio
// solution manifest (.sln).
package solution

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"dlldepends/internal/filesource"
)

// ErrNoParent is returned when the manifest path has no parent directory to
// resolve project paths against.
var ErrNoParent = errors.New("solution path has no parent directory")

// FolderTypeGUID is the project type of solution folders, which group
// projects in the IDE but have no project document.
const FolderTypeGUID = "{2150E333-8FDC-42A3-9474-1A3956D46DE8}"

const projectPrefix = "Project("

// Project is one Project(...) declaration of a manifest.
type Project struct {
	TypeGUID string
	Name     string
	// Path is the manifest directory joined with the declared relative path.
	Path string
	GUID string
}

// IsFolder reports whether the entry is a solution folder.
func (p Project) IsFolder() bool {
	return strings.EqualFold(p.TypeGUID, FolderTypeGUID)
}

// Parse extracts project declarations from manifest text, in order of
// appearance. Lines that do not start with "Project(" are ignored, as are
// declarations without a path field.
func Parse(text, dir string) []Project {
	text = strings.TrimPrefix(text, "\ufeff")

	var projects []Project
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, projectPrefix) {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}

		p := Project{
			TypeGUID: typeGUID(parts[0]),
			Name:     declaredName(parts[0]),
			Path:     joinPath(dir, unquote(parts[1])),
		}
		if len(parts) > 2 {
			p.GUID = unquote(parts[2])
		}
		projects = append(projects, p)
	}
	return projects
}

// Load reads and parses the manifest at solutionPath.
func Load(src filesource.FileSource, solutionPath string) ([]Project, error) {
	dir, err := parentDir(solutionPath)
	if err != nil {
		return nil, err
	}

	data, err := src.ReadFile(solutionPath)
	if err != nil {
		return nil, fmt.Errorf("reading solution file: %w", err)
	}

	return Parse(string(data), dir), nil
}

// EnumerateProjects returns the project paths declared by the manifest at
// solutionPath, each joined onto the manifest's directory.
func EnumerateProjects(src filesource.FileSource, solutionPath string) ([]string, error) {
	projects, err := Load(src, solutionPath)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(projects))
	for _, p := range projects {
		paths = append(paths, p.Path)
	}
	return paths, nil
}

func parentDir(solutionPath string) (string, error) {
	if solutionPath == "" {
		return "", ErrNoParent
	}
	dir := filepath.Dir(solutionPath)
	if dir == solutionPath {
		return "", fmt.Errorf("%s: %w", solutionPath, ErrNoParent)
	}
	return dir, nil
}

// unquote trims whitespace and one layer of enclosing double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return s
}

func joinPath(dir, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(dir, rel)
}

// typeGUID extracts {guid} from `Project("{guid}") = "Name"`.
func typeGUID(head string) string {
	rest := strings.TrimPrefix(head, projectPrefix)
	end := strings.Index(rest, ")")
	if end < 0 {
		return ""
	}
	return unquote(rest[:end])
}

// declaredName extracts Name from `Project("{guid}") = "Name"`.
func declaredName(head string) string {
	eq := strings.Index(head, "=")
	if eq < 0 {
		return ""
	}
	return unquote(head[eq+1:])
}
