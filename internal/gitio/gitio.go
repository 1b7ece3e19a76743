// Package gitio reads solution and project files at a Git ref using go-git.
package gitio

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"dlldepends/internal/filesource"
)

// Repository wraps a go-git repository.
type Repository struct {
	repo *git.Repository
	path string
}

// Open opens an existing Git repository.
func Open(repoPath string) (*Repository, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	repo, err := git.PlainOpen(absPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &Repository{repo: repo, path: absPath}, nil
}

// ResolveRef resolves a branch name, tag, commit hash or revision
// expression (HEAD, HEAD~1, ...) to a commit.
func (r *Repository) ResolveRef(refName string) (*object.Commit, error) {
	// Try as a branch first
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(refName), true)
	if err == nil {
		return r.commitFor(ref.Hash())
	}

	// Try as a tag
	ref, err = r.repo.Reference(plumbing.NewTagReferenceName(refName), true)
	if err == nil {
		return r.commitFor(ref.Hash())
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(refName))
	if err != nil {
		return nil, fmt.Errorf("resolving ref %q: not a branch, tag, or commit hash", refName)
	}
	return r.commitFor(*hash)
}

// commitFor peels annotated tags down to their commit.
func (r *Repository) commitFor(hash plumbing.Hash) (*object.Commit, error) {
	if tag, err := r.repo.TagObject(hash); err == nil {
		commit, err := tag.Commit()
		if err != nil {
			return nil, fmt.Errorf("getting tagged commit: %w", err)
		}
		return commit, nil
	}
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("getting commit: %w", err)
	}
	return commit, nil
}

// GetFile returns the content of a repository-relative path in a commit.
func (r *Repository) GetFile(commit *object.Commit, relPath string) ([]byte, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}

	f, err := tree.File(relPath)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("getting file %s: %w", relPath, filesource.ErrNotFound)
		}
		return nil, fmt.Errorf("getting file %s: %w", relPath, err)
	}

	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", relPath, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", relPath, err)
	}
	return content, nil
}

// GetCommitHash returns the hash of a commit as a string.
func GetCommitHash(commit *object.Commit) string {
	return commit.Hash.String()
}

// Source is a FileSource that serves files from one commit.
type Source struct {
	repo   *Repository
	commit *object.Commit
}

// OpenSource opens repoPath and pins the source to refName.
func OpenSource(repoPath, refName string) (*Source, error) {
	repo, err := Open(repoPath)
	if err != nil {
		return nil, err
	}
	commit, err := repo.ResolveRef(refName)
	if err != nil {
		return nil, err
	}
	return &Source{repo: repo, commit: commit}, nil
}

// ReadFile returns the committed content of p. p may be absolute inside the
// repository working directory or relative to its root, with either
// separator style.
func (s *Source) ReadFile(p string) ([]byte, error) {
	rel, err := s.relPath(p)
	if err != nil {
		return nil, err
	}
	return s.repo.GetFile(s.commit, rel)
}

func (s *Source) relPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(s.repo.path, p)
		if err != nil {
			return "", fmt.Errorf("making %s relative to repository: %w", p, err)
		}
		p = rel
	}
	p = strings.ReplaceAll(filepath.ToSlash(p), `\`, "/")
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%s is outside the repository: %w", p, filesource.ErrNotFound)
	}
	return p, nil
}

// Identifier returns the commit hash.
func (s *Source) Identifier() string {
	return GetCommitHash(s.commit)
}

// SourceType returns "git".
func (s *Source) SourceType() string {
	return "git"
}
