// Package finder drives a dependency search over every project of a
// solution and aggregates the results.
package finder

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dlldepends/internal/classify"
	"dlldepends/internal/filesource"
	"dlldepends/internal/ignore"
	"dlldepends/internal/module"
	"dlldepends/internal/solution"
	"dlldepends/internal/util"
)

// Record is a project that references the target.
type Record struct {
	ProjectPath string        `json:"projectPath"`
	Kind        classify.Kind `json:"kind"`
	Dialect     string        `json:"dialect,omitempty"`
	Modules     []string      `json:"modules,omitempty"`
	Cached      bool          `json:"cached,omitempty"`
}

// Failure is a project that could not be classified.
type Failure struct {
	ProjectPath string
	Err         error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.ProjectPath, f.Err)
}

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error {
	return f.Err
}

// Result aggregates one search.
type Result struct {
	Solution   string
	Target     string
	SourceType string
	SourceID   string
	// Scanned counts projects whose document was classified or served from cache.
	Scanned int
	// Skipped lists projects excluded by ignore patterns.
	Skipped  []string
	Matches  []Record
	Failures []Failure
}

// Found reports whether any project references the target.
func (r *Result) Found() bool {
	return len(r.Matches) > 0
}

// Store is a persistent classification cache.
type Store interface {
	Get(path, digest, target string) (classify.Kind, bool, error)
	Put(path, digest, target string, kind classify.Kind) error
}

// Finder searches solutions read from a FileSource.
type Finder struct {
	src     filesource.FileSource
	log     logrus.FieldLogger
	workers int
	store   Store
	ignore  *ignore.Matcher
	modules *module.Matcher
}

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger for the diagnostic trace.
func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Finder) {
		f.log = l
	}
}

// WithWorkers classifies up to n projects concurrently. n <= 1 runs
// sequentially.
func WithWorkers(n int) Option {
	return func(f *Finder) {
		f.workers = n
	}
}

// WithCache consults and fills s for every project.
func WithCache(s Store) Option {
	return func(f *Finder) {
		f.store = s
	}
}

// WithIgnore skips projects whose solution-relative path matches m.
func WithIgnore(m *ignore.Matcher) Option {
	return func(f *Finder) {
		f.ignore = m
	}
}

// WithModules tags matches with the modules their path belongs to.
func WithModules(m *module.Matcher) Option {
	return func(f *Finder) {
		f.modules = m
	}
}

// New creates a Finder reading from src.
func New(src filesource.FileSource, opts ...Option) *Finder {
	f := &Finder{src: src, workers: 1}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		f.log = l
	}
	return f
}

type outcome struct {
	record  *Record
	failure *Failure
}

type candidate struct {
	path string
	rel  string
}

// Find enumerates the solution's projects and classifies each against
// target. Only an unusable solution manifest or a cancelled context is
// returned as an error; project-level problems are collected in
// Result.Failures.
func (f *Finder) Find(ctx context.Context, solutionPath, target string) (*Result, error) {
	projects, err := solution.Load(f.src, solutionPath)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Solution:   solutionPath,
		Target:     target,
		SourceType: f.src.SourceType(),
		SourceID:   f.src.Identifier(),
	}

	dir := filepath.Dir(solutionPath)
	var candidates []candidate
	for _, p := range projects {
		if p.IsFolder() {
			f.log.Debugf("skipping solution folder: %s", p.Name)
			continue
		}
		rel := relPath(dir, p.Path)
		if f.ignore.Match(rel) {
			f.log.Debugf("ignoring project: %s", p.Path)
			res.Skipped = append(res.Skipped, p.Path)
			continue
		}
		candidates = append(candidates, candidate{path: p.Path, rel: rel})
	}

	outcomes, err := f.classifyAll(ctx, candidates, target)
	if err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		switch {
		case o.failure != nil:
			res.Failures = append(res.Failures, *o.failure)
		case o.record != nil:
			res.Scanned++
			if o.record.Kind != classify.None {
				res.Matches = append(res.Matches, *o.record)
			}
		}
	}
	return res, nil
}

// classifyAll returns one outcome per candidate, in candidate order.
func (f *Finder) classifyAll(ctx context.Context, candidates []candidate, target string) ([]outcome, error) {
	outcomes := make([]outcome, len(candidates))

	if f.workers <= 1 {
		for i, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = f.classifyProject(c, target)
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = f.classifyProject(c, target)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (f *Finder) classifyProject(c candidate, target string) outcome {
	log := f.log.WithField("project", c.rel)
	log.Infof("Reading project: %s", c.path)

	data, err := f.src.ReadFile(c.path)
	if err != nil {
		log.WithError(err).Warn("skipping unreadable project")
		return outcome{failure: &Failure{ProjectPath: c.path, Err: err}}
	}

	normalized := classify.NormalizeTarget(target)
	rec := &Record{ProjectPath: c.path}

	var digest string
	if f.store != nil {
		digest = util.Blake3HashHex(data)
		kind, ok, err := f.store.Get(c.path, digest, normalized)
		if err != nil {
			log.WithError(err).Warn("cache lookup failed")
		}
		if ok {
			log.Debugf("cache hit: %s (%s)", kind, util.ShortID(digest))
			rec.Kind = kind
			rec.Cached = true
		}
	}

	if !rec.Cached {
		classifier := classify.New(classify.WithLogger(log))
		kind, err := classifier.ClassifyNormalized(data, normalized)
		if err != nil {
			log.WithError(err).Warn("skipping undecodable project")
			return outcome{failure: &Failure{ProjectPath: c.path, Err: err}}
		}
		rec.Kind = kind

		if f.store != nil {
			if err := f.store.Put(c.path, digest, normalized, kind); err != nil {
				log.WithError(err).Warn("cache update failed")
			}
		}
	}

	if rec.Kind != classify.None {
		if d, err := classify.DetectDialect(data); err == nil {
			rec.Dialect = d.Style()
		}
		rec.Modules = f.modules.MatchPath(c.rel)
	}
	return outcome{record: rec}
}

func relPath(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return path
	}
	return rel
}
