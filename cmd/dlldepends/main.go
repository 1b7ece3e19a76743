// Package main provides the dlldepends CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dlldepends/internal/cache"
	"dlldepends/internal/config"
	"dlldepends/internal/dirio"
	"dlldepends/internal/filesource"
	"dlldepends/internal/finder"
	"dlldepends/internal/gitio"
	"dlldepends/internal/ignore"
	"dlldepends/internal/module"
	"dlldepends/internal/report"
)

const usageLine = "Usage: dlldepends <solution file path> <dll name>"

const (
	exitFatal = 1
	exitUsage = 2
)

// usageError marks a wrong command line.
type usageError struct{}

func (usageError) Error() string { return usageLine }

type options struct {
	configPath string
	gitRef     string
	repoPath   string
	workers    int
	useCache   bool
	cacheDir   string
	exclude    []string
	jsonOut    bool
	verbose    bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "dlldepends <solution-file-path> <target-name>",
		Short: "Find the projects of a solution that reference a component",
		Long: `dlldepends reads a Visual Studio solution, scans every project it lists and
reports the ones that reference the target as a Reference, PackageReference or
ProjectReference. A trailing .dll on the target is ignored.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageError{}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the config file (default "+config.DefaultFile+" if present)")
	flags.StringVar(&opts.gitRef, "git", "", "Read the solution and projects at this Git ref instead of the working tree")
	flags.StringVar(&opts.repoPath, "repo", ".", "Path to the Git repository (with --git)")
	flags.IntVar(&opts.workers, "workers", 0, "Number of projects to classify concurrently")
	flags.BoolVar(&opts.useCache, "cache", false, "Cache classifications between runs")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Directory holding the classification cache (implies --cache)")
	flags.StringArrayVar(&opts.exclude, "exclude", nil, "Skip projects matching this pattern (repeatable)")
	flags.BoolVar(&opts.jsonOut, "json", false, "Output as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show the full scanning trace")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

var rootCmd = newRootCmd()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, rootCmd, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs cmd and maps its error to an exit code.
func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stdout, usageLine)
		return exitUsage
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitFatal
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	path, required := opts.configPath, true
	if path == "" {
		path, required = config.DefaultFile, false
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}

	config.LoadDotEnv()
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if opts.useCache {
		cfg.Cache.Enabled = true
	}
	if opts.cacheDir != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Dir = opts.cacheDir
	}
	cfg.Exclude = append(cfg.Exclude, opts.exclude...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options, solutionArg, target string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	logOut := stdout
	if opts.jsonOut {
		logOut = cmd.ErrOrStderr()
	}
	logger := cfg.NewLogger(logOut)

	solutionPath, err := filepath.Abs(solutionArg)
	if err != nil {
		return fmt.Errorf("resolving solution path: %w", err)
	}
	solutionDir := filepath.Dir(solutionPath)

	var src filesource.FileSource
	if opts.gitRef != "" {
		gs, err := gitio.OpenSource(opts.repoPath, opts.gitRef)
		if err != nil {
			return err
		}
		src = gs
	} else {
		ds, err := dirio.OpenDirectory(solutionDir, dirio.WithCacheSize(cfg.ReadCacheSize))
		if err != nil {
			return err
		}
		src = ds
	}
	logger.Debugf("reading %s source %s", src.SourceType(), src.Identifier())

	matcher, err := ignore.LoadFromSource(src, solutionDir, cfg.Exclude)
	if err != nil {
		return err
	}
	logger.Debugf("%d ignore patterns", matcher.Len())

	finderOpts := []finder.Option{
		finder.WithLogger(logger),
		finder.WithWorkers(cfg.Workers),
		finder.WithIgnore(matcher),
	}
	if len(cfg.Modules) > 0 {
		finderOpts = append(finderOpts, finder.WithModules(module.NewMatcher(cfg.Modules)))
	}
	if cfg.Cache.Enabled {
		store, err := openCache(cfg, solutionDir)
		if err != nil {
			return err
		}
		defer store.Close()
		if stats, err := store.Stats(); err == nil {
			logger.Debugf("using cache %s (%d entries)", store.Path(), stats.TotalEntries)
		}
		finderOpts = append(finderOpts, finder.WithCache(store))
	}

	res, err := finder.New(src, finderOpts...).Find(cmd.Context(), solutionPath, target)
	if err != nil {
		return err
	}

	// Report the solution as given on the command line.
	res.Solution = solutionArg

	format := report.FormatDefault
	if opts.jsonOut {
		format = report.FormatJSON
	}
	return report.WriteOutput(stdout, res, format)
}

func openCache(cfg *config.Config, solutionDir string) (*cache.Cache, error) {
	dir := cfg.Cache.Dir
	if dir == "" {
		dir = solutionDir
	}
	store, err := cache.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}
