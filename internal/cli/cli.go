// Package cli implements the drbmap command-line interface.
//
// The commands are:
//   - map: map a source graph onto a target architecture
//   - tree: draw the job tree of a mapping run
//   - gen: write generated source graphs in Scotch, Chaco or JSON format
//   - arch: describe a target architecture
//   - runs: list and show recorded mapping runs
//   - serve: start the HTTP API
//   - cache: manage the result cache
//
// All commands read the configuration file given by --config (see
// package config) and support --verbose (-v) for debug logging. The
// logger is carried in the command context.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/drbmap/pkg/buildinfo"
	"github.com/matzehuels/drbmap/pkg/cache"
	"github.com/matzehuels/drbmap/pkg/config"
	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/pipeline"
	"github.com/matzehuels/drbmap/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName prefixes error messages.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "drbmap maps process graphs onto target architectures",
		Long: `drbmap maps the vertices of a source graph onto the processors of a target
architecture by dual recursive bipartitioning: the graph and the architecture
are split in halves together until every part sits on a single processor.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "configuration file (default $XDG_CONFIG_HOME/drbmap/config.toml)")

	root.AddCommand(c.mapCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.genCommand())
	root.AddCommand(c.archCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// FormatError renders err the way the CLI reports failures.
func FormatError(err error) string {
	return fmt.Sprintf("%s: ERROR: %s", appName, errors.UserMessage(err))
}

// =============================================================================
// Runner Factory
// =============================================================================

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// newRunner creates a pipeline runner from the configuration.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, noCache bool, logger *log.Logger) (*pipeline.Runner, error) {
	cc := cfg.Cache.CacheConfig()
	if noCache {
		cc.Backend = cache.BackendNone
	}
	rc, err := cache.Open(ctx, cc)
	if err != nil {
		logger.Warn("caching disabled", "backend", cc.Backend, "err", err)
		rc = cache.NewNullCache()
	}

	st, err := store.Open(ctx, cfg.Store.StoreConfig())
	if err != nil {
		rc.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open %s store", cfg.Store.Backend)
	}

	r := pipeline.NewRunner(rc, nil, st, logger)
	if cfg.Cache.TTL.Duration > 0 {
		r.TTL = cfg.Cache.TTL.Duration
	}
	return r, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions returns the run options of the configuration file.
func pipelineOptions(cfg config.Config) pipeline.Options {
	m := cfg.Mapping
	return pipeline.Options{
		Arch:            m.Arch,
		Policy:          m.Policy,
		TieJobs:         m.TieJobs,
		TieMapping:      m.TieMapping,
		Seed:            m.Seed,
		Workers:         m.Workers,
		InitialJobs:     m.InitialJobs,
		MaxJobs:         m.MaxJobs,
		CheckInvariants: m.CheckInvariants,
		Strategy:        cfg.Strategy.GraphGrowing(),
	}
}
