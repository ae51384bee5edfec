package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/mapping"
	"github.com/matzehuels/drbmap/pkg/pipeline"
)

// mapFlags holds the mapping flags shared by map and tree. Flags override
// the configuration file only when given.
type mapFlags struct {
	arch       string
	policy     string
	tieJobs    bool
	tieMapping bool
	seed       uint64
	workers    int
	maxJobs    int
	check      bool
	noCache    bool
	progress   bool
}

func (f *mapFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.arch, "arch", "a", "", `target architecture, such as "hcub 3" or "tleaf 2 4 10 2 1"`)
	fl.StringVarP(&f.policy, "policy", "p", "", "job selection policy: random, level, size, neighbor, nglevel, ngsize, old")
	fl.BoolVar(&f.tieJobs, "tie-jobs", true, "process jobs in synchronized rounds")
	fl.BoolVar(&f.tieMapping, "tie-mapping", true, "canonicalize splits between equal subdomains")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed")
	fl.IntVarP(&f.workers, "workers", "w", 1, "concurrent bipartitions per tied round")
	fl.IntVar(&f.maxJobs, "max-jobs", 0, "fail when more jobs are needed (0 = unlimited)")
	fl.BoolVar(&f.check, "check", false, "verify vertex conservation after every job")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	fl.BoolVar(&f.progress, "progress", isTerminal(os.Stderr), "show live progress")
}

func (f *mapFlags) apply(cmd *cobra.Command, opts *pipeline.Options) {
	changed := cmd.Flags().Changed
	if changed("arch") {
		opts.Arch = f.arch
	}
	if changed("policy") {
		opts.Policy = f.policy
	}
	if changed("tie-jobs") {
		opts.TieJobs = f.tieJobs
	}
	if changed("tie-mapping") {
		opts.TieMapping = f.tieMapping
	}
	if changed("seed") {
		opts.Seed = f.seed
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if changed("max-jobs") {
		opts.MaxJobs = f.maxJobs
	}
	if changed("check") {
		opts.CheckInvariants = f.check
	}
}

// run loads the configuration, applies the flags and executes the
// pipeline on the graph file at path.
func (c *CLI) run(cmd *cobra.Command, f *mapFlags, path string, mod func(*pipeline.Options)) (*pipeline.Result, error) {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	opts := pipelineOptions(cfg)
	f.apply(cmd, &opts)
	opts.GraphPath = path
	if opts.Arch == "" {
		return nil, errors.New(errors.ErrCodeInvalidArch, "no target architecture: pass --arch or set mapping.arch")
	}
	if mod != nil {
		mod(&opts)
	}

	runner, err := c.newRunner(ctx, cfg, f.noCache, logger)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	if !f.progress {
		return runner.Execute(ctx, opts)
	}
	// The progress view owns the terminal, so only warnings are logged.
	quiet := logger.With()
	quiet.SetLevel(max(logger.GetLevel(), LogWarn))
	opts.Logger = quiet
	return runWithProgress(ctx, func(ctx context.Context) (*pipeline.Result, error) {
		return runner.Execute(ctx, opts)
	})
}

// mapCommand creates the map command.
func (c *CLI) mapCommand() *cobra.Command {
	var (
		flags    mapFlags
		output   string
		jsonPath string
		treePath string
		refresh  bool
	)

	cmd := &cobra.Command{
		Use:   "map <graph>",
		Short: "Map a source graph onto a target architecture",
		Long: `Map the vertices of a source graph onto the terminals of a target architecture.

The graph format follows the extension: .grf and .src for Scotch, .chaco
and .graph for Chaco, .json for JSON. Other files are detected by content.
The result is written in Scotch mapping format: the vertex count, then one
"vertex terminal" pair per line.`,
		Example: `  drbmap map ring.grf --arch "hcub 3" -o ring.map
  drbmap map mesh.grf --arch "tleaf 2 4 10 2 1" --policy nglevel --tree jobs.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.run(cmd, &flags, args[0], func(o *pipeline.Options) {
				o.Refresh = refresh
				if treePath != "" {
					o.TreeFormats = []string{treeFormat(treePath)}
				}
			})
			if err != nil {
				return err
			}

			printSummary(res)
			printNewline()

			if output == "" && jsonPath == "" {
				if err := mapping.Write(cmd.OutOrStdout(), res.Mapping); err != nil {
					return err
				}
			}
			if output != "" {
				if err := writeMapping(output, res.Mapping); err != nil {
					return err
				}
				printFile(output)
			}
			if jsonPath != "" {
				data, err := json.MarshalIndent(res.Run, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
					return err
				}
				printFile(jsonPath)
			}
			if treePath != "" {
				if err := os.WriteFile(treePath, res.Artifacts[treeFormat(treePath)], 0o644); err != nil {
					return err
				}
				printFile(treePath)
			}
			if res.Run != nil {
				printNextStep("Show this run again", fmt.Sprintf("%s runs %s", appName, res.Run.ID))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the mapping to this file (default stdout)")
	cmd.Flags().StringVar(&jsonPath, "json", "", "write the run record as JSON to this file")
	cmd.Flags().StringVar(&treePath, "tree", "", "draw the job tree to this .svg or .dot file")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even if the result is cached")
	return cmd
}

// treeFormat picks the job tree format from a file extension.
func treeFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".dot") || strings.EqualFold(filepath.Ext(path), ".gv") {
		return pipeline.FormatDOT
	}
	return pipeline.FormatSVG
}

func writeMapping(path string, m *mapping.Mapping) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := mapping.Write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
