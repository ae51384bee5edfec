package cli

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/store"
)

// runsCommand creates the runs command.
func (c *CLI) runsCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List or show recorded mapping runs",
		Long: `List the most recent mapping runs, newest first, or show a single run.

Runs are recorded by the map command and the HTTP API in the store configured
under [store].`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(ctx, cfg.Store.StoreConfig())
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "open %s store", cfg.Store.Backend)
			}
			defer st.Close()

			if len(args) == 1 {
				run, err := st.Get(ctx, args[0])
				if stderrors.Is(err, store.ErrNotFound) {
					return errors.New(errors.ErrCodeNotFound, "run %q not found", args[0])
				}
				if err != nil {
					return err
				}
				if asJSON {
					return encodeJSON(cmd, run)
				}
				printRun(run)
				return nil
			}

			runs, err := st.List(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return encodeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				printInfo("No runs recorded")
				return nil
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID[:8],
					r.CreatedAt.Local().Format(time.DateTime),
					r.Arch,
					r.Policy,
					fmt.Sprint(r.Metrics.Vertices),
					fmt.Sprint(r.Metrics.CommCost),
					fmt.Sprintf("%.3f", r.Metrics.Imbalance),
				}
			}
			printTable([]string{"id", "created", "arch", "policy", "vertices", "comm cost", "imbalance"}, rows)
			printNextStep("Show a run", appName+" runs <id>")
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printRun(r *store.Run) {
	printKeyValue("id", r.ID)
	printKeyValue("created", r.CreatedAt.Local().Format(time.DateTime))
	printKeyValue("arch", r.Arch)
	printKeyValue("policy", r.Policy)
	printKeyValue("strategy", r.Strategy)
	printKeyValue("tie", fmt.Sprintf("jobs=%t mapping=%t", r.TieJobs, r.TieMapping))
	printKeyValue("seed", fmt.Sprint(r.Seed))
	printKeyValue("duration", r.Duration.Round(time.Millisecond).String())
	printKeyValue("cache hit", fmt.Sprint(r.CacheHit))
	printNewline()

	m := r.Metrics
	printTable([]string{"metric", "value"}, [][]string{
		{"vertices", fmt.Sprint(m.Vertices)},
		{"terminals used", fmt.Sprintf("%d / %d", m.UsedTerminals, m.Terminals)},
		{"cut edges", fmt.Sprint(m.CutEdges)},
		{"comm cost", fmt.Sprint(m.CommCost)},
		{"imbalance", fmt.Sprintf("%.4f", m.Imbalance)},
	})
}

func encodeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
