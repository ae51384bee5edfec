package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drbmap/pkg/pipeline"
)

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		flags  mapFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "tree <graph>",
		Short: "Draw the job tree of a mapping run",
		Long: `Map a source graph and draw the tree of bipartitioning jobs.

Every job is labelled with its architecture domain and vertex count. Jobs that
ended on a terminal are highlighted; dashed jobs were dropped because one side
of their split came out empty. The format follows the output extension: .dot
or .gv for Graphviz source, anything else for SVG.`,
		Example: `  drbmap tree ring.grf --arch "cmplt 8" -o jobs.svg`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := treeFormat(output)
			res, err := c.run(cmd, &flags, args[0], func(o *pipeline.Options) {
				o.TreeFormats = []string{format}
			})
			if err != nil {
				return err
			}

			printSuccess("Recorded %s jobs", StyleNumber.Render(jobCount(res)))
			if err := os.WriteFile(output, res.Artifacts[format], 0o644); err != nil {
				return err
			}
			printFile(output)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "jobs.svg", "output file (.svg, .dot or .gv)")
	return cmd
}

func jobCount(res *pipeline.Result) string {
	n := res.Stats.Jobs
	if res.Tree != nil {
		n = res.Tree.Len()
	}
	return fmt.Sprint(n)
}
