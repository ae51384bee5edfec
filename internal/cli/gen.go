package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drbmap/pkg/errors"
	"github.com/matzehuels/drbmap/pkg/graph"
)

// maxGenVertices bounds generated graphs.
const maxGenVertices = 1 << 24

// genCommand creates the gen command.
func (c *CLI) genCommand() *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "gen <ring|hcub|mesh> <size>...",
		Short: "Generate a source graph",
		Long: `Generate a test graph with unit weights.

  ring N      cycle of N vertices
  hcub D      hypercube of dimension D (2^D vertices)
  mesh X Y    X by Y grid

Files take the format of their extension (.grf, .chaco, .json). Standard
output uses --format, Chaco by default.`,
		Example: `  drbmap gen ring 64 > ring.chaco
  drbmap gen hcub 6 --format scotch > hcub6.grf
  drbmap gen mesh 16 16 -o mesh.json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := graph.ParseFormat(format)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "--format")
			}
			g, err := generate(args[0], args[1:])
			if err != nil {
				return err
			}
			if output == "" {
				return writeGraph(cmd.OutOrStdout(), g, f)
			}

			prog := newProgress(loggerFromContext(cmd.Context()))
			if err := graph.WriteFile(g, output); err != nil {
				return err
			}
			prog.done("wrote graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", string(graph.FormatChaco), "stdout format: scotch, chaco or json")
	return cmd
}

// generate builds the named graph family from its size arguments.
func generate(kind string, args []string) (*graph.Graph, error) {
	sizes := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid size %q", a)
		}
		sizes[i] = n
	}

	want := map[string]int{"ring": 1, "hcub": 1, "mesh": 2}
	n, ok := want[kind]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown graph family %q (want ring, hcub or mesh)", kind)
	}
	if len(sizes) != n {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s takes %d size arguments, got %d", kind, n, len(sizes))
	}

	switch kind {
	case "ring":
		if sizes[0] > maxGenVertices {
			return nil, tooLarge(sizes[0])
		}
		return graph.Ring(sizes[0]), nil
	case "hcub":
		if sizes[0] > 24 {
			return nil, tooLarge(1 << min(sizes[0], 62))
		}
		return graph.Hypercube(sizes[0]), nil
	default:
		if sizes[0] > maxGenVertices/sizes[1] {
			return nil, tooLarge(sizes[0] * sizes[1])
		}
		return graph.Mesh2D(sizes[0], sizes[1]), nil
	}
}

func tooLarge(n int) error {
	return errors.New(errors.ErrCodeInvalidInput, "graph of %d vertices exceeds the limit of %d", n, maxGenVertices)
}

func writeGraph(w io.Writer, g *graph.Graph, f graph.Format) error {
	if err := graph.Write(w, g, f); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}
