package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drbmap/pkg/arch"
)

// maxDistanceTable bounds the terminal count for --distances.
const maxDistanceTable = 16

// maxListedTerminals bounds the terminal table.
const maxListedTerminals = 256

// archCommand creates the arch command.
func (c *CLI) archCommand() *cobra.Command {
	var distances bool

	cmd := &cobra.Command{
		Use:   "arch <description>",
		Short: "Describe a target architecture",
		Long: `Parse a target architecture and print its terminals.

Supported architectures:
  cmplt N                 complete graph of N processors
  hcub D                  hypercube of dimension D
  mesh2D X Y              X by Y grid
  tleaf L s1 c1 ... sL cL tree-leaf with L levels of fan-out s and link cost c`,
		Example: `  drbmap arch hcub 3
  drbmap arch "tleaf 2 4 10 2 1" --distances`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := arch.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}

			printKeyValue("arch", a.String())
			printKeyValue("terminals", fmt.Sprint(arch.Terminals(a)))
			printKeyValue("depth", fmt.Sprint(arch.Depth(a)))
			printKeyValue("root", a.Root().String())
			printNewline()

			n := arch.Terminals(a)
			if distances {
				if n > maxDistanceTable {
					printWarning("distance table skipped: more than %d terminals", maxDistanceTable)
				} else {
					printTable(distanceTable(a, arch.TerminalDomains(a, n)))
					return nil
				}
			}

			doms := arch.TerminalDomains(a, maxListedTerminals)
			if n > len(doms) {
				printWarning("listing the first %d of %d terminals", len(doms), n)
			}

			rows := make([][]string, len(doms))
			for i, d := range doms {
				rows[i] = []string{strconv.Itoa(i), d.String()}
			}
			printTable([]string{"terminal", "domain"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&distances, "distances", false, "print the distance matrix between terminals")
	return cmd
}

// distanceTable returns the headers and rows of the terminal distance matrix.
func distanceTable(a arch.Arch, doms []arch.Domain) ([]string, [][]string) {
	headers := make([]string, len(doms)+1)
	rows := make([][]string, len(doms))
	for i, di := range doms {
		headers[i+1] = strconv.Itoa(i)
		row := make([]string, len(doms)+1)
		row[0] = strconv.Itoa(i)
		for j, dj := range doms {
			row[j+1] = strconv.Itoa(a.Distance(di, dj))
		}
		rows[i] = row
	}
	return headers, rows
}
