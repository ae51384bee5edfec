package mapping

import (
	"fmt"

	"github.com/matzehuels/drbmap/pkg/graph"
)

// Metrics summarizes the quality of a complete mapping.
type Metrics struct {
	Vertices      int     `json:"vertices"`
	Terminals     int     `json:"terminals"`
	UsedTerminals int     `json:"used_terminals"`
	CutEdges      int     `json:"cut_edges"`
	CutWeight     int64   `json:"cut_weight"`
	CommCost      int64   `json:"comm_cost"`
	MinLoad       int     `json:"min_load"`
	MaxLoad       int     `json:"max_load"`
	AvgLoad       float64 `json:"avg_load"`
	Imbalance     float64 `json:"imbalance"`
	// Loads is the load of every terminal. It is left empty for
	// architectures of more than MaxListedLoads terminals.
	Loads []int `json:"loads"`
}

// MaxListedLoads bounds the length of [Metrics.Loads].
const MaxListedLoads = 1 << 16

// Evaluate computes the metrics of m for source graph g.
//
// CommCost is the sum over edges of the edge weight times the distance
// between the domains of its ends. Imbalance is the ratio of the maximum
// terminal load to the average, minus one.
func Evaluate(g *graph.Graph, m *Mapping) (Metrics, error) {
	if g.VertexCount() != m.VertexCount() {
		return Metrics{}, fmt.Errorf("%w: graph has %d vertices, mapping %d", ErrShape, g.VertexCount(), m.VertexCount())
	}
	if !m.Complete() {
		return Metrics{}, fmt.Errorf("mapping is incomplete: %d of %d vertices assigned", m.Assigned(), m.VertexCount())
	}

	a := m.Arch()
	nterm := a.Weight(a.Root())
	met := Metrics{
		Vertices:  g.VertexCount(),
		Terminals: nterm,
	}

	// Loads are gathered per used terminal; the architecture may be far
	// larger than the graph.
	loads := make(map[int]int)
	for v := range g.VertexCount() {
		if t := m.Terminal(v); t != Unset {
			loads[t] += g.VertexWeight(v)
		}
		dv, _ := m.Domain(v)
		start, end := g.Arcs(v)
		for e := start; e < end; e++ {
			u := g.ArcTarget(e)
			if u < v || m.Part(u) == m.Part(v) {
				continue
			}
			w := int64(g.ArcWeight(e))
			du, _ := m.Domain(u)
			met.CutEdges++
			met.CutWeight += w
			met.CommCost += w * int64(a.Distance(dv, du))
		}
	}

	met.MinLoad = -1
	met.UsedTerminals = len(loads)
	for _, load := range loads {
		if met.MinLoad < 0 || load < met.MinLoad {
			met.MinLoad = load
		}
		met.MaxLoad = max(met.MaxLoad, load)
	}
	if len(loads) < nterm || met.MinLoad < 0 {
		met.MinLoad = 0
	}
	if nterm <= MaxListedLoads {
		met.Loads = make([]int, nterm)
		for t, load := range loads {
			met.Loads[t] = load
		}
	}
	if nterm > 0 {
		met.AvgLoad = float64(g.TotalWeight()) / float64(nterm)
	}
	if met.AvgLoad > 0 {
		met.Imbalance = float64(met.MaxLoad)/met.AvgLoad - 1
	}
	return met, nil
}
