// Package mapping holds the result of a static mapping: the assignment of
// every source-graph vertex to a domain of the target architecture.
//
// A [Mapping] starts with every vertex unset. The mapper fills it one
// terminal job at a time through [Mapping.Assign], which refuses to write a
// vertex twice. Quality metrics are computed by [Evaluate], and results are
// written in Scotch's .map text format by [Write] or as JSON.
package mapping

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/drbmap/pkg/arch"
)

// Unset marks a vertex that has not been assigned yet.
const Unset = -1

var (
	// ErrAssigned is returned when a vertex is assigned twice.
	ErrAssigned = errors.New("vertex already assigned")
	// ErrVertexRange is returned for a vertex outside the mapping.
	ErrVertexRange = errors.New("vertex out of range")
	// ErrDomainRange is returned for an unknown domain index.
	ErrDomainRange = errors.New("domain index out of range")
	// ErrShape is returned when two mappings of different shape are combined.
	ErrShape = errors.New("mapping shape mismatch")
)

// Mapping is a vertex to domain assignment. Each vertex refers to an entry of
// a domain table, so that many vertices share one domain value.
//
// A Mapping is not safe for concurrent use.
type Mapping struct {
	arch    arch.Arch
	parts   []int
	domains []arch.Domain
	index   map[arch.Domain]int
	set     int
}

// New creates an empty mapping of n vertices onto a.
func New(a arch.Arch, n int) *Mapping {
	parts := make([]int, n)
	for i := range parts {
		parts[i] = Unset
	}
	return &Mapping{arch: a, parts: parts, index: make(map[arch.Domain]int)}
}

// Arch returns the target architecture.
func (m *Mapping) Arch() arch.Arch { return m.arch }

// VertexCount returns the number of vertices of the mapping.
func (m *Mapping) VertexCount() int { return len(m.parts) }

// Assigned returns how many vertices have been assigned.
func (m *Mapping) Assigned() int { return m.set }

// Complete reports whether every vertex is assigned.
func (m *Mapping) Complete() bool { return m.set == len(m.parts) }

// DomainCount returns the number of entries of the domain table.
func (m *Mapping) DomainCount() int { return len(m.domains) }

// DomainCap returns the capacity of the domain table.
func (m *Mapping) DomainCap() int { return cap(m.domains) }

// Reserve grows the domain table so that it holds at least n entries
// without reallocation.
func (m *Mapping) Reserve(n int) {
	if n > cap(m.domains) {
		m.domains = slices.Grow(m.domains, n-len(m.domains))
	}
}

// AddDomain returns the table index of d, appending it if needed.
func (m *Mapping) AddDomain(d arch.Domain) int {
	if i, ok := m.index[d]; ok {
		return i
	}
	m.domains = append(m.domains, d)
	m.index[d] = len(m.domains) - 1
	return len(m.domains) - 1
}

// Assign maps vertex v to the domain at table index dom. A vertex can be
// assigned only once.
func (m *Mapping) Assign(v, dom int) error {
	if v < 0 || v >= len(m.parts) {
		return fmt.Errorf("%w: %d", ErrVertexRange, v)
	}
	if dom < 0 || dom >= len(m.domains) {
		return fmt.Errorf("%w: %d", ErrDomainRange, dom)
	}
	if m.parts[v] != Unset {
		return fmt.Errorf("%w: %d", ErrAssigned, v)
	}
	m.parts[v] = dom
	m.set++
	return nil
}

// Part returns the domain table index of v, or [Unset].
func (m *Mapping) Part(v int) int { return m.parts[v] }

// Domain returns the domain of v.
func (m *Mapping) Domain(v int) (arch.Domain, bool) {
	if p := m.parts[v]; p != Unset {
		return m.domains[p], true
	}
	return arch.Domain{}, false
}

// Terminal returns the terminal number of v, or [Unset] when v is unset
// or mapped to a non-terminal domain.
func (m *Mapping) Terminal(v int) int {
	d, ok := m.Domain(v)
	if !ok || !m.arch.Terminal(d) {
		return Unset
	}
	return m.arch.TerminalNum(d)
}

// Terminals returns the terminal number of every vertex.
func (m *Mapping) Terminals() []int {
	out := make([]int, len(m.parts))
	for v := range out {
		out[v] = m.Terminal(v)
	}
	return out
}

// Reset unsets every vertex and empties the domain table.
func (m *Mapping) Reset() {
	for i := range m.parts {
		m.parts[i] = Unset
	}
	m.domains = m.domains[:0]
	clear(m.index)
	m.set = 0
}

// CopyFrom replaces the contents of m by those of src. Both mappings must
// have the same number of vertices.
func (m *Mapping) CopyFrom(src *Mapping) error {
	if len(src.parts) != len(m.parts) {
		return fmt.Errorf("%w: %d vertices, want %d", ErrShape, len(src.parts), len(m.parts))
	}
	m.arch = src.arch
	copy(m.parts, src.parts)
	m.domains = append(m.domains[:0], src.domains...)
	clear(m.index)
	for i, d := range m.domains {
		m.index[d] = i
	}
	m.set = src.set
	return nil
}

// Clone returns an independent copy of m.
func (m *Mapping) Clone() *Mapping {
	c := New(m.arch, len(m.parts))
	_ = c.CopyFrom(m)
	return c
}

// FromTerminals builds a complete mapping from per-vertex terminal numbers.
// Only the terminals that occur in terms are resolved.
func FromTerminals(a arch.Arch, terms []int) (*Mapping, error) {
	m := New(a, len(terms))
	parts := make(map[int]int)
	for v, t := range terms {
		part, ok := parts[t]
		if !ok {
			d, found := arch.TerminalDomain(a, t)
			if !found {
				return nil, fmt.Errorf("vertex %d: terminal %d out of range", v, t)
			}
			part = m.AddDomain(d)
			parts[t] = part
		}
		if err := m.Assign(v, part); err != nil {
			return nil, err
		}
	}
	return m, nil
}
