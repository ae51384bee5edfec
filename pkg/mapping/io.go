package mapping

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/drbmap/pkg/arch"
)

// Write encodes m in Scotch's mapping format: the vertex count on the
// first line, then one "vertex terminal" pair per line. Unset vertices are
// written with terminal -1.
func Write(w io.Writer, m *Mapping) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", m.VertexCount())
	for v := range m.VertexCount() {
		fmt.Fprintf(bw, "%d\t%d\n", v, m.Terminal(v))
	}
	return bw.Flush()
}

// Document is the JSON wire format of a mapping.
type Document struct {
	Arch      string `json:"arch"`
	Terminals []int  `json:"terminals"`
}

// ToDocument converts m to its wire format.
func ToDocument(m *Mapping) Document {
	return Document{Arch: m.Arch().String(), Terminals: m.Terminals()}
}

// FromDocument rebuilds a mapping from its wire format.
func FromDocument(doc Document) (*Mapping, error) {
	a, err := arch.Parse(doc.Arch)
	if err != nil {
		return nil, err
	}
	return FromTerminals(a, doc.Terminals)
}

// MarshalJSON implements json.Marshaler.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToDocument(m))
}
