package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxDocumentVertices bounds the vertex count of a JSON document. Isolated
// vertices cost no bytes in the document, so its size does not bound them.
const MaxDocumentVertices = 1 << 24

// =============================================================================
// Wire Types
// =============================================================================

// Edge is the serialized form of an undirected edge. A zero weight means 1.
type Edge struct {
	From   int `json:"from"`
	To     int `json:"to"`
	Weight int `json:"weight,omitempty"`
}

// Document is the JSON wire format of a graph. Each undirected edge is
// listed once with From < To.
type Document struct {
	Vertices      int    `json:"vertices"`
	VertexWeights []int  `json:"vertex_weights,omitempty"`
	Edges         []Edge `json:"edges"`
}

// ToDocument converts g to its wire format.
func ToDocument(g *Graph) Document {
	doc := Document{Vertices: g.VertexCount(), Edges: []Edge{}}
	if g.HasVertexWeights() {
		doc.VertexWeights = make([]int, g.VertexCount())
		for v := range doc.VertexWeights {
			doc.VertexWeights[v] = g.VertexWeight(v)
		}
	}
	for v := range g.VertexCount() {
		start, end := g.Arcs(v)
		for a := start; a < end; a++ {
			u := g.ArcTarget(a)
			if u < v {
				continue
			}
			e := Edge{From: v, To: u}
			if g.HasEdgeWeights() {
				e.Weight = g.ArcWeight(a)
			}
			doc.Edges = append(doc.Edges, e)
		}
	}
	return doc
}

// FromDocument builds a graph from its wire format.
func FromDocument(doc Document) (*Graph, error) {
	if doc.Vertices < 0 || doc.Vertices > MaxDocumentVertices {
		return nil, fmt.Errorf("vertex count %d out of range [0, %d]", doc.Vertices, MaxDocumentVertices)
	}
	if doc.VertexWeights != nil && len(doc.VertexWeights) != doc.Vertices {
		return nil, fmt.Errorf("vertex_weights has %d entries, want %d", len(doc.VertexWeights), doc.Vertices)
	}
	b := NewBuilder(doc.Vertices)
	for v, w := range doc.VertexWeights {
		if err := b.SetVertexWeight(v, w); err != nil {
			return nil, fmt.Errorf("vertex %d: %w", v, err)
		}
	}
	for i, e := range doc.Edges {
		w := e.Weight
		if w == 0 {
			w = 1
		}
		if err := b.AddEdge(e.From, e.To, w); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return b.Build()
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a graph to JSON bytes.
// The output is deterministic, so it is suitable as a cache key input.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a graph as JSON to an io.Writer.
func WriteGraph(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(ToDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadGraph decodes a JSON graph from an io.Reader.
func ReadGraph(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromDocument(doc)
}
