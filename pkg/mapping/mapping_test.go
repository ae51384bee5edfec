package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/drbmap/pkg/arch"
	"github.com/matzehuels/drbmap/pkg/graph"
)

func TestAssignIsWriteOnce(t *testing.T) {
	m := New(arch.MustParse("cmplt 2"), 3)
	d := m.AddDomain(arch.Span(1, 1))

	if err := m.Assign(0, d); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := m.Assign(0, d); !errors.Is(err, ErrAssigned) {
		t.Errorf("second Assign error = %v, want %v", err, ErrAssigned)
	}
	if err := m.Assign(5, d); !errors.Is(err, ErrVertexRange) {
		t.Errorf("Assign(5) error = %v, want %v", err, ErrVertexRange)
	}
	if err := m.Assign(1, 9); !errors.Is(err, ErrDomainRange) {
		t.Errorf("Assign(1, 9) error = %v, want %v", err, ErrDomainRange)
	}
	if m.Assigned() != 1 || m.Complete() {
		t.Errorf("Assigned() = %d, Complete() = %v", m.Assigned(), m.Complete())
	}
	if got := m.Terminals(); !cmp.Equal(got, []int{1, Unset, Unset}) {
		t.Errorf("Terminals() = %v", got)
	}
}

func TestAddDomainDeduplicates(t *testing.T) {
	m := New(arch.MustParse("cmplt 4"), 1)
	a := m.AddDomain(arch.Span(0, 1))
	b := m.AddDomain(arch.Span(2, 3))
	if m.AddDomain(arch.Span(0, 1)) != a || a == b {
		t.Error("AddDomain should return the existing index")
	}
	if m.DomainCount() != 2 {
		t.Errorf("DomainCount() = %d, want 2", m.DomainCount())
	}
	m.Reserve(16)
	if m.DomainCap() < 16 || m.DomainCount() != 2 {
		t.Errorf("Reserve: cap %d, count %d", m.DomainCap(), m.DomainCount())
	}
}

func TestCopyFromAndReset(t *testing.T) {
	a := arch.MustParse("hcub 1")
	src, _ := FromTerminals(a, []int{1, 0, 1})
	dst := New(a, 3)

	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if !dst.Complete() || !cmp.Equal(dst.Terminals(), []int{1, 0, 1}) {
		t.Errorf("Terminals() = %v", dst.Terminals())
	}
	// The copy is independent of its source.
	src.Reset()
	if dst.Terminal(0) != 1 {
		t.Errorf("Terminal(0) = %d after source reset", dst.Terminal(0))
	}
	if src.Assigned() != 0 || src.DomainCount() != 0 {
		t.Errorf("Reset left %d assigned, %d domains", src.Assigned(), src.DomainCount())
	}
	if err := New(a, 2).CopyFrom(dst); !errors.Is(err, ErrShape) {
		t.Errorf("CopyFrom error = %v, want %v", err, ErrShape)
	}
}

func TestEvaluate(t *testing.T) {
	// Path 0-1-2-3 with edge 1-2 of weight 3, on a 4-core two-level tree.
	b := graph.NewBuilder(4)
	_ = b.AddEdge(0, 1, 1)
	_ = b.AddEdge(1, 2, 3)
	_ = b.AddEdge(2, 3, 1)
	g, _ := b.Build()

	a := arch.MustParse("tleaf 2 2 10 2 1")
	m, err := FromTerminals(a, []int{0, 1, 2, 2})
	if err != nil {
		t.Fatal(err)
	}

	met, err := Evaluate(g, m)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := Metrics{
		Vertices:      4,
		Terminals:     4,
		UsedTerminals: 3,
		CutEdges:      2,
		CutWeight:     4,
		CommCost:      1*1 + 3*10,
		MinLoad:       0,
		MaxLoad:       2,
		AvgLoad:       1,
		Imbalance:     1,
		Loads:         []int{1, 1, 2, 0},
	}
	if diff := cmp.Diff(want, met); diff != "" {
		t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateRejectsIncomplete(t *testing.T) {
	g := graph.Ring(3)
	if _, err := Evaluate(g, New(arch.MustParse("cmplt 2"), 3)); err == nil {
		t.Error("expected error for incomplete mapping")
	}
	if _, err := Evaluate(g, New(arch.MustParse("cmplt 2"), 4)); !errors.Is(err, ErrShape) {
		t.Errorf("error = %v, want %v", err, ErrShape)
	}
}

func TestEvaluateBalanced(t *testing.T) {
	g := graph.Ring(4)
	m, _ := FromTerminals(arch.MustParse("cmplt 2"), []int{0, 0, 1, 1})
	met, err := Evaluate(g, m)
	if err != nil {
		t.Fatal(err)
	}
	if met.CutEdges != 2 || met.CommCost != 2 || math.Abs(met.Imbalance) > 1e-9 {
		t.Errorf("cut %d, cost %d, imbalance %v", met.CutEdges, met.CommCost, met.Imbalance)
	}
}

func TestWrite(t *testing.T) {
	m, _ := FromTerminals(arch.MustParse("cmplt 3"), []int{2, 0})
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatal(err)
	}
	if want := "2\n0\t2\n1\t0\n"; buf.String() != want {
		t.Errorf("Write() = %q, want %q", buf.String(), want)
	}
}

func TestJSON(t *testing.T) {
	m, _ := FromTerminals(arch.MustParse("mesh2D 2 2"), []int{3, 1, 0})
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"arch":"mesh2D 2 2","terminals":[3,1,0]}`; string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	back, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if !cmp.Equal(back.Terminals(), m.Terminals()) {
		t.Errorf("Terminals() = %v, want %v", back.Terminals(), m.Terminals())
	}

	if _, err := FromDocument(Document{Arch: "cmplt 2", Terminals: []int{5}}); err == nil {
		t.Error("expected error for out-of-range terminal")
	}
}

func TestFromDocumentLargeArchitecture(t *testing.T) {
	m, err := FromDocument(Document{Arch: "cmplt 1073741824", Terminals: []int{0, 1 << 29, 0}})
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if got := m.Terminals(); !cmp.Equal(got, []int{0, 1 << 29, 0}) {
		t.Errorf("Terminals() = %v", got)
	}
	if m.DomainCount() != 2 {
		t.Errorf("DomainCount() = %d, want 2", m.DomainCount())
	}

	met, err := Evaluate(graph.Ring(3), m)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if met.UsedTerminals != 2 || met.MaxLoad != 2 || met.MinLoad != 0 || met.Loads != nil {
		t.Errorf("Evaluate() = %+v", met)
	}

	if _, err := FromDocument(Document{Arch: "cmplt 9223372036854775807", Terminals: []int{0}}); err == nil {
		t.Error("expected error for an architecture beyond the terminal limit")
	}
}
