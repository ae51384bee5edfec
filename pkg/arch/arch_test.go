package arch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// terminalsOf splits d down to its terminals, in left-to-right order.
func terminalsOf(t *testing.T, a Arch, d Domain) []int {
	t.Helper()
	if a.Terminal(d) {
		return []int{a.TerminalNum(d)}
	}
	d0, d1, err := a.Bipart(d)
	if err != nil {
		t.Fatalf("Bipart(%v): %v", d, err)
	}
	if d0.Size() == 0 || d1.Size() == 0 {
		t.Fatalf("Bipart(%v) produced an empty subdomain", d)
	}
	if !d.Contains(d0) || !d.Contains(d1) || d0.Size()+d1.Size() != d.Size() {
		t.Fatalf("Bipart(%v) = %v, %v does not partition the domain", d, d0, d1)
	}
	return append(terminalsOf(t, a, d0), terminalsOf(t, a, d1)...)
}

func TestArchitecturesSplitToEveryTerminal(t *testing.T) {
	tests := []struct {
		desc      string
		terminals int
		depth     int
	}{
		{"cmplt 1", 1, 0},
		{"cmplt 5", 5, 3},
		{"cmplt 8", 8, 3},
		{"hcub 0", 1, 0},
		{"hcub 3", 8, 3},
		{"tleaf 2 4 10 2 1", 8, 3},
		{"tleaf 2 3 5 2 1", 6, 3},
		{"mesh2D 4 2", 8, 3},
		{"mesh2D 3 3", 9, 4},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			a := MustParse(tt.desc)
			if got := Terminals(a); got != tt.terminals {
				t.Errorf("Terminals() = %d, want %d", got, tt.terminals)
			}
			if got := Depth(a); got != tt.depth {
				t.Errorf("Depth() = %d, want %d", got, tt.depth)
			}

			seen := make(map[int]bool)
			for _, num := range terminalsOf(t, a, a.Root()) {
				if num < 0 || num >= tt.terminals || seen[num] {
					t.Errorf("terminal number %d out of range or repeated", num)
				}
				seen[num] = true
			}
			if len(seen) != tt.terminals {
				t.Errorf("reached %d terminals, want %d", len(seen), tt.terminals)
			}
		})
	}
}

func TestBipartTerminal(t *testing.T) {
	for _, desc := range []string{"cmplt 2", "hcub 1", "tleaf 1 2 1", "mesh2D 2 1"} {
		a := MustParse(desc)
		d0, _, _ := a.Bipart(a.Root())
		if _, _, err := a.Bipart(d0); !errors.Is(err, ErrTerminal) {
			t.Errorf("%s: Bipart(terminal) error = %v, want %v", desc, err, ErrTerminal)
		}
	}
}

func TestTreeLeafStaysAligned(t *testing.T) {
	a := MustParse("tleaf 2 3 5 2 1")
	d0, d1, err := a.Bipart(a.Root())
	if err != nil {
		t.Fatal(err)
	}
	// Three nodes of two cores: the first half takes two whole nodes.
	if diff := cmp.Diff([]Domain{Span(0, 3), Span(4, 5)}, []Domain{d0, d1}); diff != "" {
		t.Errorf("Bipart(root) mismatch (-want +got):\n%s", diff)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		desc string
		a, b Domain
		want int
	}{
		{"cmplt 4", Span(1, 1), Span(1, 1), 0},
		{"cmplt 4", Span(1, 1), Span(3, 3), 1},
		{"hcub 3", Span(0, 0), Span(7, 7), 3},
		{"hcub 3", Span(5, 5), Span(4, 4), 1},
		{"hcub 3", Span(0, 3), Span(4, 7), 2},
		{"tleaf 2 4 10 2 1", Span(0, 0), Span(1, 1), 1},
		{"tleaf 2 4 10 2 1", Span(0, 0), Span(6, 6), 10},
		{"tleaf 2 4 10 2 1", Span(3, 3), Span(3, 3), 0},
		{"mesh2D 4 4", Domain{Lo: [2]int{0, 0}, Hi: [2]int{0, 0}}, Domain{Lo: [2]int{3, 2}, Hi: [2]int{3, 2}}, 5},
	}

	for _, tt := range tests {
		a := MustParse(tt.desc)
		if got := a.Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: Distance(%v, %v) = %d, want %d", tt.desc, tt.a, tt.b, got, tt.want)
		}
		if got := a.Distance(tt.b, tt.a); got != tt.want {
			t.Errorf("%s: Distance is not symmetric: %d vs %d", tt.desc, got, tt.want)
		}
	}
}

func TestMeshTerminalNum(t *testing.T) {
	a := MustParse("mesh2D 4 3")
	d := Domain{Lo: [2]int{2, 1}, Hi: [2]int{2, 1}}
	if got := a.TerminalNum(d); got != 6 {
		t.Errorf("TerminalNum(%v) = %d, want 6", d, got)
	}
}

func TestDomainString(t *testing.T) {
	tests := []struct {
		d    Domain
		want string
	}{
		{Span(3, 3), "[3]"},
		{Span(0, 7), "[0..7]"},
		{Domain{Lo: [2]int{0, 1}, Hi: [2]int{3, 2}}, "[0..3]x[1..2]"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestTerminalDomains(t *testing.T) {
	a := MustParse("mesh2D 3 2")
	doms := TerminalDomains(a, 100)
	if len(doms) != 6 {
		t.Fatalf("len = %d, want 6", len(doms))
	}
	for num, d := range doms {
		if !a.Terminal(d) || a.TerminalNum(d) != num {
			t.Errorf("TerminalDomains()[%d] = %v", num, d)
		}
	}
	if got := len(TerminalDomains(a, 4)); got != 4 {
		t.Errorf("len(TerminalDomains(a, 4)) = %d, want 4", got)
	}
}

func TestTerminalDomain(t *testing.T) {
	tests := []struct {
		desc string
		num  int
		want Domain
	}{
		{"cmplt 5", 3, Span(3, 3)},
		{"tleaf 2 3 5 2 1", 5, Span(5, 5)},
		{"mesh2D 3 2", 5, Domain{Lo: [2]int{2, 1}, Hi: [2]int{2, 1}}},
		{"cmplt 1073741824", 0, Span(0, 0)},
		{"cmplt 1073741824", 1<<30 - 1, Span(1<<30-1, 1<<30-1)},
		{"hcub 30", 12345, Span(12345, 12345)},
		{"mesh2D 32768 32768", 1<<30 - 1, Domain{Lo: [2]int{32767, 32767}, Hi: [2]int{32767, 32767}}},
	}
	for _, tt := range tests {
		a := MustParse(tt.desc)
		got, ok := TerminalDomain(a, tt.num)
		if !ok || got != tt.want {
			t.Errorf("%s: TerminalDomain(%d) = %v, %v, want %v", tt.desc, tt.num, got, ok, tt.want)
		}
	}

	a := MustParse("cmplt 4")
	for _, num := range []int{-1, 4} {
		if _, ok := TerminalDomain(a, num); ok {
			t.Errorf("TerminalDomain(%d) succeeded on %s", num, a)
		}
	}
}

func TestDepthOfLargeArchitecture(t *testing.T) {
	if got := Depth(MustParse("cmplt 1073741824")); got != 30 {
		t.Errorf("Depth() = %d, want 30", got)
	}
}
