package arch

import "fmt"

// Mesh2D is a two-dimensional grid of terminals with Manhattan distance.
// Terminal (x, y) has number y*X + x.
type Mesh2D struct {
	x, y int
}

// NewMesh2D returns an x by y mesh.
func NewMesh2D(x, y int) (*Mesh2D, error) {
	if x < 1 || y < 1 {
		return nil, fmt.Errorf("mesh2D: invalid size %dx%d", x, y)
	}
	if x > MaxTerminals/y {
		return nil, fmt.Errorf("mesh2D: %dx%d exceeds %d terminals", x, y, MaxTerminals)
	}
	return &Mesh2D{x: x, y: y}, nil
}

func (m *Mesh2D) Name() string   { return "mesh2D" }
func (m *Mesh2D) String() string { return fmt.Sprintf("mesh2D %d %d", m.x, m.y) }

func (m *Mesh2D) Root() Domain {
	return Domain{Hi: [2]int{m.x - 1, m.y - 1}}
}

func (m *Mesh2D) Terminal(d Domain) bool { return d.Size() == 1 }
func (m *Mesh2D) Weight(d Domain) int    { return d.Size() }

func (m *Mesh2D) TerminalNum(d Domain) int {
	return d.Lo[1]*m.x + d.Lo[0]
}

func (m *Mesh2D) locate(num int) Domain {
	p := [2]int{num % m.x, num / m.x}
	return Domain{Lo: p, Hi: p}
}

// Bipart cuts the box across its longer side.
func (m *Mesh2D) Bipart(d Domain) (Domain, Domain, error) {
	if m.Terminal(d) {
		return Domain{}, Domain{}, ErrTerminal
	}
	axis := 0
	if d.Hi[1]-d.Lo[1] > d.Hi[0]-d.Lo[0] {
		axis = 1
	}
	_, hi0, lo1, _ := halve(d.Lo[axis], d.Hi[axis])
	d0, d1 := d, d
	d0.Hi[axis] = hi0
	d1.Lo[axis] = lo1
	return d0, d1, nil
}

// Distance is the Manhattan distance between box centers, rounded down.
func (m *Mesh2D) Distance(a, b Domain) int {
	dist := 0
	for i := range 2 {
		dist += abs(a.Lo[i] + a.Hi[i] - b.Lo[i] - b.Hi[i])
	}
	return dist / 2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
