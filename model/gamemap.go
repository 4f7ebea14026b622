package model

// GameMap is the toroidal halite grid. Cells are stored row-major:
// Cells[y*Width + x]. Every coordinate accepted by its methods wraps.
type GameMap struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  []Cell `json:"cells"`
}

// Normalize wraps p onto the map.
func (m *GameMap) Normalize(p Position) Position {
	if m.Width <= 0 || m.Height <= 0 {
		return p
	}
	return Position{X: mod(p.X, m.Width), Y: mod(p.Y, m.Height)}
}

// At returns the cell at p. Returns an empty cell for an unsized or
// truncated grid.
func (m *GameMap) At(p Position) Cell {
	i := m.index(p)
	if i < 0 {
		return Cell{}
	}
	return m.Cells[i]
}

// MarkUnsafe flags p as occupied for the remainder of the turn so later
// ships do not plan onto it.
func (m *GameMap) MarkUnsafe(p Position) {
	if i := m.index(p); i >= 0 {
		m.Cells[i].Occupied = true
	}
}

// Cardinals returns the four orthogonal neighbours of p in N, S, E, W order.
func (m *GameMap) Cardinals(p Position) []Position {
	out := make([]Position, 0, len(Cardinals))
	for _, d := range Cardinals {
		out = append(out, m.Normalize(p.Offset(d)))
	}
	return out
}

// OccupiedCardinals counts occupied orthogonal neighbours of p.
func (m *GameMap) OccupiedCardinals(p Position) int {
	n := 0
	for _, c := range m.Cardinals(p) {
		if m.At(c).Occupied {
			n++
		}
	}
	return n
}

// Square returns every position within radius r of p on both axes, x-major.
// On maps smaller than the square each wrapped position appears once.
func (m *GameMap) Square(p Position, r int) []Position {
	seen := make(map[Position]bool)
	var out []Position
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			q := m.Normalize(Position{p.X + dx, p.Y + dy})
			if seen[q] {
				continue
			}
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

// UnsafeMoves returns the directions that shorten the wrapped distance from
// src to dst, x axis first. Occupancy is ignored.
func (m *GameMap) UnsafeMoves(src, dst Position) []Direction {
	src = m.Normalize(src)
	dst = m.Normalize(dst)
	var moves []Direction

	dx := abs(dst.X - src.X)
	if dx != 0 {
		d := East
		if dst.X < src.X {
			d = West
		}
		if 2*dx >= m.Width {
			d = d.Invert()
		}
		moves = append(moves, d)
	}

	dy := abs(dst.Y - src.Y)
	if dy != 0 {
		d := South
		if dst.Y < src.Y {
			d = North
		}
		if 2*dy >= m.Height {
			d = d.Invert()
		}
		moves = append(moves, d)
	}
	return moves
}

func (m *GameMap) index(p Position) int {
	if m.Width <= 0 || m.Height <= 0 {
		return -1
	}
	p = m.Normalize(p)
	i := p.Y*m.Width + p.X
	if i >= len(m.Cells) {
		return -1
	}
	return i
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
