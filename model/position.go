package model

import "fmt"

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Offset returns the position one step in direction d. The result is not
// wrapped; GameMap.Normalize does that.
func (p Position) Offset(d Direction) Position {
	switch d {
	case North:
		return Position{p.X, p.Y - 1}
	case South:
		return Position{p.X, p.Y + 1}
	case East:
		return Position{p.X + 1, p.Y}
	case West:
		return Position{p.X - 1, p.Y}
	}
	return p
}

// Direction is the single-letter move code understood by the engine.
type Direction string

const (
	North Direction = "n"
	South Direction = "s"
	East  Direction = "e"
	West  Direction = "w"
	Still Direction = "o"
)

// Cardinals lists the four movement directions in the order neighbours are enumerated.
var Cardinals = []Direction{North, South, East, West}

// Invert returns the opposite direction. Still inverts to itself.
func (d Direction) Invert() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return Still
}

// Valid reports whether d is one of the five directions the engine accepts.
func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West, Still:
		return true
	}
	return false
}
