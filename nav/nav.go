package nav

import (
	"fmt"

	"github.com/nstehr/vimy/prospector/model"
)

// Navigator picks the next step for a ship heading to target. Implementations
// may mark the chosen cell unsafe on m so later ships this turn avoid it.
type Navigator interface {
	DirectionToward(ship model.Ship, target model.Position, m *model.GameMap) model.Direction
}

// Strategy is the closed set of navigation risk profiles a doctrine can select.
type Strategy int

const (
	Safe          Strategy = iota // first free approach move
	ResourceAware                 // free approach move onto the richest cell
	Evasive                       // approach, otherwise sidestep to any free neighbour
	Rush                          // approach ignoring occupancy (endgame)
)

var strategyNames = map[Strategy]string{
	Safe:          "safe",
	ResourceAware: "resource_aware",
	Evasive:       "evasive",
	Rush:          "rush",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a doctrine strategy name to its value. The empty string means Safe.
func ParseStrategy(name string) (Strategy, error) {
	if name == "" {
		return Safe, nil
	}
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return Safe, fmt.Errorf("unknown navigation strategy %q", name)
}

// StrategyNames lists the accepted strategy names.
func StrategyNames() []string {
	return []string{"safe", "resource_aware", "evasive", "rush"}
}

// For returns the navigator implementing s. Unknown values fall back to Safe.
func For(s Strategy) Navigator {
	switch s {
	case ResourceAware:
		return resourceAware{}
	case Evasive:
		return evasive{}
	case Rush:
		return rush{}
	}
	return safe{}
}

type safe struct{}

func (safe) DirectionToward(ship model.Ship, target model.Position, m *model.GameMap) model.Direction {
	for _, d := range m.UnsafeMoves(ship.Position, target) {
		next := m.Normalize(ship.Position.Offset(d))
		if !m.At(next).Occupied {
			m.MarkUnsafe(next)
			return d
		}
	}
	return model.Still
}

type resourceAware struct{}

func (resourceAware) DirectionToward(ship model.Ship, target model.Position, m *model.GameMap) model.Direction {
	best := model.Still
	bestHalite := -1
	var bestPos model.Position
	for _, d := range m.UnsafeMoves(ship.Position, target) {
		next := m.Normalize(ship.Position.Offset(d))
		c := m.At(next)
		if c.Occupied {
			continue
		}
		if c.Halite > bestHalite {
			best, bestHalite, bestPos = d, c.Halite, next
		}
	}
	if best != model.Still {
		m.MarkUnsafe(bestPos)
	}
	return best
}

type evasive struct{}

func (evasive) DirectionToward(ship model.Ship, target model.Position, m *model.GameMap) model.Direction {
	if d := (safe{}).DirectionToward(ship, target, m); d != model.Still {
		return d
	}
	for _, d := range model.Cardinals {
		next := m.Normalize(ship.Position.Offset(d))
		if !m.At(next).Occupied {
			m.MarkUnsafe(next)
			return d
		}
	}
	return model.Still
}

type rush struct{}

func (rush) DirectionToward(ship model.Ship, target model.Position, m *model.GameMap) model.Direction {
	moves := m.UnsafeMoves(ship.Position, target)
	if len(moves) == 0 {
		return model.Still
	}
	return moves[0]
}
